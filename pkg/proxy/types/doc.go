// Package types defines the JSON shapes of the gateway's HTTP surface.
//
// Completion requests arrive either as a bare message array or as an object
// naming the provider and model. Streamed replies are not JSON; they are
// plain chunks, so only requests, errors and the operational endpoints have
// types here.
package types
