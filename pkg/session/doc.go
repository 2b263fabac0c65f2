// Package session implements the lifecycle of one completion request.
//
// A Session owns one upstream stream and one cancellation context. It moves
// through Opening, Streaming and exactly one of Completed, Failed or
// Cancelled:
//
//	Opening ──open ok──▶ Streaming ──final chunk / EOF──▶ Completed
//	   │                     │
//	   │                     ├──upstream error──▶ Failed
//	   ├──open error──▶ Failed
//	   └──cancel / deadline──────────────────────▶ Cancelled
//
// Two deadlines apply. The open deadline runs from Open until the first
// chunk. The idle deadline bounds each wait for a later chunk. Either one
// cancels the session with a *providers.TimeoutError cause and the session
// ends Cancelled with ReasonTimeout.
//
// Consumers pull chunks with Next:
//
//	sess, err := session.Open(ctx, adapter, req, opts)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	for {
//	    chunk, err := sess.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package session
