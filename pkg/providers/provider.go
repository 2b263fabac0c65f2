package providers

import "context"

// Adapter is the interface every upstream completion backend implements.
// It opens one streaming completion per call and normalizes the backend's
// incremental responses into ChunkEvents.
//
// Open must validate messages before touching the network: an empty sequence
// fails with a *ValidationError and no connection is attempted. A failure to
// establish the upstream stream (dial error, non-2xx status) is reported as an
// *UnavailableError.
//
// The returned Stream is owned by the caller and must be closed exactly once.
// Cancelling ctx aborts both the open and every subsequent Recv.
//
// Example usage:
//
//	stream, err := adapter.Open(ctx, "gpt-4o", []providers.Message{
//	    {Role: providers.RoleUser, Content: "Hello!"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for {
//	    chunk, err := stream.Recv(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Content)
//	}
type Adapter interface {
	// Open starts a streaming completion for model over messages.
	Open(ctx context.Context, model string, messages []Message) (Stream, error)

	// Name returns the provider's configured name (e.g., "openai-prod").
	Name() string

	// Type returns the adapter type (e.g., "openai", "anthropic", "echo").
	Type() string

	// Close releases pooled connections and stops background work.
	Close() error
}

// Stream is a lazy, finite, non-restartable sequence of ChunkEvents produced
// by one upstream call.
type Stream interface {
	// Recv returns the next chunk.
	// Returns io.EOF when the upstream ends the stream normally.
	Recv(ctx context.Context) (ChunkEvent, error)

	// Close releases the upstream connection. It is safe to call more than once.
	Close() error
}

// HealthReporter is implemented by adapters that track upstream health.
type HealthReporter interface {
	Health() ProviderHealth
	StartHealthChecker(ctx context.Context)
}
