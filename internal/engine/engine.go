package engine

import "context"

// Engine abstracts a local text-generation backend (llama.cpp's llama-server,
// or any OpenAI-compatible chat-completions server). The coach orchestrator
// depends on this interface instead of a concrete client.
type Engine interface {
	// Complete sends the ordered message list to the backend and returns the
	// generated assistant text.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)

	// IsRunning reports whether the generation backend is reachable.
	IsRunning(ctx context.Context) bool

	// ModelInfo returns the identifier of the model the backend is serving.
	ModelInfo(ctx context.Context) (string, error)
}
