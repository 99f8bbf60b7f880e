package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that the generation backend is reachable and warms it up
// with a trivial completion so the first real exchange does not pay the
// cold-load penalty. Progress is written to w. Returns a non-nil error if the
// backend is unreachable; a failed warm-up is reported but non-fatal.
func EnsureReady(ctx context.Context, e Engine, cfg Config, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf(
			"llama-server is not running at %s; start it with: llama-server -m %s -c %d -t %d -ngl %d",
			cfg.BaseURL, cfg.ModelPath, cfg.CtxSize, cfg.Threads, cfg.GPULayers,
		)
	}

	if model, err := e.ModelInfo(ctx); err == nil {
		fmt.Fprintf(w, "engine model: %s\n", model)
	}

	fmt.Fprintf(w, "engine: warming up...\n")
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := e.Complete(warmCtx, []Message{
		{Role: "user", Content: "hola"},
	}, Options{Temperature: 0, TopP: 1, MaxTokens: 1})
	if err != nil {
		fmt.Fprintf(w, "engine: warm-up failed (non-fatal): %v\n", err)
	} else {
		fmt.Fprintf(w, "engine: warm\n")
	}

	return nil
}
