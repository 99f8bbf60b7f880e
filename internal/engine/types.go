package engine

import "runtime"

// Message represents a role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are per-call sampling parameters for Complete.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultOptions returns the sampling parameters used when the caller does
// not override them.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   256,
	}
}

// Config describes the generation backend. It is set exactly once, at
// Handle.Init, and is immutable afterwards.
type Config struct {
	// BaseURL of the llama-server HTTP endpoint.
	BaseURL string

	// ModelPath is the GGUF model file the server is expected to serve. Used
	// for diagnostics and for the model field of completion requests.
	ModelPath string

	// CtxSize is the context window size in tokens.
	CtxSize int

	// Threads is the CPU thread count. Zero means derive from the host:
	// max(2, NumCPU/2).
	Threads int

	// GPULayers is the number of layers offloaded to the GPU. Zero means
	// CPU-only.
	GPULayers int

	// Verbose enables request/response debug logging.
	Verbose bool

	// SupportsConcurrentCalls declares whether the backend handles parallel
	// completion requests. Single-slot llama-server builds do not; when false
	// the Handle serializes all Complete calls.
	SupportsConcurrentCalls bool
}

// withDefaults fills derived and defaulted fields without mutating the
// original.
func (c Config) withDefaults() Config {
	if c.CtxSize <= 0 {
		c.CtxSize = 4096
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads()
	}
	return c
}

func defaultThreads() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}
