package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrNotInitialized is returned by Get when Init has not completed
// successfully.
var ErrNotInitialized = errors.New("engine not initialized")

// Handle owns the single live engine instance for the process. The first
// Init call constructs the engine; concurrent callers block on the same
// mutex and then observe the already-initialized instance. Init calls after
// the first are no-ops, including calls with a different config.
type Handle struct {
	mu      sync.Mutex
	factory func(Config) (Engine, error)

	eng   Engine
	cfg   Config
	ready bool
}

// NewHandle creates a Handle that constructs a llama-server Client on Init.
func NewHandle() *Handle {
	return NewHandleWithFactory(func(cfg Config) (Engine, error) {
		return NewClient(cfg.BaseURL, cfg.ModelPath, cfg.Verbose), nil
	})
}

// NewHandleWithFactory creates a Handle with a custom engine constructor.
// Used by tests to count constructions and inject fakes.
func NewHandleWithFactory(factory func(Config) (Engine, error)) *Handle {
	return &Handle{factory: factory}
}

// Init constructs the engine exactly once. The stored config is the first
// caller's config with derived defaults applied; later configs are ignored.
func (h *Handle) Init(cfg Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready {
		return nil
	}

	cfg = cfg.withDefaults()
	eng, err := h.factory(cfg)
	if err != nil {
		return err
	}
	if !cfg.SupportsConcurrentCalls {
		eng = &serialEngine{eng: eng}
	}

	h.eng = eng
	h.cfg = cfg
	h.ready = true
	return nil
}

// Get returns the live engine, or ErrNotInitialized if Init never completed.
func (h *Handle) Get() (Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return nil, ErrNotInitialized
	}
	return h.eng, nil
}

// Config returns the config the engine was constructed with.
func (h *Handle) Config() (Config, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return Config{}, ErrNotInitialized
	}
	return h.cfg, nil
}

// serialEngine serializes Complete calls for backends that are not safe for
// concurrent completions. Probes pass through unlocked.
type serialEngine struct {
	mu  sync.Mutex
	eng Engine
}

func (s *serialEngine) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Complete(ctx, messages, opts)
}

func (s *serialEngine) IsRunning(ctx context.Context) bool {
	return s.eng.IsRunning(ctx)
}

func (s *serialEngine) ModelInfo(ctx context.Context) (string, error) {
	return s.eng.ModelInfo(ctx)
}
