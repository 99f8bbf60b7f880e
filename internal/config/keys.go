package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ANIMO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "ANIMO_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "engine.base_url", typ: kString, env: "ANIMO_ENGINE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Engine.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.BaseURL },
	},
	{
		key: "engine.model_path", typ: kString, env: "ANIMO_ENGINE_MODEL_PATH",
		apply:   func(cfg *Config, v any) { cfg.Engine.ModelPath = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.ModelPath },
	},
	{
		key: "engine.ctx_size", typ: kInt, env: "ANIMO_ENGINE_CTX_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Engine.CtxSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Engine.CtxSize },
	},
	{
		key: "engine.threads", typ: kInt, env: "ANIMO_ENGINE_THREADS",
		apply:   func(cfg *Config, v any) { cfg.Engine.Threads = v.(int) },
		extract: func(cfg Config) any { return cfg.Engine.Threads },
	},
	{
		key: "engine.gpu_layers", typ: kInt, env: "ANIMO_ENGINE_GPU_LAYERS",
		apply:   func(cfg *Config, v any) { cfg.Engine.GPULayers = v.(int) },
		extract: func(cfg Config) any { return cfg.Engine.GPULayers },
	},
	{
		key: "engine.verbose", typ: kBool, env: "ANIMO_ENGINE_VERBOSE",
		apply:   func(cfg *Config, v any) { cfg.Engine.Verbose = v.(bool) },
		extract: func(cfg Config) any { return cfg.Engine.Verbose },
	},
	{
		key: "engine.concurrent", typ: kBool, env: "ANIMO_ENGINE_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Engine.Concurrent = v.(bool) },
		extract: func(cfg Config) any { return cfg.Engine.Concurrent },
	},
	{
		key: "classifier.base_url", typ: kString, env: "ANIMO_CLASSIFIER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Classifier.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Classifier.BaseURL },
	},
	{
		key: "classifier.top_k", typ: kInt, env: "ANIMO_CLASSIFIER_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Classifier.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Classifier.TopK },
	},
	{
		key: "coach.max_turns", typ: kInt, env: "ANIMO_COACH_MAX_TURNS",
		apply:   func(cfg *Config, v any) { cfg.Coach.MaxTurns = v.(int) },
		extract: func(cfg Config) any { return cfg.Coach.MaxTurns },
	},
	{
		key: "coach.temperature", typ: kFloat, env: "ANIMO_COACH_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Coach.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Coach.Temperature },
	},
	{
		key: "coach.top_p", typ: kFloat, env: "ANIMO_COACH_TOP_P",
		apply:   func(cfg *Config, v any) { cfg.Coach.TopP = v.(float64) },
		extract: func(cfg Config) any { return cfg.Coach.TopP },
	},
	{
		key: "coach.max_tokens", typ: kInt, env: "ANIMO_COACH_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Coach.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Coach.MaxTokens },
	},
	{
		key: "storage.data_dir", typ: kString, env: "ANIMO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "ANIMO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
