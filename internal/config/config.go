package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Config struct {
	Server     ServerConfig
	Engine     EngineConfig
	Classifier ClassifierConfig
	Coach      CoachConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type EngineConfig struct {
	BaseURL    string
	ModelPath  string
	CtxSize    int
	Threads    int
	GPULayers  int
	Verbose    bool
	Concurrent bool
}

type ClassifierConfig struct {
	BaseURL string
	TopK    int
}

type CoachConfig struct {
	MaxTurns    int
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Engine: EngineConfig{
			BaseURL: "http://localhost:8080",
		},
		Classifier: ClassifierConfig{
			BaseURL: "http://localhost:8001",
			TopK:    3,
		},
		Coach: CoachConfig{
			MaxTurns:    8,
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   256,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/animo/config.json, then applies ANIMO_* environment
// variable overrides.
//
// If no API token is configured anywhere, one is generated and persisted so
// the session-diagnostic routes are never left open by accident.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Server.APIToken) == "" {
		token := uuid.NewString()
		if err := b.SetString("server.api_token", token); err != nil {
			return Config{}, fmt.Errorf("persisting generated api token: %w", err)
		}
		cfg.Server.APIToken = token
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Coach.MaxTurns <= 0 {
		return fmt.Errorf("invalid config: coach.max_turns must be positive, got %d", cfg.Coach.MaxTurns)
	}
	if cfg.Coach.Temperature < 0 || cfg.Coach.Temperature > 2 {
		return fmt.Errorf("invalid config: coach.temperature %g out of range [0, 2]", cfg.Coach.Temperature)
	}
	if cfg.Classifier.TopK <= 0 {
		return fmt.Errorf("invalid config: classifier.top_k must be positive, got %d", cfg.Classifier.TopK)
	}
	return nil
}
