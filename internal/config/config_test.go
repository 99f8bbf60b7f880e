package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]string)}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	var i int
	if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.data[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.data[key] = fmt.Sprintf("%d", val)
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Engine.BaseURL != "http://localhost:8080" {
		t.Errorf("Engine.BaseURL = %q, want %q", cfg.Engine.BaseURL, "http://localhost:8080")
	}
	if cfg.Classifier.BaseURL != "http://localhost:8001" {
		t.Errorf("Classifier.BaseURL = %q, want %q", cfg.Classifier.BaseURL, "http://localhost:8001")
	}
	if cfg.Classifier.TopK != 3 {
		t.Errorf("Classifier.TopK = %d, want 3", cfg.Classifier.TopK)
	}
	if cfg.Coach.MaxTurns != 8 {
		t.Errorf("Coach.MaxTurns = %d, want 8", cfg.Coach.MaxTurns)
	}
	if cfg.Coach.Temperature != 0.7 {
		t.Errorf("Coach.Temperature = %g, want 0.7", cfg.Coach.Temperature)
	}
	if cfg.Coach.MaxTokens != 256 {
		t.Errorf("Coach.MaxTokens = %d, want 256", cfg.Coach.MaxTokens)
	}
	if cfg.Engine.Concurrent {
		t.Error("Engine.Concurrent = true, want false by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestBackendValues(t *testing.T) {
	b := newMemBackend()
	b.data["server.port"] = "9000"
	b.data["engine.model_path"] = "/models/coach.gguf"
	b.data["engine.concurrent"] = "true"
	b.data["coach.temperature"] = "0.3"
	b.data["coach.max_turns"] = "4"
	b.data["log.level"] = "debug"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Engine.ModelPath != "/models/coach.gguf" {
		t.Errorf("Engine.ModelPath = %q", cfg.Engine.ModelPath)
	}
	if !cfg.Engine.Concurrent {
		t.Error("Engine.Concurrent = false, want true")
	}
	if cfg.Coach.Temperature != 0.3 {
		t.Errorf("Coach.Temperature = %g, want 0.3", cfg.Coach.Temperature)
	}
	if cfg.Coach.MaxTurns != 4 {
		t.Errorf("Coach.MaxTurns = %d, want 4", cfg.Coach.MaxTurns)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestEnvOverride(t *testing.T) {
	b := newMemBackend()
	b.data["server.port"] = "9000"
	b.data["server.api_token"] = "file-token"

	t.Setenv("ANIMO_SERVER_PORT", "9100")
	t.Setenv("ANIMO_API_TOKEN", "env-token")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "env-token" {
		t.Errorf("Server.APIToken = %q, want %q", cfg.Server.APIToken, "env-token")
	}
}

func TestGeneratedAPIToken(t *testing.T) {
	t.Setenv("ANIMO_API_TOKEN", "")
	b := newMemBackend()

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.APIToken == "" {
		t.Fatal("APIToken is empty, want a generated token")
	}
	if got := b.data["server.api_token"]; got != cfg.Server.APIToken {
		t.Errorf("persisted token = %q, want %q", got, cfg.Server.APIToken)
	}

	// A second load reuses the persisted token.
	cfg2, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg2.Server.APIToken != cfg.Server.APIToken {
		t.Errorf("second load token = %q, want %q", cfg2.Server.APIToken, cfg.Server.APIToken)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"port out of range", "server.port", "70000", "server.port"},
		{"zero max turns", "coach.max_turns", "0", "coach.max_turns"},
		{"negative temperature", "coach.temperature", "-1", "coach.temperature"},
		{"zero top k", "classifier.top_k", "0", "classifier.top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMemBackend()
			b.data[tt.key] = tt.val

			_, err := loadWith(b)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := &fileBackend{path: filepath.Join(dir, "config.json"), data: make(map[string]any)}

	if err := b.SetString("log.level", "warn"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 9000); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// Reload from disk.
	b2 := &fileBackend{path: b.path, data: make(map[string]any)}
	b2.load()

	v, ok, err := b2.GetString("log.level")
	if err != nil || !ok || v != "warn" {
		t.Errorf("GetString = (%q, %v, %v), want (warn, true, nil)", v, ok, err)
	}
	i, ok, err := b2.GetInt("server.port")
	if err != nil || !ok || i != 9000 {
		t.Errorf("GetInt = (%d, %v, %v), want (9000, true, nil)", i, ok, err)
	}

	if err := b2.Delete("log.level"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b2.GetString("log.level"); ok {
		t.Error("key still present after Delete")
	}
}

func TestSetKeyUnknown(t *testing.T) {
	if err := SetKey("nope.nope", "1"); err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "server.api_token" {
			t.Error("ValidKeys includes the api token")
		}
	}
}
