package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv("VIBE_API_BASE", "")
	t.Setenv("VIBE_TOKEN", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL() != "https://api.vibe.app" {
		t.Fatalf("unexpected api base: %q", cfg.APIBaseURL())
	}
	if cfg.SocketBaseURL() != "wss://api.vibe.app" {
		t.Fatalf("unexpected socket base: %q", cfg.SocketBaseURL())
	}
	if cfg.DefaultModel() != "sonnet" || cfg.HistoryPageSize() != 20 {
		t.Fatalf("unexpected chat defaults: %q / %d", cfg.DefaultModel(), cfg.HistoryPageSize())
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	t.Setenv("VIBE_API_BASE", "")

	dataDir := filepath.Join(home, ".vibe")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte("[server]\napi_base = \"http://127.0.0.1:8080/\"\n\n[chat]\ndefault_model = \"opus\"\npage_size = 5\n")
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL() != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected api base: %q", cfg.APIBaseURL())
	}
	if cfg.SocketBaseURL() != "ws://127.0.0.1:8080" {
		t.Fatalf("socket base must follow the api scheme, got %q", cfg.SocketBaseURL())
	}
	if cfg.DefaultModel() != "opus" || cfg.HistoryPageSize() != 5 {
		t.Fatalf("unexpected chat settings: %q / %d", cfg.DefaultModel(), cfg.HistoryPageSize())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv("VIBE_API_BASE", "https://staging.vibe.app")
	t.Setenv("VIBE_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL() != "https://staging.vibe.app" {
		t.Fatalf("env override not applied: %q", cfg.APIBaseURL())
	}
	if cfg.Token() != "env-token" {
		t.Fatalf("token override not applied: %q", cfg.Token())
	}
}

func TestTokenFallsBackToFile(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	t.Setenv("VIBE_TOKEN", "")

	dataDir := filepath.Join(home, ".vibe")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "token"), []byte("  file-token\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token() != "file-token" {
		t.Fatalf("expected trimmed file token, got %q", cfg.Token())
	}
}

func TestModelsNormalized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chat.Models = []string{" sonnet ", "", "opus", "sonnet"}
	models := cfg.Models()
	if len(models) != 2 || models[0] != "sonnet" || models[1] != "opus" {
		t.Fatalf("unexpected models: %v", models)
	}
}
