package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, ".vibe") {
		t.Fatalf("unexpected data dir: %s", dataDir)
	}

	configPath, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if !strings.HasSuffix(configPath, filepath.Join(".vibe", "config.toml")) {
		t.Fatalf("unexpected config path: %s", configPath)
	}

	tokenPath, err := TokenPath()
	if err != nil {
		t.Fatalf("TokenPath: %v", err)
	}
	if !strings.HasSuffix(tokenPath, filepath.Join(".vibe", "token")) {
		t.Fatalf("unexpected token path: %s", tokenPath)
	}

	statePath, err := StatePath()
	if err != nil {
		t.Fatalf("StatePath: %v", err)
	}
	if !strings.HasSuffix(statePath, filepath.Join(".vibe", "state.db")) {
		t.Fatalf("unexpected state path: %s", statePath)
	}

	logPath, err := LogPath()
	if err != nil {
		t.Fatalf("LogPath: %v", err)
	}
	if !strings.HasSuffix(logPath, filepath.Join(".vibe", "vibe.log")) {
		t.Fatalf("unexpected log path: %s", logPath)
	}
}
