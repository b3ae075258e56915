package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerURL != "http://127.0.0.1:8080" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("timeout = %v, want 10s", cfg.HTTPTimeout)
	}
	if cfg.NormalizeText {
		t.Fatalf("normalize text should default to off")
	}
	if cfg.TokenFile == "" || cfg.HistoryDB == "" {
		t.Fatalf("state paths must have defaults: %+v", cfg)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MEDATLAS_SERVER_URL", "https://api.medatlas.example")
	t.Setenv("MEDATLAS_HTTP_TIMEOUT", "3s")
	t.Setenv("MEDATLAS_NORMALIZE_TEXT", "true")
	t.Setenv("MEDATLAS_TOKEN_FILE", "/tmp/medatlas-token")

	cfg := Load()
	if cfg.ServerURL != "https://api.medatlas.example" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("timeout = %v, want 3s", cfg.HTTPTimeout)
	}
	if !cfg.NormalizeText {
		t.Fatalf("normalize text not picked up")
	}
	if cfg.TokenFile != "/tmp/medatlas-token" {
		t.Fatalf("token file = %q", cfg.TokenFile)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MEDATLAS_HTTP_TIMEOUT", "soon")
	t.Setenv("MEDATLAS_NORMALIZE_TEXT", "maybe")
	t.Setenv("MEDATLAS_SERVER_URL", "   ")

	cfg := Load()
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("bad duration should fall back, got %v", cfg.HTTPTimeout)
	}
	if cfg.NormalizeText {
		t.Fatalf("bad bool should fall back to off")
	}
	if cfg.ServerURL != "http://127.0.0.1:8080" {
		t.Fatalf("blank server url should fall back, got %q", cfg.ServerURL)
	}
}
