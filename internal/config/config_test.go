package config

import (
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "WEBSOCKET_HOST", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_AUDIO_CHUNKS", "INTERVIEWER_ENGINE"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.WebSocketHost != "ws://localhost:8000" {
		t.Fatalf("unexpected websocket host: %s", cfg.Server.WebSocketHost)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.RateLimit.RequestsPerMinute != 60 {
		t.Fatalf("unexpected request limit: %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.RateLimit.AudioChunksPerMinute != 300 {
		t.Fatalf("unexpected audio chunk limit: %d", cfg.RateLimit.AudioChunksPerMinute)
	}
	if cfg.Engine.Name != "mock" {
		t.Fatalf("unexpected engine: %s", cfg.Engine.Name)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("WEBSOCKET_HOST", "wss://ws.example.com/")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")
	t.Setenv("RATE_LIMIT_AUDIO_CHUNKS", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.WebSocketHost != "wss://ws.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.Server.WebSocketHost)
	}
	if cfg.RateLimit.RequestsPerMinute != 10 || cfg.RateLimit.AudioChunksPerMinute != 42 {
		t.Fatalf("unexpected limits: %+v", cfg.RateLimit)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"port with space", "PORT", "80 80"},
		{"port above range", "PORT", "99999"},
		{"port zero", "PORT", "0"},
		{"non-numeric request limit", "RATE_LIMIT_REQUESTS", "ten"},
		{"negative audio chunk limit", "RATE_LIMIT_AUDIO_CHUNKS", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadAcceptsExplicitAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
}
