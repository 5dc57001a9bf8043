package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	Engine    EngineConfig
}

// ServerConfig describes the HTTP listener and the externally visible hosts.
type ServerConfig struct {
	Addr string
	// AllowedOrigins is the cross-origin allow list; "*" means open.
	AllowedOrigins []string
	// WebSocketHost is the advertised channel base, e.g. "ws://localhost:8000".
	// start_interview embeds it in the websocketUrl it hands back.
	WebSocketHost string
}

// RateLimitConfig carries the per-minute sliding-window limits.
type RateLimitConfig struct {
	RequestsPerMinute    int
	AudioChunksPerMinute int
}

// EngineConfig selects the interviewer engine implementation.
type EngineConfig struct {
	Name string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:    server,
		RateLimit: rateLimit,
		Engine: EngineConfig{
			Name: getEnvOrDefault("INTERVIEWER_ENGINE", "mock"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.AudioChunksPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUDIO_CHUNKS must be positive, got %d", c.RateLimit.AudioChunksPerMinute)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must not be empty")
	}
	if c.Engine.Name == "" {
		return fmt.Errorf("INTERVIEWER_ENGINE must not be empty")
	}
	return nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	addr := port
	if !strings.Contains(port, ":") {
		// Allow a bare port as well as ":8000" or "127.0.0.1:8000".
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
		}
		if n < 1 || n > 65535 {
			return ServerConfig{}, fmt.Errorf("PORT %d out of range [1, 65535]", n)
		}
		addr = ":" + port
	}

	origins := splitAndTrim(getEnvOrDefault("ALLOWED_ORIGINS", "*"))

	wsHost := strings.TrimSpace(os.Getenv("WEBSOCKET_HOST"))
	if wsHost == "" {
		wsHost = "ws://localhost" + ensureLeadingColon(addr)
	}
	wsHost = strings.TrimRight(wsHost, "/")

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: origins,
		WebSocketHost:  wsHost,
	}, nil
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	requests, err := parseIntEnv("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return RateLimitConfig{}, err
	}

	chunks, err := parseIntEnv("RATE_LIMIT_AUDIO_CHUNKS", 300)
	if err != nil {
		return RateLimitConfig{}, err
	}

	return RateLimitConfig{
		RequestsPerMinute:    requests,
		AudioChunksPerMinute: chunks,
	}, nil
}

// ensureLeadingColon extracts the ":port" suffix from addr for default host
// derivation.
func ensureLeadingColon(addr string) string {
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		return addr[idx:]
	}
	return ":" + addr
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
