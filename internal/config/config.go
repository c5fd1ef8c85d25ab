// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

// Transport kinds accepted by ClientConfig.Transport.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// ServerConfig holds the stream server configuration.
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"4000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Stream          StreamConfig
	RateLimit       RateLimitConfig
}

// StreamConfig controls chunk generation.
type StreamConfig struct {
	ChunkCount    int           `env:"STREAM_CHUNK_COUNT" envDefault:"3"`
	ChunkInterval time.Duration `env:"STREAM_CHUNK_INTERVAL" envDefault:"800ms"`
}

// RateLimitConfig controls per-IP stream admission.
type RateLimitConfig struct {
	RequestsPerWindow int           `env:"STREAM_RATE_LIMIT" envDefault:"30"`
	WindowDuration    time.Duration `env:"STREAM_RATE_WINDOW" envDefault:"1m"`
}

// ClientConfig holds the replay client configuration.
type ClientConfig struct {
	ServerURL    string   `env:"CAMPAIGN_SERVER_URL" envDefault:"http://localhost:4000"`
	Transport    string   `env:"CAMPAIGN_TRANSPORT" envDefault:"sse"`
	SessionID    string   `env:"CAMPAIGN_SESSION_ID"`
	CampaignName string   `env:"CAMPAIGN_NAME" envDefault:"September Sales Clearing"`
	Objective    string   `env:"CAMPAIGN_OBJECTIVE" envDefault:"conversion"`
	Sources      []string `env:"CAMPAIGN_SOURCES" envSeparator:","`
	Channels     []string `env:"CAMPAIGN_CHANNELS" envDefault:"email" envSeparator:","`
	ExportDir    string   `env:"CAMPAIGN_EXPORT_DIR" envDefault:"."`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
	Typing       TypingConfig
}

// TypingConfig controls the bubble reveal timing.
type TypingConfig struct {
	Seed          int64         `env:"TYPING_SEED" envDefault:"0"` // 0 = random seed
	StartDelayMax time.Duration `env:"TYPING_START_DELAY_MAX" envDefault:"800ms"`
	CadenceMin    time.Duration `env:"TYPING_CADENCE_MIN" envDefault:"20ms"`
	CadenceMax    time.Duration `env:"TYPING_CADENCE_MAX" envDefault:"60ms"`
}

// LoadDotEnv loads a .env file into the environment if one exists. It reports
// whether a file was loaded.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// LoadServer reads server configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Stream.ChunkCount <= 0 {
		return fmt.Errorf("STREAM_CHUNK_COUNT must be > 0")
	}
	if c.Stream.ChunkInterval <= 0 {
		return fmt.Errorf("STREAM_CHUNK_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("STREAM_RATE_LIMIT must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("STREAM_RATE_WINDOW must be > 0")
	}
	return nil
}

// LoadClient reads client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("CAMPAIGN_SERVER_URL cannot be empty")
	}
	switch c.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("CAMPAIGN_TRANSPORT must be %q or %q", TransportSSE, TransportWebSocket)
	}
	if _, err := domain.ParseObjective(c.Objective); err != nil {
		return fmt.Errorf("CAMPAIGN_OBJECTIVE: %w", err)
	}
	if c.Typing.StartDelayMax < 0 {
		return fmt.Errorf("TYPING_START_DELAY_MAX must be >= 0")
	}
	if c.Typing.CadenceMin <= 0 || c.Typing.CadenceMax < c.Typing.CadenceMin {
		return fmt.Errorf("TYPING_CADENCE_MIN must be > 0 and <= TYPING_CADENCE_MAX")
	}
	return nil
}

// Request builds the campaign request described by the configuration.
func (c *ClientConfig) Request() domain.CampaignRequest {
	objective, err := domain.ParseObjective(c.Objective)
	if err != nil {
		objective = domain.ObjectiveConversion
	}
	return domain.NewCampaignRequest(c.CampaignName, objective, c.Sources, c.Channels)
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
