package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel    OTelConfig
	Webhook WebhookConfig
	Store   StoreConfig
	Letta   LettaConfig
	MCP     MCPConfig
	Env     string
	Port    string
}

type WebhookConfig struct {
	Secret string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// StoreConfig configures the bounded event log and its durable file.
// File is the single JSON snapshot shared between the webhook server
// and the MCP server; both processes must point at the same path.
type StoreConfig struct {
	File    string
	MaxSize int
}

type LettaConfig struct {
	BaseURL    string
	Token      string
	Project    string
	AgentID    string
	IdentityID string
}

type MCPConfig struct {
	Host string
	Port string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeMCP    ServiceType = "mcp"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the webhook server
//   - .env.mcp for the MCP tool server
//
// Falls back to .env if the service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("BUDDY_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("BUDDY_ENV", "development"),
		Port: getEnv("PORT", "5000"),
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Store: StoreConfig{
			File:    getEnv("EVENT_STORE_FILE", "events.json"),
			MaxSize: getEnvInt("EVENT_STORE_SIZE", 1000),
		},
		Letta: LettaConfig{
			BaseURL:    getEnv("LETTA_BASE_URL", ""),
			Token:      getEnv("LETTA_TOKEN", ""),
			Project:    getEnv("LETTA_PROJECT", ""),
			AgentID:    getEnv("LETTA_AGENT_ID", ""),
			IdentityID: getEnv("LETTA_IDENTITY_ID", "code_buddy"),
		},
		MCP: MCPConfig{
			Host: getEnv("MCP_HOST", "127.0.0.1"),
			Port: getEnv("MCP_PORT", "8001"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "code-buddy"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if serviceType == ServiceTypeServer && cfg.Webhook.Secret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("WEBHOOK_SECRET is required in production")
		}
		cfg.Webhook.Secret = "dev-webhook-secret"
	}

	if cfg.Store.MaxSize <= 0 {
		return Config{}, fmt.Errorf("EVENT_STORE_SIZE must be positive, got %d", cfg.Store.MaxSize)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Enabled reports whether outbound agent notifications are configured.
// The base URL and agent ID are the minimum the Letta API needs.
func (c LettaConfig) Enabled() bool {
	return c.BaseURL != "" && c.AgentID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
