package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventSubjectBase string
	ResultCacheTTL   time.Duration

	GatewayBaseURL string
	GatewayToken   string
	GatewayTimeout time.Duration

	DefaultBranch        string
	CIUserName           string
	CIUserEmail          string
	CISetupCommitMessage string
	CombineCommitsLead   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADIA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Gradia API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("event.subject_base", "gradia.results")
	v.SetDefault("result.cache_ttl", "10m")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("default_branch", "main")
	v.SetDefault("ci.user_name", "gradia-ci")
	v.SetDefault("ci.user_email", "ci@gradia.local")
	v.SetDefault("ci.setup_commit_message", "Setup")
	v.SetDefault("combine_commits_lead", "15s")

	ttl, err := parseDuration(v, "result.cache_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid result cache ttl: %w", err)
	}

	gatewayTimeout, err := parseDuration(v, "gateway.timeout", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	combineLead, err := parseDuration(v, "combine_commits_lead", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid combine commits lead: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventSubjectBase: v.GetString("event.subject_base"),
		ResultCacheTTL:   ttl,

		GatewayBaseURL: v.GetString("gateway.base_url"),
		GatewayToken:   v.GetString("gateway.token"),
		GatewayTimeout: gatewayTimeout,

		DefaultBranch:        v.GetString("default_branch"),
		CIUserName:           v.GetString("ci.user_name"),
		CIUserEmail:          v.GetString("ci.user_email"),
		CISetupCommitMessage: v.GetString("ci.setup_commit_message"),
		CombineCommitsLead:   combineLead,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	return time.ParseDuration(raw)
}
