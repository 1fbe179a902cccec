package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jwalitptl/client-dashboard/internal/model"
)

const envPrefix = "DASHBOARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Session   SessionConfig   `mapstructure:"session"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port       int             `mapstructure:"port" validate:"min=1,max=65535"`
	RenderWait time.Duration   `mapstructure:"render_wait" validate:"gte=0"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"rps" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"min=1"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
	// HalfOpenRequests must cover a mount burst: the catalog, one count per
	// gender and the client list.
	HalfOpenRequests int `mapstructure:"half_open_requests" validate:"min=1"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

type DashboardConfig struct {
	UserName         string             `mapstructure:"user_name"`
	CompactLayout    bool               `mapstructure:"compact_layout"`
	SequentialCounts bool               `mapstructure:"sequential_counts"`
	AgeBrackets      []model.AgeBracket `mapstructure:"age_brackets" validate:"dive"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.render_wait", 3*time.Second)
	v.SetDefault("server.rate_limit.rps", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
	v.SetDefault("breaker.half_open_requests", 10)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", 5*time.Minute)
	v.SetDefault("dashboard.user_name", "Admin User")
	v.SetDefault("dashboard.compact_layout", false)
	v.SetDefault("dashboard.sequential_counts", false)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from the working directory or ./config when
// present, or the file at path when path is not empty. Environment variables
// prefixed with DASHBOARD_ override file values (DASHBOARD_API_BASE_URL).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Dashboard.AgeBrackets) == 0 {
		config.Dashboard.AgeBrackets = model.DefaultAgeBrackets()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and that every age bracket is well formed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, b := range c.Dashboard.AgeBrackets {
		if b.ID == "" || b.Label == "" {
			return fmt.Errorf("invalid config: age bracket %d-%d needs an id and a label", b.Min, b.Max)
		}
		if b.Min < 0 || b.Min > b.Max {
			return fmt.Errorf("invalid config: age bracket %q has bounds %d-%d", b.ID, b.Min, b.Max)
		}
	}
	return nil
}
