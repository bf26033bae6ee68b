package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the review service. It is constructed
// once by LoadConfig and must be treated as read-only afterwards; components
// receive the fields they need at construction instead of reading the
// environment themselves.
type Config struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    slog.Level

	// AllowedOrigins is the CORS allow-list. "*" allows everything.
	// FrontendURL, when set, is appended to the list.
	AllowedOrigins []string
	FrontendURL    string

	// EnableTestRoutes mounts the unauthenticated maintenance routes even in
	// production. Unsafe outside testing; non-production environments get
	// them regardless.
	EnableTestRoutes bool

	Auth     AuthConfig
	Database DatabaseConfig
	RedisURL string
	Kafka    KafkaConfig
	Jira     JiraConfig
}

// AuthConfig groups token signing and session lifetime settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required; startup fails without it.
	JWTSecret string

	// TokenTTL bounds the JWT itself. Sessions are revoked server-side
	// before this matters in practice.
	TokenTTL time.Duration

	// SessionIdleTimeout expires a session after inactivity.
	SessionIdleTimeout time.Duration

	// SessionAbsoluteTTL is the hard ceiling on session age, fixed at
	// creation. Activity never extends it.
	SessionAbsoluteTTL time.Duration

	// SessionCleanupInterval is how often the background job purges
	// expired session rows.
	SessionCleanupInterval time.Duration

	// LoginRatePerMinute and LoginBurst bound login attempts per client IP.
	LoginRatePerMinute int
	LoginBurst         int
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type KafkaConfig struct {
	Brokers []string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// JiraConfig holds credentials for the Jira statistics sync. All of BaseURL,
// Email and APIToken must be set for the integration to be active.
type JiraConfig struct {
	BaseURL          string
	Email            string
	APIToken         string
	ProjectKey       string
	StoryPointsField string
}

func (j JiraConfig) Enabled() bool {
	return j.BaseURL != "" && j.Email != "" && j.APIToken != ""
}

// LoadConfig reads configuration from the environment (and .env if present).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		FrontendURL:      getEnv("FRONTEND_URL", ""),
		EnableTestRoutes: getBool("ENABLE_TEST_ROUTES", false),

		Auth: AuthConfig{
			JWTSecret:              os.Getenv("JWT_SECRET"),
			TokenTTL:               getDuration("JWT_TOKEN_TTL", 12*time.Hour),
			SessionIdleTimeout:     getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SessionAbsoluteTTL:     getDuration("SESSION_ABSOLUTE_TTL", 12*time.Hour),
			SessionCleanupInterval: getDuration("SESSION_CLEANUP_INTERVAL", time.Hour),
			LoginRatePerMinute:     getInt("LOGIN_RATE_PER_MINUTE", 10),
			LoginBurst:             getInt("LOGIN_BURST", 5),
		},

		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "review_service"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		RedisURL: getEnv("REDIS_URL", ""),

		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
		},

		Jira: JiraConfig{
			BaseURL:          getEnv("JIRA_BASE_URL", ""),
			Email:            getEnv("JIRA_EMAIL", ""),
			APIToken:         getEnv("JIRA_API_TOKEN", ""),
			ProjectKey:       getEnv("JIRA_PROJECT_KEY", ""),
			StoryPointsField: getEnv("JIRA_STORY_POINTS_FIELD", "customfield_10016"),
		},
	}

	origins := splitList(getEnv("ALLOWED_ORIGINS", ""))
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	cfg.AllowedOrigins = origins

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Auth.SessionIdleTimeout <= 0 || cfg.Auth.SessionAbsoluteTTL <= 0 {
		return nil, fmt.Errorf("session timeouts must be positive")
	}
	if cfg.Auth.SessionIdleTimeout > cfg.Auth.SessionAbsoluteTTL {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT (%s) exceeds SESSION_ABSOLUTE_TTL (%s)",
			cfg.Auth.SessionIdleTimeout, cfg.Auth.SessionAbsoluteTTL)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TestRoutesEnabled reports whether the unauthenticated maintenance routes
// should be mounted.
func (c *Config) TestRoutesEnabled() bool {
	return c.EnableTestRoutes || !c.IsProduction()
}

// CORSAllowAll reports whether the allow-list contains the wildcard.
func (c *Config) CORSAllowAll() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}
