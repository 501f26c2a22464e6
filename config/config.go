package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Monnify   MonnifyConfig
	Webhook   WebhookConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	PublicBaseURL  string // e.g. https://pay.example.com - used to build the gateway redirect URL
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type DatabaseConfig struct {
	Driver          string // mysql, postgres or sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// MonnifyConfig is the file/env fallback for gateway credentials.
// Values stored in system_settings take precedence at startup.
type MonnifyConfig struct {
	Mode         string // test or live
	APIKey       string
	SecretKey    string
	ContractCode string
	SandboxURL   string
	LiveURL      string
	Timeout      time.Duration
}

type WebhookConfig struct {
	AllowedIPs []string
	// StrictReverify refuses to settle from a signed webhook when the status re-check cannot reach the gateway.
	StrictReverify bool
}

type QueueConfig struct {
	Region      string
	AccessKey   string
	Secret      string
	SQSQueueURL string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:           envString("PORT", "8099"),
			Env:            envString("SERVER_ENV", "development"),
			PublicBaseURL:  strings.TrimRight(envString("PUBLIC_BASE_URL", "http://localhost:8099"), "/"),
			TrustedProxies: envList("TRUSTED_PROXIES", nil),
			ReadTimeout:    envDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   envDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          envString("DB_DRIVER", "mysql"),
			DSN:             envString("DB_DSN", "paysettle:paysettle@tcp(localhost:3306)/paysettle?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret: envString("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: envDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			Issuer:       envString("JWT_ISSUER", "paysettle"),
		},
		Monnify: MonnifyConfig{
			Mode:         envString("MONNIFY_MODE", "test"),
			APIKey:       envString("MONNIFY_API_KEY", ""),
			SecretKey:    envString("MONNIFY_SECRET_KEY", ""),
			ContractCode: envString("MONNIFY_CONTRACT_CODE", ""),
			SandboxURL:   envString("MONNIFY_SANDBOX_URL", "https://sandbox.monnify.com"),
			LiveURL:      envString("MONNIFY_LIVE_URL", "https://api.monnify.com"),
			Timeout:      envDuration("MONNIFY_TIMEOUT", 15*time.Second),
		},
		Webhook: WebhookConfig{
			// Monnify's published webhook source address. Set WEBHOOK_ALLOWED_IPS= (empty) to disable the check.
			AllowedIPs:     envList("WEBHOOK_ALLOWED_IPS", []string{"35.242.133.146"}),
			StrictReverify: envBool("WEBHOOK_STRICT_REVERIFY", false),
		},
		Queue: QueueConfig{
			Region:      envString("AWS_REGION", "eu-west-1"),
			AccessKey:   envString("AWS_ACCESS_KEY_ID", ""),
			Secret:      envString("AWS_SECRET_ACCESS_KEY", ""),
			SQSQueueURL: envString("PAYMENT_EVENTS_QUEUE_URL", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 100),
			Burst:             envInt("RATE_LIMIT_BURST", 20),
		},
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// envDuration accepts Go durations ("15s") or plain seconds ("15").
func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	if secs, err := cast.ToIntE(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}

// envList splits a comma separated value. A variable that is set but empty yields an empty list.
func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
