package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Argon2       Argon2Config
	Verification VerificationConfig
	RateLimit    RateLimitConfig
	Lockout      LockoutConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	CookieSecure bool
	SecureDev    bool // relaxes unrolled/secure for local HTTP
}

// DatabaseConfig: an empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string
}

// RedisConfig: when URL is set, the rate limiter and the email queue use Redis.
type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	PrivateKeyPath string // RS256 when set
	Secret         string // HS256 otherwise
	Issuer         string
	Audience       string
	SessionTTL     time.Duration
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	Concurrency int // concurrent hashes; 0 = GOMAXPROCS
}

type VerificationConfig struct {
	Mode    string // link | otp
	BaseURL string
}

type RateLimitConfig struct {
	Requests int64
	Window   time.Duration
}

type LockoutConfig struct {
	MaxAttempts     int
	CooldownSeconds int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SECURE_DEV", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY_PATH", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "authhub")
	v.SetDefault("JWT_AUDIENCE", "authhub")
	v.SetDefault("SESSION_TTL", 604800)
	v.SetDefault("ARGON2_MEMORY", 64*1024)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("HASH_CONCURRENCY", 0)
	v.SetDefault("VERIFICATION_MODE", "link")
	v.SetDefault("VERIFICATION_BASE_URL", "http://localhost:8080")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCKOUT_SECONDS", 900)
}

// Load reads the environment, and CONFIG_FILE when set. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			ReadTimeout:  v.GetDuration("READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("WRITE_TIMEOUT"),
			CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
			CookieSecure: v.GetBool("COOKIE_SECURE"),
			SecureDev:    v.GetBool("SECURE_DEV"),
		},
		Database: DatabaseConfig{URL: v.GetString("DATABASE_URL")},
		Redis:    RedisConfig{URL: v.GetString("REDIS_URL")},
		JWT: JWTConfig{
			PrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
			Secret:         v.GetString("JWT_SECRET"),
			Issuer:         v.GetString("JWT_ISSUER"),
			Audience:       v.GetString("JWT_AUDIENCE"),
			SessionTTL:     time.Duration(v.GetInt64("SESSION_TTL")) * time.Second,
		},
		Argon2: Argon2Config{
			Memory:      uint32(v.GetInt("ARGON2_MEMORY")),
			Iterations:  uint32(v.GetInt("ARGON2_ITERATIONS")),
			Parallelism: uint8(v.GetInt("ARGON2_PARALLELISM")),
			Concurrency: v.GetInt("HASH_CONCURRENCY"),
		},
		Verification: VerificationConfig{
			Mode:    v.GetString("VERIFICATION_MODE"),
			BaseURL: v.GetString("VERIFICATION_BASE_URL"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt64("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Lockout: LockoutConfig{
			MaxAttempts:     v.GetInt("LOGIN_MAX_ATTEMPTS"),
			CooldownSeconds: v.GetInt("LOGIN_LOCKOUT_SECONDS"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.PrivateKeyPath == "" && c.JWT.Secret == "" {
		return errors.New("JWT_PRIVATE_KEY_PATH or JWT_SECRET is required")
	}
	if c.JWT.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	switch strings.ToLower(c.Verification.Mode) {
	case "link", "otp":
	default:
		return fmt.Errorf("VERIFICATION_MODE must be link or otp, got %q", c.Verification.Mode)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadJWTPrivateKey reads the PEM file and returns its contents.
func (c *Config) LoadJWTPrivateKey() ([]byte, error) {
	if c.JWT.PrivateKeyPath == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}
	return os.ReadFile(c.JWT.PrivateKeyPath)
}
