package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-jwt-secret"

type Config struct {
	Env       string
	Addr      string
	APIPrefix string
	DB        DB
	JWT       JWT
	Upload    Upload
	CORS      []string
	RateLimit RateLimit
}

type DB struct {
	Driver string // sqlite | mysql
	DSN    string
}

type JWT struct {
	Secret string
	TTL    time.Duration
}

type Upload struct {
	Path    string
	MaxSize int64
}

type RateLimit struct {
	Window time.Duration
	Max    int
}

// Load reads the process environment, after merging a .env file when one
// exists. Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	addr := envString("BLOG_ADDR", "")
	if addr == "" {
		addr = ":" + envString("PORT", "5000")
	}

	return Config{
		Env:       envString("APP_ENV", "development"),
		Addr:      addr,
		APIPrefix: envString("API_PREFIX", "/api/v1"),
		DB: DB{
			Driver: envString("DB_DRIVER", "sqlite"),
			DSN:    envString("DB_DSN", "blog.db"),
		},
		JWT: JWT{
			Secret: envString("JWT_SECRET", defaultJWTSecret),
			TTL:    envDuration("JWT_EXPIRE", 7*24*time.Hour),
		},
		Upload: Upload{
			Path:    envString("UPLOAD_PATH", "uploads"),
			MaxSize: envInt64("MAX_FILE_SIZE", 5*1024*1024),
		},
		CORS: envList("CORS_ORIGIN", []string{"http://localhost:3000", "http://localhost:3003"}),
		RateLimit: RateLimit{
			Window: envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:    envInt("RATE_LIMIT_MAX", 100),
		},
	}
}

func (c Config) Production() bool {
	return c.Env == "production"
}

// Validate rejects settings that are only acceptable for local development.
func (c Config) Validate() error {
	if c.Production() && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_EXPIRE must be positive")
	}
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		return errors.New("DB_DRIVER must be sqlite or mysql")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// ParseDuration accepts Go durations plus a whole-day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
