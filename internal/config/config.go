// Package config loads settings from an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/grocery-keeper/internal/limiter"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the client configuration, read with prefix GROCERY_.
type Config struct {
	APIURL      string        `envconfig:"API_URL" default:"http://localhost:8080"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"15s"`
	Store       string        `envconfig:"STORE" default:"file"`
	DataDir     string        `envconfig:"DATA_DIR"`
	SealToken   bool          `envconfig:"SEAL_TOKEN" default:"true"`
	SealPass    string        `envconfig:"SEAL_PASSPHRASE"`
	PostgresDSN string        `envconfig:"POSTGRES_DSN"`
	RedisURL    string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"error"`

	LoginMaxFails int           `envconfig:"LOGIN_MAX_FAILS" default:"5"`
	LoginWindow   time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
	LoginBlock    time.Duration `envconfig:"LOGIN_BLOCK" default:"15m"`
}

// DevServer is the dev API configuration, read with prefix GROCERY_DEV_.
type DevServer struct {
	Addr      string        `envconfig:"ADDR" default:":8080"`
	JWTKey    string        `envconfig:"JWT_KEY" required:"true"`
	AccessTTL time.Duration `envconfig:"ACCESS_TTL" default:"24h"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`

	LoginMaxFails int           `envconfig:"LOGIN_MAX_FAILS" default:"5"`
	LoginWindow   time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
	LoginBlock    time.Duration `envconfig:"LOGIN_BLOCK" default:"15m"`
}

// loadDotenv reads files into the environment without overriding set variables.
// Missing files are skipped.
func loadDotenv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the client configuration. envFiles default to ".env".
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}
	var c Config
	if err := envconfig.Process("GROCERY", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreFile, StoreRedis:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: GROCERY_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.APIURL == "" {
		return errors.New("config: GROCERY_API_URL is empty")
	}
	if c.Timeout <= 0 {
		return errors.New("config: GROCERY_TIMEOUT must be positive")
	}
	return nil
}

// LoginPolicy returns the client-side login throttle policy.
func (c *Config) LoginPolicy() limiter.Policy {
	return limiter.Policy{Window: c.LoginWindow, MaxFails: c.LoginMaxFails, BlockFor: c.LoginBlock}
}

// LoadDevServer reads the dev API configuration.
func LoadDevServer(envFiles ...string) (*DevServer, error) {
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}
	var c DevServer
	if err := envconfig.Process("GROCERY_DEV", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// LoginPolicy returns the server-side login throttle policy.
func (c *DevServer) LoginPolicy() limiter.Policy {
	return limiter.Policy{Window: c.LoginWindow, MaxFails: c.LoginMaxFails, BlockFor: c.LoginBlock}
}

// NewLogger builds a JSON zap logger writing to stderr at level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
