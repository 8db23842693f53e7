package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	// DefaultSessionSecret debe coincidir con el envDefault de SessionSecret.
	DefaultSessionSecret = "change-me-in-production"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort     string `env:"HTTP_PORT" envDefault:"3000"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir      string `env:"DATA_DIR" envDefault:"."`
	DatabaseURL  string `env:"DATABASE_URL"`
	StaticDir    string `env:"STATIC_DIR"`

	// TrustedProxies vacío: X-Forwarded-For se ignora y la IP del cliente es la del socket.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	SessionSecret        string        `env:"SESSION_SECRET" envDefault:"change-me-in-production"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	CookieName           string        `env:"COOKIE_NAME" envDefault:"sid"`
	CookieSecure         bool          `env:"COOKIE_SECURE" envDefault:"false"`

	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	AdminKey        string        `env:"ADMIN_KEY"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"10m"`
	LoginRateMax    int           `env:"LOGIN_RATE_MAX" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que dejarían el servicio en un estado inconsistente.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: DATA_DIR is empty", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: BCRYPT_COST must be between %d and %d", ErrInvalidConfig, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionTTL <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("%w: session durations must be positive", ErrInvalidConfig)
	}
	if c.LoginRateWindow <= 0 || c.LoginRateMax <= 0 {
		return fmt.Errorf("%w: login rate limits must be positive", ErrInvalidConfig)
	}
	if c.CookieName == "" {
		return fmt.Errorf("%w: COOKIE_NAME is empty", ErrInvalidConfig)
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("%w: TRUSTED_PROXIES entry %q is not an IP or CIDR", ErrInvalidConfig, proxy)
		}
	}
	return nil
}

// ConsoleConfig es la configuración de la consola de administración.
type ConsoleConfig struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:3000"`
	AdminKey   string `env:"ADMIN_KEY"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadConsoleConfig carga la configuración de la consola desde variables de entorno.
func LoadConsoleConfig() (*ConsoleConfig, error) {
	var cfg ConsoleConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("%w: API_BASE_URL is empty", ErrInvalidConfig)
	}
	return &cfg, nil
}
