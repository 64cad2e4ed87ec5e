// Package config loads the server's settings from the environment.
//
// LOADING ORDER:
//  1. An optional .env file is read with godotenv. Variables that are
//     already set in the process environment win over the file.
//  2. cleanenv fills the typed Config struct from the environment, applying
//     env-default values and failing on missing env-required ones.
//  3. Validate checks cross-field rules cleanenv can't express.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultEnvFile is loaded when present; a missing default file is not an error.
const DefaultEnvFile = ".env"

type Config struct {
	Env        string `env:"APP_ENV" env-default:"local"`
	HTTPServer HTTPServer
	DB         DB
	JWT        JWT
	Bcrypt     Bcrypt
	SignIn     SignIn
	Loans      Loans
}

type HTTPServer struct {
	Port         string        `env:"PORT" env-default:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DB struct {
	Driver string `env:"DB_DRIVER" env-default:"sqlite"`
	Path   string `env:"DB_PATH" env-default:"library.db"`
	URL    string `env:"DATABASE_URL"`
}

type JWT struct {
	Secret         string        `env:"JWT_SECRET" env-required:"true"`
	Algorithm      string        `env:"JWT_ALGORITHM" env-default:"HS256"`
	Issuer         string        `env:"JWT_ISSUER" env-default:"library-api"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"1h"`
	Leeway         time.Duration `env:"JWT_LEEWAY" env-default:"0s"`
}

type Bcrypt struct {
	Cost int `env:"BCRYPT_COST" env-default:"12"`
}

// SignIn configures failed sign-in throttling. RedisURL empty means the
// in-memory limiter.
//
// TrustedProxy makes the server take the client address from
// X-Forwarded-For / X-Real-IP. Only enable it behind a proxy that
// overwrites those headers; otherwise any caller can pick their own
// throttle key.
type SignIn struct {
	RedisURL     string        `env:"REDIS_URL"`
	MaxAttempts  int           `env:"SIGNIN_MAX_ATTEMPTS" env-default:"5"`
	Window       time.Duration `env:"SIGNIN_WINDOW" env-default:"15m"`
	Lockout      time.Duration `env:"SIGNIN_LOCKOUT" env-default:"10m"`
	TrustedProxy bool          `env:"TRUSTED_PROXY" env-default:"false"`
}

type Loans struct {
	Period time.Duration `env:"LOAN_PERIOD" env-default:"336h"`
}

// Load reads envFile (if any) and the environment into a Config.
//
// An explicitly named envFile must exist. An empty envFile means
// DefaultEnvFile, which is skipped silently when missing.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that panics. Used from main only.
func MustLoad(envFile string) *Config {
	cfg, err := Load(envFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load(DefaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", DefaultEnvFile, err)
		}
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// Validate checks the rules that cleanenv tags can't express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, prod (got %q)", c.Env))
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres (got %q)", c.DB.Driver))
	}

	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be HS256, HS384 or HS512 (got %q)", c.JWT.Algorithm))
	}
	if c.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_TTL must be positive"))
	}
	if c.JWT.Leeway < 0 {
		errs = append(errs, errors.New("JWT_LEEWAY must not be negative"))
	}

	if c.Bcrypt.Cost < 4 || c.Bcrypt.Cost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31 (got %d)", c.Bcrypt.Cost))
	}

	if c.SignIn.MaxAttempts < 1 {
		errs = append(errs, errors.New("SIGNIN_MAX_ATTEMPTS must be at least 1"))
	}
	if c.SignIn.Window <= 0 || c.SignIn.Lockout <= 0 {
		errs = append(errs, errors.New("SIGNIN_WINDOW and SIGNIN_LOCKOUT must be positive"))
	}

	if c.Loans.Period <= 0 {
		errs = append(errs, errors.New("LOAN_PERIOD must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return ":" + c.HTTPServer.Port
}
