package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; durations use Go syntax (e.g. "24h", "10m").
type Config struct {
	Env      string `env:"APP_ENV"   envDefault:"dev"`  // application environment (dev/test/prod)
	Port     string `env:"APP_PORT"  envDefault:"3000"` // HTTP port to listen on
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // zap level name

	DatabaseConfig

	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`                   // secret used to sign access tokens
	AccessTTL       time.Duration `env:"ACCESS_TOKEN_TTL"           envDefault:"24h"`   // access token lifetime
	RefreshTTL      time.Duration `env:"REFRESH_TOKEN_TTL"          envDefault:"336h"`  // refresh token lifetime (14 days)
	RotateWindow    time.Duration `env:"ACCESS_TOKEN_ROTATE_WINDOW" envDefault:"10m"`   // re-login inside this window rotates the access token
	ConflictBackoff time.Duration `env:"SESSION_CONFLICT_BACKOFF"   envDefault:"100ms"` // pause before the single conflict retry
	BcryptCost      int           `env:"BCRYPT_COST"                envDefault:"10"`    // bcrypt cost for password hashing

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`                  // per request DB budget
	CORSOrigins    []string      `env:"CORS_ORIGINS"    envDefault:"*" envSeparator:","` // allowed origins
}

// Load reads the optional .env file, parses the environment into a Config
// and validates it.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding ones already set.  Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.RotateWindow < 0 || c.RotateWindow >= c.AccessTTL {
		return errors.New("config: ACCESS_TOKEN_ROTATE_WINDOW must be within the access token lifetime")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST %d out of range", c.BcryptCost)
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}
