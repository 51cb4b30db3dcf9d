package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// RateLimitConfig configures the token bucket guarding the credential
// endpoints (login, refresh).  Capacity is the burst size; RefillTokens are
// added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED"         envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY"        envDefault:"10"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS"   envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"6s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL"             envDefault:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY"    envDefault:"ip_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX"          envDefault:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG"           envDefault:"false"`
}

// LoadRateLimitConfig parses the rate limit settings and clamps them to
// usable values.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	var c RateLimitConfig
	if err := env.Parse(&c); err != nil {
		return RateLimitConfig{}, fmt.Errorf("config: parse rate limit env: %w", err)
	}
	c.normalize()
	return c, nil
}

func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// keep the bucket alive long enough to refill at least a few times
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
