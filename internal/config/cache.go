package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  Prefix namespaces the keys so writes can purge
// every cached listing of a resource.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED"        envDefault:"true"`
	Methods      []string      `env:"CACHE_METHODS"        envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"CACHE_TTL"            envDefault:"30s"`
	Prefix       string        `env:"CACHE_PREFIX"         envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := env.Parse(&c); err != nil {
		return CacheConfig{}, fmt.Errorf("config: parse cache env: %w", err)
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c, nil
}

// Caches reports whether responses to the given method are cacheable.
func (c CacheConfig) Caches(method string) bool {
	for _, m := range c.Methods {
		if strings.EqualFold(strings.TrimSpace(m), method) {
			return true
		}
	}
	return false
}
