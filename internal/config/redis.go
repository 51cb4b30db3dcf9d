package config

// Redis is used for the credential endpoint rate limiter and the response
// cache.  When the server cannot be reached at startup NewRedisClient
// returns nil and callers degrade gracefully.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds connection settings.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"  envDefault:"true"`
	Addr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS"      envDefault:"false"`
}

// LoadRedisConfig parses the Redis settings.
func LoadRedisConfig() (RedisConfig, error) {
	var c RedisConfig
	if err := env.Parse(&c); err != nil {
		return RedisConfig{}, fmt.Errorf("config: parse redis env: %w", err)
	}
	return c, nil
}

// Address resolves the host:port to dial.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient builds a client from cfg and pings it with a short
// timeout.  It returns nil when Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, cache and distributed rate limit disabled",
			zap.String("addr", cfg.Address()), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
