package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/station-compliance-api/pkg/config"
)

const (
	clientName   = "station-compliance-api"
	dialTimeout  = 3 * time.Second
	ioTimeout    = 2 * time.Second
	minIdleConns = 2
)

// Options maps cfg onto go-redis options for the aggregate cache.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		MinIdleConns: minIdleConns,
	}
}

// DialAggregateCache connects to the Redis instance backing the station aggregate cache.
func DialAggregateCache(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := Options(cfg)
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("aggregate cache at %s unreachable: %w", opts.Addr, err)
	}
	return client, nil
}
