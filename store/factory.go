package store

import (
	"context"
	"fmt"

	"github.com/rushteam/modelcon/config"
	"github.com/rushteam/modelcon/core"
)

// NewSink 按配置创建推荐结果 Sink。
func NewSink(ctx context.Context, cfg config.SinkConfig) (core.RecommendationSink, error) {
	switch cfg.Type {
	case config.SinkMemory, "":
		return NewKVSink(NewMemoryStore(), cfg.Redis.KeyPrefix, 0), nil

	case config.SinkRedis:
		rs, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return NewKVSink(rs, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil

	case config.SinkPostgres:
		ps, err := OpenPostgres(ctx, PostgresOptions{
			DSN:            cfg.Postgres.GetDSN(),
			Table:          cfg.Postgres.Table,
			MaxConnections: cfg.Postgres.MaxConnections,
		})
		if err != nil {
			return nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = ps.Close()
			return nil, err
		}
		return ps, nil

	case config.SinkFile:
		return NewFileSink(cfg.File.Path)

	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
