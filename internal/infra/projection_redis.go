package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"github.com/redis/go-redis/v9"
)

const (
	redisLatestKey = "storyreels:latest"
	redisReelsKey  = "storyreels:reels"
)

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisProjectionRepo keeps latest URLs in a hash and reels in a list.
type RedisProjectionRepo struct {
	rdb redis.UniversalClient
}

func NewRedisProjectionRepo(rdb redis.UniversalClient) ports.ProjectionRepository {
	return &RedisProjectionRepo{rdb: rdb}
}

func (r *RedisProjectionRepo) Apply(ctx context.Context, rec models.MediaRecord) error {
	category := rec.Category()
	url := rec.URL()
	if category == "" || url == "" {
		return nil
	}

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisLatestKey, string(category), url)
		if category == models.UserReel {
			p.RPush(ctx, redisReelsKey, url)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis apply: %w", err)
	}
	return nil
}

func (r *RedisProjectionRepo) Latest(ctx context.Context, category models.Category) (string, error) {
	url, err := r.rdb.HGet(ctx, redisLatestKey, string(category)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis latest: %w", err)
	}
	return url, nil
}

func (r *RedisProjectionRepo) AllReels(ctx context.Context) ([]string, error) {
	urls, err := r.rdb.LRange(ctx, redisReelsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis reels: %w", err)
	}
	return urls, nil
}

func (r *RedisProjectionRepo) Replace(ctx context.Context, snap models.Snapshot) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, redisLatestKey, redisReelsKey)
		for category, url := range snap.Latest {
			p.HSet(ctx, redisLatestKey, string(category), url)
		}
		if len(snap.Reels) > 0 {
			vals := make([]any, len(snap.Reels))
			for i, u := range snap.Reels {
				vals[i] = u
			}
			p.RPush(ctx, redisReelsKey, vals...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace: %w", err)
	}
	return nil
}
