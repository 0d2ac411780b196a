package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vrpsolver/vrpsolver/internal/config"
	"github.com/vrpsolver/vrpsolver/pkg/errors"
	"github.com/vrpsolver/vrpsolver/pkg/model"
)

// RedisCache Redis 实现的结果缓存
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache 连接 Redis 并创建缓存
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CodeCacheError, "Redis 连接失败")
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisCacheFromClient 使用已有客户端创建缓存
func NewRedisCacheFromClient(client redis.UniversalClient, ttl time.Duration, prefix string) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get 读取缓存
func (c *RedisCache) Get(ctx context.Context, key string) (*model.SolutionResult, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil // 缓存不存在
		}
		return nil, errors.Wrap(err, errors.CodeCacheError, "读取缓存失败")
	}

	res, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "解析缓存结果失败")
	}
	return res, nil
}

// Set 写入缓存
func (c *RedisCache) Set(ctx context.Context, key string, res *model.SolutionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "序列化结果失败")
	}

	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "写入缓存失败")
	}
	return nil
}

// Delete 删除缓存
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "删除缓存失败")
	}
	return nil
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}
