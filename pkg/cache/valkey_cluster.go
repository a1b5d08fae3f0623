package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/pkg/logger"
)

type valkeyClusterImpl struct {
	client *redis.ClusterClient
	logger logger.Logger
	ttl    time.Duration
}

func NewValkeyCluster(nodes []string, password string, defaultTTL time.Duration) (ValkeyStore, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        nodes,
		Password:     password,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey cluster: %w", err)
	}

	return &valkeyClusterImpl{
		client: client,
		logger: logger.New("info"),
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeyClusterImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		monitoring.RecordStoreOperation("get", "miss")
		return nil, ErrKeyNotFound
	}
	if err != nil {
		monitoring.RecordStoreOperation("get", "error")
		return nil, err
	}
	monitoring.RecordStoreOperation("get", "hit")
	return b, nil
}

func (v *valkeyClusterImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		monitoring.RecordStoreOperation("set", "error")
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		monitoring.RecordStoreOperation("set", "error")
		return err
	}
	monitoring.RecordStoreOperation("set", "success")
	return nil
}

func (v *valkeyClusterImpl) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := encodeValue(key, value)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	return v.client.SetNX(ctx, key, data, ttl).Result()
}

func (v *valkeyClusterImpl) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	// Cluster mode: keys may live on different slots, delete individually.
	var deleted int64
	for _, key := range keys {
		n, err := v.client.Del(ctx, key).Result()
		if err != nil {
			monitoring.RecordStoreOperation("delete", "error")
			return deleted, err
		}
		deleted += n
	}
	monitoring.RecordStoreOperation("delete", "success")
	return deleted, nil
}

func (v *valkeyClusterImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := v.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (v *valkeyClusterImpl) IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	result, err := incrWindowScript.Run(ctx, v.client, []string{key}, ttl.Milliseconds()).Result()
	if err != nil {
		monitoring.RecordStoreOperation("incr_window", "error")
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		monitoring.RecordStoreOperation("incr_window", "error")
		return 0, fmt.Errorf("unexpected counter response for key %s", key)
	}
	monitoring.RecordStoreOperation("incr_window", "success")
	return count, nil
}

func (v *valkeyClusterImpl) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return v.client.SAdd(ctx, key, args...).Err()
}

func (v *valkeyClusterImpl) SMembers(ctx context.Context, key string) ([]string, error) {
	return v.client.SMembers(ctx, key).Result()
}

func (v *valkeyClusterImpl) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return v.client.SRem(ctx, key, args...).Err()
}

func (v *valkeyClusterImpl) Keys(ctx context.Context, pattern string) ([]string, error) {
	// Fan out to every master so pattern scans see the whole keyspace.
	var all []string
	err := v.client.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
		keys, err := client.Keys(ctx, pattern).Result()
		if err != nil {
			return err
		}
		all = append(all, keys...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (v *valkeyClusterImpl) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return v.client.Expire(ctx, key, ttl).Err()
}

func (v *valkeyClusterImpl) TTL(ctx context.Context, key string) (time.Duration, error) {
	return v.client.TTL(ctx, key).Result()
}

// HealthCheck pings the Valkey cluster.
func (v *valkeyClusterImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}
