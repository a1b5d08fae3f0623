package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/pkg/logger"
)

// valkeySingleImpl implements ValkeyStore against a single-node Valkey/Redis
// instance.
type valkeySingleImpl struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

// incrWindowScript increments a counter and applies the expiry only when this
// call created the key, in one atomic round trip.
var incrWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewValkeySingle(addr string, db int, password string, defaultTTL time.Duration) (ValkeyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey single-node: %w", err)
	}

	return &valkeySingleImpl{
		client: client,
		logger: logger.New("info"),
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeySingleImpl) Get(ctx context.Context, key string) ([]byte, error) {
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

func (v *valkeySingleImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
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

func (v *valkeySingleImpl) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := encodeValue(key, value)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	set, err := v.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		monitoring.RecordStoreOperation("setnx", "error")
		return false, err
	}
	monitoring.RecordStoreOperation("setnx", "success")
	return set, nil
}

func (v *valkeySingleImpl) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := v.client.Del(ctx, keys...).Result()
	if err != nil {
		monitoring.RecordStoreOperation("delete", "error")
		return 0, err
	}
	monitoring.RecordStoreOperation("delete", "success")
	return n, nil
}

func (v *valkeySingleImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := v.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (v *valkeySingleImpl) IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
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

func (v *valkeySingleImpl) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return v.client.SAdd(ctx, key, args...).Err()
}

func (v *valkeySingleImpl) SMembers(ctx context.Context, key string) ([]string, error) {
	return v.client.SMembers(ctx, key).Result()
}

func (v *valkeySingleImpl) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return v.client.SRem(ctx, key, args...).Err()
}

func (v *valkeySingleImpl) Keys(ctx context.Context, pattern string) ([]string, error) {
	return v.client.Keys(ctx, pattern).Result()
}

func (v *valkeySingleImpl) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return v.client.Expire(ctx, key, ttl).Err()
}

func (v *valkeySingleImpl) TTL(ctx context.Context, key string) (time.Duration, error) {
	return v.client.TTL(ctx, key).Result()
}

// HealthCheck pings the Valkey single-node instance.
func (v *valkeySingleImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}

func encodeValue(key string, value interface{}) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		j, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		return j, nil
	}
}
