package cache

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/platform-core/pkg/logger"
)

// memoryValkeyStore is an in-process, best-effort implementation of
// ValkeyStore. It backs development setups and tests, and serves as the
// degraded-operation fallback when the external store is unreachable. Data is
// not shared across replicas and is lost on restart.
type memoryValkeyStore struct {
	mu     sync.RWMutex
	values map[string]memoryEntry
	sets   map[string]map[string]struct{}
	logger logger.Logger
	now    func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func NewMemoryValkeyStore(log logger.Logger) ValkeyStore {
	return &memoryValkeyStore{
		values: make(map[string]memoryEntry),
		sets:   make(map[string]map[string]struct{}),
		logger: log,
		now:    time.Now,
	}
}

// NewMemoryValkeyStoreWithClock is used by tests that need to control time.
func NewMemoryValkeyStoreWithClock(log logger.Logger, now func() time.Time) ValkeyStore {
	return &memoryValkeyStore{
		values: make(map[string]memoryEntry),
		sets:   make(map[string]map[string]struct{}),
		logger: log,
		now:    now,
	}
}

func (m *memoryValkeyStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

func (m *memoryValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.values[key]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return nil, ErrKeyNotFound
	}
	return e.data, nil
}

func (m *memoryValkeyStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.values[key] = memoryEntry{data: data, expiresAt: exp}
	m.mu.Unlock()
	return nil
}

func (m *memoryValkeyStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.values[key]; ok && !m.expired(e) {
		return false, nil
	}
	data, err := encodeValue(key, value)
	if err != nil {
		return false, err
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.values[key] = memoryEntry{data: data, expiresAt: exp}
	return true, nil
}

func (m *memoryValkeyStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, key := range keys {
		if e, ok := m.values[key]; ok {
			if !m.expired(e) {
				deleted++
			}
			delete(m.values, key)
		}
		if _, ok := m.sets[key]; ok {
			delete(m.sets, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryValkeyStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.values[key]; ok && !m.expired(e) {
		return true, nil
	}
	_, ok := m.sets[key]
	return ok, nil
}

func (m *memoryValkeyStore) IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.values[key]
	if !ok || m.expired(e) {
		exp := time.Time{}
		if ttl > 0 {
			exp = m.now().Add(ttl)
		}
		m.values[key] = memoryEntry{data: []byte("1"), expiresAt: exp}
		return 1, nil
	}
	count, _ := strconv.ParseInt(string(e.data), 10, 64)
	count++
	e.data = []byte(strconv.FormatInt(count, 10))
	m.values[key] = e
	return count, nil
}

func (m *memoryValkeyStore) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *memoryValkeyStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}

func (m *memoryValkeyStore) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	if len(set) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *memoryValkeyStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key, e := range m.values {
		if m.expired(e) {
			continue
		}
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	for key := range m.sets {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *memoryValkeyStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.values[key]; ok {
		e.expiresAt = m.now().Add(ttl)
		m.values[key] = e
	}
	return nil
}

func (m *memoryValkeyStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.values[key]
	if !ok || m.expired(e) {
		return -2 * time.Second, nil
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}

func (m *memoryValkeyStore) HealthCheck(ctx context.Context) error {
	return nil
}

// matchPattern implements Redis glob matching for the subset of patterns the
// core uses (segment wildcards). Keys contain no path separators, so
// path.Match semantics line up after mapping "*" across colons.
func matchPattern(pattern, key string) bool {
	ok, err := path.Match(strings.ReplaceAll(pattern, ":", "/"), strings.ReplaceAll(key, ":", "/"))
	if err != nil {
		return false
	}
	if ok {
		return true
	}
	// Redis "*" also crosses delimiters; retry with a plain prefix/suffix check.
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
