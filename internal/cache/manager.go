package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hireloop/platform-core/internal/monitoring"
	"github.com/hireloop/platform-core/internal/tenant"
	vstore "github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// compressThreshold is the serialized size above which values are gzipped
// when the entry config asks for compression.
const compressThreshold = 1024

// gzip stream magic; lets Get detect compressed payloads without an envelope.
var gzipMagic = []byte{0x1f, 0x8b}

// Config controls one cache entry's lifetime and indexing.
type Config struct {
	TTL  time.Duration
	Tags []string
	// Global opts the entry out of tenant namespacing. Default is
	// tenant-isolated; global entries must never hold tenant data.
	Global   bool
	Compress bool
}

// Metadata is the best-effort sibling record tracking access statistics for
// an entry. The store's own TTL does the actual eviction; these stats exist
// for LRU/LFU-style policy decisions and operator visibility.
type Metadata struct {
	TenantID    string    `json:"tenant_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int64     `json:"access_count"`
	Size        int       `json:"size"`
	Tags        []string  `json:"tags,omitempty"`
}

// Manager is the tenant-isolated caching layer over the shared key-value
// store. Isolation is purely key construction: every tenant-scoped key
// embeds the tenant id between fixed delimiters, so cross-tenant prefix
// collisions are structurally impossible.
type Manager struct {
	store     vstore.ValkeyStore
	logger    logger.Logger
	namespace string
	now       func() time.Time
}

func NewManager(namespace string, store vstore.ValkeyStore, log logger.Logger) *Manager {
	if namespace == "" {
		namespace = "hireloop"
	}
	return &Manager{
		store:     store,
		logger:    log,
		namespace: namespace,
		now:       time.Now,
	}
}

// scope resolves the key prefix for the entry. Tenant-isolated entries
// require an ambient tenant and refuse to fall back to a shared namespace.
func (m *Manager) scope(ctx context.Context, global bool) (prefix, tenantID string, err error) {
	if global {
		return fmt.Sprintf("%s:global:", m.namespace), "", nil
	}
	tn, err := tenant.Require(ctx)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%s:tenant:%s:", m.namespace, tn.ID), tn.ID, nil
}

func (m *Manager) dataKey(prefix, key string) string {
	return prefix + key
}

func (m *Manager) metaKey(prefix, key string) string {
	return prefix + "meta:" + key
}

func (m *Manager) tagKey(ctx context.Context, tag string, global bool) (string, error) {
	if global {
		return fmt.Sprintf("%s:tag:global:%s", m.namespace, tag), nil
	}
	tn, err := tenant.Require(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:tag:tenant:%s:%s", m.namespace, tn.ID, tag), nil
}

// Set serializes, optionally compresses, and stores the value, registering
// it under each tag's index set. The metadata write is best-effort.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, cfg Config) error {
	prefix, tenantID, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		monitoring.RecordCacheManagerOperation("set", "error")
		return fmt.Errorf("serialize cache value: %w", err)
	}
	if cfg.Compress && len(payload) > compressThreshold {
		payload, err = gzipBytes(payload)
		if err != nil {
			monitoring.RecordCacheManagerOperation("set", "error")
			return fmt.Errorf("compress cache value: %w", err)
		}
	}

	if err := m.store.Set(ctx, m.dataKey(prefix, key), payload, cfg.TTL); err != nil {
		monitoring.RecordCacheManagerOperation("set", "error")
		return fmt.Errorf("store cache value: %w", err)
	}

	now := m.now().UTC()
	meta := Metadata{
		TenantID:  tenantID,
		CreatedAt: now,
		Size:      len(payload),
		Tags:      cfg.Tags,
	}
	if err := m.store.Set(ctx, m.metaKey(prefix, key), meta, cfg.TTL); err != nil {
		m.logger.Debug("cache metadata write failed", "key", key, "error", err)
	}

	for _, tag := range cfg.Tags {
		tagKey, err := m.tagKey(ctx, tag, cfg.Global)
		if err != nil {
			return err
		}
		if err := m.store.SAdd(ctx, tagKey, key); err != nil {
			m.logger.Warn("cache tag index update failed", "tag", tag, "error", err)
		}
	}

	monitoring.RecordCacheManagerOperation("set", "success")
	return nil
}

// Get loads the entry into out. Returns ErrCacheMiss when absent. The
// access-statistics update is best-effort and tolerates lost updates.
func (m *Manager) Get(ctx context.Context, key string, out interface{}, cfg Config) error {
	prefix, _, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return err
	}

	raw, err := m.store.Get(ctx, m.dataKey(prefix, key))
	if err != nil {
		if errors.Is(err, vstore.ErrKeyNotFound) {
			monitoring.RecordCacheManagerOperation("get", "miss")
			return ErrCacheMiss
		}
		monitoring.RecordCacheManagerOperation("get", "error")
		return fmt.Errorf("load cache value: %w", err)
	}

	if bytes.HasPrefix(raw, gzipMagic) {
		raw, err = gunzipBytes(raw)
		if err != nil {
			monitoring.RecordCacheManagerOperation("get", "error")
			return fmt.Errorf("decompress cache value: %w", err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		monitoring.RecordCacheManagerOperation("get", "error")
		return fmt.Errorf("deserialize cache value: %w", err)
	}

	m.touch(ctx, prefix, key)
	monitoring.RecordCacheManagerOperation("get", "hit")
	return nil
}

func (m *Manager) touch(ctx context.Context, prefix, key string) {
	metaKey := m.metaKey(prefix, key)
	raw, err := m.store.Get(ctx, metaKey)
	if err != nil {
		return
	}
	var meta Metadata
	if json.Unmarshal(raw, &meta) != nil {
		return
	}
	meta.LastAccess = m.now().UTC()
	meta.AccessCount++
	ttl, err := m.store.TTL(ctx, metaKey)
	if err != nil || ttl < 0 {
		ttl = 0
	}
	if err := m.store.Set(ctx, metaKey, meta, ttl); err != nil {
		m.logger.Debug("cache metadata touch failed", "key", key, "error", err)
	}
}

// Stats returns the entry's metadata record, when one survives.
func (m *Manager) Stats(ctx context.Context, key string, cfg Config) (*Metadata, error) {
	prefix, _, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return nil, err
	}
	raw, err := m.store.Get(ctx, m.metaKey(prefix, key))
	if err != nil {
		if errors.Is(err, vstore.ErrKeyNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("deserialize cache metadata: %w", err)
	}
	return &meta, nil
}

// Delete removes the entry, its metadata, and its tag index registrations.
// Reports whether a data key actually existed.
func (m *Manager) Delete(ctx context.Context, key string, cfg Config) (bool, error) {
	prefix, _, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return false, err
	}
	m.deregisterTags(ctx, prefix, key, cfg.Global)
	deleted, err := m.store.Delete(ctx, m.dataKey(prefix, key), m.metaKey(prefix, key))
	if err != nil {
		monitoring.RecordCacheManagerOperation("delete", "error")
		return false, fmt.Errorf("delete cache value: %w", err)
	}
	monitoring.RecordCacheManagerOperation("delete", "success")
	return deleted > 0, nil
}

// deregisterTags removes the key from every tag index its metadata names.
// Without this, a key deleted and later re-created without the tag would
// still be destroyed by an invalidation of the old tag.
func (m *Manager) deregisterTags(ctx context.Context, prefix, key string, global bool) {
	raw, err := m.store.Get(ctx, m.metaKey(prefix, key))
	if err != nil {
		return
	}
	var meta Metadata
	if json.Unmarshal(raw, &meta) != nil {
		return
	}
	for _, tag := range meta.Tags {
		tagKey, err := m.tagKey(ctx, tag, global)
		if err != nil {
			continue
		}
		if err := m.store.SRem(ctx, tagKey, key); err != nil {
			m.logger.Warn("cache tag index cleanup failed", "tag", tag, "error", err)
		}
	}
}

// InvalidateByTag deletes every entry registered under the tag, then the tag
// index itself. Members already gone (TTL-expired) are tolerated as no-ops;
// the count reflects data keys actually removed.
func (m *Manager) InvalidateByTag(ctx context.Context, tag string, cfg Config) (int, error) {
	prefix, _, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return 0, err
	}
	tagKey, err := m.tagKey(ctx, tag, cfg.Global)
	if err != nil {
		return 0, err
	}

	members, err := m.store.SMembers(ctx, tagKey)
	if err != nil {
		monitoring.RecordCacheManagerOperation("invalidate_tag", "error")
		return 0, fmt.Errorf("read tag index: %w", err)
	}

	removed := 0
	for _, member := range members {
		n, err := m.store.Delete(ctx, m.dataKey(prefix, member), m.metaKey(prefix, member))
		if err != nil {
			m.logger.Warn("tag invalidation delete failed", "key", member, "error", err)
			continue
		}
		if n > 0 {
			removed++
		}
	}
	if _, err := m.store.Delete(ctx, tagKey); err != nil {
		m.logger.Warn("tag index delete failed", "tag", tag, "error", err)
	}

	monitoring.RecordCacheManagerOperation("invalidate_tag", "success")
	return removed, nil
}

// InvalidateByPattern deletes entries whose key matches the glob pattern,
// scoped to the caller's tenant (or the global namespace).
func (m *Manager) InvalidateByPattern(ctx context.Context, pattern string, cfg Config) (int, error) {
	prefix, _, err := m.scope(ctx, cfg.Global)
	if err != nil {
		return 0, err
	}

	keys, err := m.store.Keys(ctx, prefix+pattern)
	if err != nil {
		monitoring.RecordCacheManagerOperation("invalidate_pattern", "error")
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}

	removed := 0
	for _, dataKey := range keys {
		bare := strings.TrimPrefix(dataKey, prefix)
		if strings.HasPrefix(bare, "meta:") {
			continue
		}
		n, err := m.store.Delete(ctx, dataKey, m.metaKey(prefix, bare))
		if err != nil {
			m.logger.Warn("pattern invalidation delete failed", "key", dataKey, "error", err)
			continue
		}
		if n > 0 {
			removed++
		}
	}

	monitoring.RecordCacheManagerOperation("invalidate_pattern", "success")
	return removed, nil
}

// ClearTenant removes every cache entry, metadata record, and tag index
// belonging to the ambient tenant. The scan pattern is anchored on the
// tenant delimiter so other tenants' keys cannot match.
func (m *Manager) ClearTenant(ctx context.Context) (int, error) {
	tn, err := tenant.Require(ctx)
	if err != nil {
		return 0, err
	}

	patterns := []string{
		fmt.Sprintf("%s:tenant:%s:*", m.namespace, tn.ID),
		fmt.Sprintf("%s:tag:tenant:%s:*", m.namespace, tn.ID),
	}

	removed := 0
	for _, pattern := range patterns {
		keys, err := m.store.Keys(ctx, pattern)
		if err != nil {
			monitoring.RecordCacheManagerOperation("clear_tenant", "error")
			return removed, fmt.Errorf("scan tenant keys: %w", err)
		}
		if len(keys) == 0 {
			continue
		}
		n, err := m.store.Delete(ctx, keys...)
		if err != nil {
			monitoring.RecordCacheManagerOperation("clear_tenant", "error")
			return removed, fmt.Errorf("delete tenant keys: %w", err)
		}
		removed += int(n)
	}

	monitoring.RecordCacheManagerOperation("clear_tenant", "success")
	return removed, nil
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
