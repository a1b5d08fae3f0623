package cache

import (
	"github.com/hireloop/platform-core/pkg/logger"
)

// NewNoopValkeyStore returns the in-memory fallback used when the external
// store is unavailable at startup. Best-effort only: revocation lists and
// rate-limit counters held here are not shared across replicas.
func NewNoopValkeyStore(log logger.Logger) ValkeyStore {
	log.Warn("Valkey store unavailable; using in-memory fallback")
	return NewMemoryValkeyStore(log)
}
