// Package cache implements the two-tier cache: a mutex-guarded in-memory map
// with per-entry TTLs, mirrored best-effort to a durable store so warm
// results survive restarts.
package cache

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/store"
)

// Entry is one cached batch. Entries are owned exclusively by the Manager.
type Entry struct {
	Payload   model.Batch   `json:"payload"`
	WrittenAt time.Time     `json:"written_at"`
	TTL       time.Duration `json:"ttl"`
}

// Manager is the two-tier cache. The durable tier is optional; with a nil
// store the Manager degrades to memory-only. Durable failures are logged,
// never propagated.
type Manager struct {
	mu      sync.Mutex
	entries map[string]Entry

	durable *store.Store
	logger  *slog.Logger
	clock   func() time.Time
	wg      sync.WaitGroup
}

func New(durable *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		entries: make(map[string]Entry),
		durable: durable,
		logger:  logger,
		clock:   time.Now,
	}
}

// Get returns the entry for key only while it is fresh. On a memory miss the
// durable tier is consulted lazily, with the same freshness check applied.
// Expired entries are treated as absent but kept for GetEvenIfExpired.
func (m *Manager) Get(key string) (Entry, bool) {
	now := m.clock()

	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()

	if !ok {
		entry, ok = m.loadDurable(key)
		if !ok {
			return Entry{}, false
		}
	}

	if m.expired(entry, now) {
		return Entry{}, false
	}
	return entry, true
}

// GetEvenIfExpired bypasses the freshness check. It is the last-resort read:
// memory first, then the durable tier.
func (m *Manager) GetEvenIfExpired(key string) (Entry, bool) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()

	if ok {
		return entry, true
	}
	return m.loadDurable(key)
}

// Set writes the in-memory tier synchronously and mirrors to the durable
// tier in the background.
func (m *Manager) Set(key string, payload model.Batch, ttl time.Duration) {
	entry := Entry{Payload: payload, WrittenAt: m.clock(), TTL: ttl}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()

	if m.durable == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		data, err := json.Marshal(entry)
		if err != nil {
			m.logger.Warn("cache mirror encode failed", "key", key, "error", err)
			return
		}
		if err := m.durable.Set(key, data); err != nil {
			m.logger.Warn("cache mirror write failed", "key", key, "error", err)
		}
	}()
}

// Clear evicts every entry from both tiers.
func (m *Manager) Clear() {
	m.ClearPrefix("")
}

// ClearPrefix evicts entries whose key starts with prefix from both tiers.
func (m *Manager) ClearPrefix(prefix string) {
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()

	if m.durable == nil {
		return
	}
	keys, err := m.durable.KeysWithPrefix(prefix)
	if err != nil {
		m.logger.Warn("cache clear list failed", "prefix", prefix, "error", err)
		return
	}
	for _, key := range keys {
		if err := m.durable.Remove(key); err != nil {
			m.logger.Warn("cache clear remove failed", "key", key, "error", err)
		}
	}
}

// Age returns how long ago the entry for key was written, and whether any
// entry (fresh or stale) exists.
func (m *Manager) Age(key string) (time.Duration, bool) {
	entry, ok := m.GetEvenIfExpired(key)
	if !ok {
		return 0, false
	}
	return m.clock().Sub(entry.WrittenAt), true
}

// Fresh reports whether a fresh entry exists for key.
func (m *Manager) Fresh(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Flush blocks until all in-flight durable mirror writes finish. Intended
// for shutdown and tests.
func (m *Manager) Flush() {
	m.wg.Wait()
}

func (m *Manager) expired(entry Entry, now time.Time) bool {
	return now.Sub(entry.WrittenAt) >= entry.TTL
}

// loadDurable reads key from the durable tier and promotes it into memory.
func (m *Manager) loadDurable(key string) (Entry, bool) {
	if m.durable == nil {
		return Entry{}, false
	}
	data, ok, err := m.durable.Get(key)
	if err != nil {
		m.logger.Warn("cache durable read failed", "key", key, "error", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		m.logger.Warn("cache durable decode failed", "key", key, "error", err)
		return Entry{}, false
	}

	m.mu.Lock()
	if _, exists := m.entries[key]; !exists {
		m.entries[key] = entry
	}
	m.mu.Unlock()
	return entry, true
}
