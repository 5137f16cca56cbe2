// Package memstore is an in-process Store for tests and single-instance deployments.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-proxy/store"
)

var _ store.Store = (*MemoryStore)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type MemoryStore struct {
	entries map[string]entry
	lock    sync.RWMutex
	nowTime func() time.Time
}

type Option func(*MemoryStore)

// WithNowTime sets the clock used for expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *MemoryStore) {
		m.nowTime = nowFunc
	}
}

func New(options ...Option) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]entry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.lock.RLock()
	e, ok := m.entries[key]
	m.lock.RUnlock()

	if !ok || m.expired(e) {
		return nil, store.ErrNotFound
	}
	return clone(e.value), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: clone(value)}
	if ttl > 0 {
		e.expiresAt = m.nowTime().Add(ttl)
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Take(_ context.Context, key string) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.entries, key)
	if m.expired(e) {
		return nil, store.ErrNotFound
	}
	return e.value, nil
}

// Cleanup drops expired entries and returns how many were removed.
func (m *MemoryStore) Cleanup() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len counts entries, expired ones included until Cleanup runs.
func (m *MemoryStore) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !m.nowTime().Before(e.expiresAt)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
