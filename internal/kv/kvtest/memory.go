// Package kvtest provides an in-memory kv.Client for tests.
package kvtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Memory is a map-backed kv.Client. Setting Err makes every command fail with it.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	Err  error
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *Memory) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewStringResult("", m.Err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewStatusResult("", m.Err)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *Memory) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			delete(m.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Value returns the raw stored value for key.
func (m *Memory) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Expiration returns the TTL the key was last written with.
func (m *Memory) Expiration(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Keys returns the number of stored keys.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
