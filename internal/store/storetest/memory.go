// Package storetest provides an in-memory store.KV for tests.
package storetest

import (
	"context"
	"strconv"
	"sync"
)

// Memory is a mutex-guarded map implementing store.KV.  The conditional
// operations have the same atomicity the Lua scripts give the Redis
// implementation, so lock-contention tests behave realistically.
type Memory struct {
	mu   sync.Mutex
	data map[string]string

	Err error // when set, every call fails with it
}

func New() *Memory {
	return &Memory{data: map[string]string{}}
}

// Snapshot returns a copy of the current contents.
func (m *Memory) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp
}

func (m *Memory) Get(ctx context.Context, path string) (string, bool, error) {
	if m.Err != nil {
		return "", false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[path]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, path, value string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = value
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	return nil
}

func (m *Memory) CompareAndSet(ctx context.Context, path string, old *string, value string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[path]
	if old == nil {
		if ok {
			return false, nil
		}
	} else if !ok || cur != *old {
		return false, nil
	}
	m.data[path] = value
	return true, nil
}

func (m *Memory) CompareAndDelete(ctx context.Context, path, old string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[path]
	if !ok || cur != old {
		return false, nil
	}
	delete(m.data, path)
	return true, nil
}

func (m *Memory) Increment(ctx context.Context, path string) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[path], 10, 64)
	n++
	m.data[path] = strconv.FormatInt(n, 10)
	return n, nil
}
