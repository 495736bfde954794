// Package statestore contains workbench.StateStore implementations helpers
// and in memory store. Persistent stores are in aof and statestore/badgerstore.
package statestore

import (
	"sync"

	"github.com/puku-sh/editormru/workbench"
)

// SaveHooks implements OnWillSaveState part of workbench.StateStore.
type SaveHooks struct {
	willSave workbench.Emitter[struct{}]
}

func (h *SaveHooks) OnWillSaveState(f func()) workbench.Unsubscribe {
	return h.willSave.On(func(struct{}) { f() })
}

// FireWillSave calls will save listeners. Stores call it before persisting.
func (h *SaveHooks) FireWillSave() { h.willSave.Fire(struct{}{}) }

// Memory is workbench.StateStore that keeps values in memory.
// Save only fires will save listeners.
type Memory struct {
	SaveHooks
	mu     sync.Mutex
	values map[string]string
}

var _ workbench.StateStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (value string, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok = m.values[key]
	return
}

func (m *Memory) Store(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) Save() error {
	m.FireWillSave()
	return nil
}

// Close saves store. Memory is usable after close.
func (m *Memory) Close() error { return m.Save() }

// Persistent is state store that should be saved and closed on shutdown.
type Persistent interface {
	workbench.StateStore
	// Save fires will save listeners and persists values.
	Save() error
	Close() error
}

var _ Persistent = (*Memory)(nil)
