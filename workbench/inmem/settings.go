package inmem

import (
	"sync"

	"github.com/puku-sh/editormru/workbench"
)

type Settings struct {
	mu      sync.Mutex
	limit   workbench.LimitSettings
	changed workbench.Emitter[workbench.LimitSettings]
}

var _ workbench.SettingsProvider = (*Settings)(nil)

func NewSettings(l workbench.LimitSettings) *Settings {
	return &Settings{limit: l}
}

func (s *Settings) Limit() workbench.LimitSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// SetLimit fires change event even if settings are equal.
func (s *Settings) SetLimit(l workbench.LimitSettings) {
	s.mu.Lock()
	s.limit = l
	s.mu.Unlock()
	s.changed.Fire(l)
}

func (s *Settings) OnDidChangeLimit(f func(workbench.LimitSettings)) workbench.Unsubscribe {
	return s.changed.On(f)
}
