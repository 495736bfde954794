package mru

import "github.com/puku-sh/editormru/workbench"

// Store is most recently used editors order with key registry and resources table.
type Store struct {
	arena
	order     queue
	keys      map[workbench.GroupID]map[workbench.Editor]slot
	resources *Resources

	// OnChange is called once after every order change. Can be nil.
	OnChange func()
}

func NewStore() *Store {
	s := &Store{
		keys:      make(map[workbench.GroupID]map[workbench.Editor]slot),
		resources: NewResources(),
	}
	s.initArena()
	s.order = newQueue(&s.arena)
	return s
}

// Add makes editor most recent if active or if store is empty.
// Otherwise editor becomes second most recent: not active editor can't be more recent
// than active one, but it is more recent than any other background editor.
// If isNew, editor resource is accounted.
func (s *Store) Add(group workbench.GroupID, e workbench.Editor, active, isNew bool) {
	defer s.checkInvariants()
	sl := s.slotOf(group, e)
	if active || s.order.empty() {
		s.order.moveToBack(sl)
	} else {
		prevTail := s.order.tail()
		s.order.moveToBack(sl)
		if prevTail != sl {
			s.order.moveToBack(prevTail)
		}
	}
	if isNew {
		s.count(sl)
	}
	s.changed()
}

// Remove returns false if editor is not tracked in group.
func (s *Store) Remove(group workbench.GroupID, e workbench.Editor) bool {
	defer s.checkInvariants()
	sl, ok := s.keys[group][e]
	if !ok {
		return false
	}
	s.drop(sl)
	s.changed()
	return true
}

// RemoveGroup drops all editors of group and returns number of dropped.
func (s *Store) RemoveGroup(group workbench.GroupID) int {
	defer s.checkInvariants()
	groupKeys, ok := s.keys[group]
	if !ok {
		return 0
	}
	slots := make([]slot, 0, len(groupKeys))
	for _, sl := range groupKeys {
		slots = append(slots, sl)
	}
	for _, sl := range slots {
		s.drop(sl)
	}
	if len(slots) > 0 {
		s.changed()
	}
	return len(slots)
}

func (s *Store) Len() int { return s.order.len }

// Editors returns identities from least to most recent.
func (s *Store) Editors() []Identity {
	ids := make([]Identity, 0, s.order.len)
	s.order.each(func(_ slot, n *node) bool {
		ids = append(ids, n.Identity)
		return true
	})
	return ids
}

// GroupEditors returns identities of group from least to most recent.
func (s *Store) GroupEditors(group workbench.GroupID) []Identity {
	ids := make([]Identity, 0, len(s.keys[group]))
	s.order.each(func(_ slot, n *node) bool {
		if n.GroupID == group {
			ids = append(ids, n.Identity)
		}
		return true
	})
	return ids
}

// MostRecent returns false on empty store.
func (s *Store) MostRecent() (id Identity, ok bool) {
	if s.order.empty() {
		return
	}
	return s.at(s.order.tail()).Identity, true
}

func (s *Store) Contains(group workbench.GroupID, e workbench.Editor) bool {
	_, ok := s.keys[group][e]
	return ok
}

func (s *Store) HasEditor(resource, typeID, editorID string) bool {
	return s.resources.Has(resource, typeID, editorID)
}

func (s *Store) HasEditors(resource string) bool {
	return s.resources.HasAny(resource)
}

func (s *Store) Resources() *Resources { return s.resources }

// slotOf returns registered slot or allocates and registers new one.
func (s *Store) slotOf(group workbench.GroupID, e workbench.Editor) slot {
	groupKeys, ok := s.keys[group]
	if !ok {
		groupKeys = make(map[workbench.Editor]slot)
		s.keys[group] = groupKeys
	}
	if sl, ok := groupKeys[e]; ok {
		return sl
	}
	sl := s.alloc(Identity{group, e})
	groupKeys[e] = sl
	return sl
}

func (s *Store) count(sl slot) {
	n := s.at(sl)
	if n.counted {
		return
	}
	n.counted = s.resources.add(n.Editor)
}

// drop detaches, unregisters and releases tracked slot.
func (s *Store) drop(sl slot) {
	n := s.at(sl)
	if n.counted {
		s.resources.remove(n.Editor)
	}
	groupKeys := s.keys[n.GroupID]
	delete(groupKeys, n.Editor)
	if len(groupKeys) == 0 {
		delete(s.keys, n.GroupID)
	}
	s.order.detach(sl)
	s.release(sl)
}

func (s *Store) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
