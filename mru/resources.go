package mru

import "github.com/puku-sh/editormru/workbench"

// Resources counts tracked identities per resource and editor kind.
// Invariants: every count is positive; inner map is removed when empty.
type Resources struct {
	m map[string]map[string]int
}

func NewResources() *Resources {
	return &Resources{m: make(map[string]map[string]int)}
}

func kindKey(typeID, editorID string) string {
	return typeID + "/" + editorID
}

// add returns false for editors without resource, such editors are not tracked.
func (r *Resources) add(e workbench.Editor) bool {
	e = workbench.PrimaryOf(e)
	res := e.Resource()
	if res == "" {
		return false
	}
	kinds, ok := r.m[res]
	if !ok {
		kinds = make(map[string]int, 1)
		r.m[res] = kinds
	}
	kinds[kindKey(e.TypeID(), e.EditorID())]++
	return true
}

func (r *Resources) remove(e workbench.Editor) {
	e = workbench.PrimaryOf(e)
	res := e.Resource()
	kinds, ok := r.m[res]
	if !ok {
		return
	}
	key := kindKey(e.TypeID(), e.EditorID())
	count, ok := kinds[key]
	if !ok {
		return
	}
	if count > 1 {
		kinds[key] = count - 1
		return
	}
	delete(kinds, key)
	if len(kinds) == 0 {
		delete(r.m, res)
	}
}

func (r *Resources) Has(resource, typeID, editorID string) bool {
	return r.m[resource][kindKey(typeID, editorID)] > 0
}

func (r *Resources) HasAny(resource string) bool {
	_, ok := r.m[resource]
	return ok
}

// Count returns sum of counts for resource.
func (r *Resources) Count(resource string) (count int) {
	for _, c := range r.m[resource] {
		count += c
	}
	return
}

// Len returns number of tracked resources.
func (r *Resources) Len() int { return len(r.m) }
