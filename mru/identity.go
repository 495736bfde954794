package mru

import (
	"fmt"

	"github.com/puku-sh/editormru/workbench"
)

// Identity names one opened editor in one group.
type Identity struct {
	GroupID workbench.GroupID
	Editor  workbench.Editor
}

func (id Identity) Is(group workbench.GroupID, e workbench.Editor) bool {
	return id.GroupID == group && id.Editor == e
}

func (id Identity) String() string {
	return fmt.Sprintf("%v:%s", id.GroupID, editorLabel(id.Editor))
}

func editorLabel(e workbench.Editor) string {
	if e == nil {
		return "<nil>"
	}
	if s, ok := e.(fmt.Stringer); ok {
		return s.String()
	}
	if r := e.Resource(); r != "" {
		return r
	}
	return e.TypeID()
}

// slot is index of node in arena.
type slot int32

const (
	noSlot   slot = -1
	fakeHead slot = 0
	fakeTail slot = 1
	// firstSlot is index of first real node.
	firstSlot slot = 2
)

type node struct {
	Identity
	prev slot
	next slot
	// counted is true when identity is accounted in resources table.
	counted bool
}

func (n *node) attached() bool { return n.prev != noSlot }

// arena allocates nodes. Released slots are reused, so slot values
// must not be retained after release.
type arena struct {
	nodes []node
	free  []slot
}

func (a *arena) initArena() {
	a.nodes = make([]node, firstSlot, 16)
	for i := range a.nodes {
		a.nodes[i].prev, a.nodes[i].next = noSlot, noSlot
	}
	a.free = a.free[:0]
}

func (a *arena) alloc(id Identity) slot {
	n := node{Identity: id, prev: noSlot, next: noSlot}
	if l := len(a.free); l > 0 {
		s := a.free[l-1]
		a.free = a.free[:l-1]
		a.nodes[s] = n
		return s
	}
	a.nodes = append(a.nodes, n)
	return slot(len(a.nodes) - 1)
}

func (a *arena) release(s slot) {
	a.nodes[s] = node{prev: noSlot, next: noSlot}
	a.free = append(a.free, s)
}

func (a *arena) at(s slot) *node { return &a.nodes[s] }

// live returns number of allocated real nodes.
func (a *arena) live() int { return len(a.nodes) - int(firstSlot) - len(a.free) }
