package inmem

import (
	"context"
	"sync"

	"github.com/puku-sh/editormru/workbench"
)

// Groups is in memory group provider. First added group becomes active.
type Groups struct {
	mu      sync.Mutex
	nextID  workbench.GroupID
	created []*Group
	// recent is most recently active first.
	recent []*Group
	ready  chan struct{}

	added     workbench.Emitter[workbench.Group]
	removed   workbench.Emitter[workbench.Group]
	activated workbench.Emitter[workbench.Group]
}

var _ workbench.GroupProvider = (*Groups)(nil)

// NewGroups returns ready provider without groups.
func NewGroups() *Groups {
	p := NewPendingGroups()
	p.MarkReady()
	return p
}

// NewPendingGroups returns provider, which WhenReady blocks until MarkReady call.
func NewPendingGroups() *Groups {
	return &Groups{nextID: 1, ready: make(chan struct{})}
}

func (p *Groups) MarkReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.ready:
	default:
		close(p.ready)
	}
}

func (p *Groups) WhenReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Groups) AddGroup() *Group {
	p.mu.Lock()
	g := newGroup(p.nextID)
	p.nextID++
	p.created = append(p.created, g)
	p.recent = append(p.recent, g)
	p.mu.Unlock()
	p.added.Fire(g)
	return g
}

// RemoveGroup closes all group editors and removes it. Returns false for unknown id.
func (p *Groups) RemoveGroup(id workbench.GroupID) bool {
	g := p.get(id)
	if g == nil {
		return false
	}
	for _, e := range g.Editors(workbench.EditorsSequential) {
		g.Close(e)
	}
	p.mu.Lock()
	p.created = removeGroup(p.created, g)
	wasActive := len(p.recent) > 0 && p.recent[0] == g
	p.recent = removeGroup(p.recent, g)
	var newActive *Group
	if wasActive && len(p.recent) > 0 {
		newActive = p.recent[0]
	}
	p.mu.Unlock()
	p.removed.Fire(g)
	if newActive != nil {
		p.activated.Fire(newActive)
	}
	return true
}

func (p *Groups) ActivateGroup(id workbench.GroupID) bool {
	g := p.get(id)
	if g == nil {
		return false
	}
	p.mu.Lock()
	p.recent = append([]*Group{g}, removeGroup(p.recent, g)...)
	p.mu.Unlock()
	p.activated.Fire(g)
	return true
}

func (p *Groups) Groups(order workbench.GroupOrder) []workbench.Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	src := p.created
	if order == workbench.GroupsByMostRecentlyActive {
		src = p.recent
	}
	res := make([]workbench.Group, len(src))
	for i, g := range src {
		res[i] = g
	}
	return res
}

func (p *Groups) Group(id workbench.GroupID) workbench.Group {
	if g := p.get(id); g != nil {
		return g
	}
	return nil
}

// Get is typed Group.
func (p *Groups) Get(id workbench.GroupID) *Group { return p.get(id) }

func (p *Groups) ActiveGroup() workbench.Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.recent) == 0 {
		return nil
	}
	return p.recent[0]
}

func (p *Groups) OnDidAddGroup(f func(workbench.Group)) workbench.Unsubscribe {
	return p.added.On(f)
}

func (p *Groups) OnDidRemoveGroup(f func(workbench.Group)) workbench.Unsubscribe {
	return p.removed.On(f)
}

func (p *Groups) OnDidActivateGroup(f func(workbench.Group)) workbench.Unsubscribe {
	return p.activated.On(f)
}

func (p *Groups) get(id workbench.GroupID) *Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, g := range p.created {
		if g.id == id {
			return g
		}
	}
	return nil
}

func removeGroup(groups []*Group, g *Group) []*Group {
	res := groups[:0:0]
	for _, x := range groups {
		if x != g {
			res = append(res, x)
		}
	}
	return res
}
