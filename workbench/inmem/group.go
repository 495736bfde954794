package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/puku-sh/editormru/workbench"
)

var ErrNotClosed = errors.New("editors were not closed")

type OpenOptions struct {
	// Inactive editor is opened in background. First editor of group is always active.
	Inactive bool
	Sticky   bool
}

// Group keeps editors in sequential and most recently active order.
// Events are fired without group lock held.
type Group struct {
	id workbench.GroupID

	// Veto is called for every editor in CloseEditors. Non nil error keeps editor opened.
	// Models declined save confirmation.
	Veto func(workbench.Editor) error

	mu         sync.Mutex
	sequential []workbench.Editor
	// recent is most recent first.
	recent []workbench.Editor
	sticky map[workbench.Editor]bool

	opened        workbench.Emitter[workbench.Editor]
	closed        workbench.Emitter[workbench.Editor]
	activeChanged workbench.Emitter[workbench.Editor]
}

var _ workbench.Group = (*Group)(nil)

func newGroup(id workbench.GroupID) *Group {
	return &Group{
		id:     id,
		sticky: make(map[workbench.Editor]bool),
	}
}

func (g *Group) ID() workbench.GroupID { return g.id }
func (g *Group) String() string        { return fmt.Sprintf("group-%v", g.id) }

func (g *Group) Editors(order workbench.EditorOrder) []workbench.Editor {
	g.mu.Lock()
	defer g.mu.Unlock()
	src := g.sequential
	if order == workbench.EditorsByMostRecentlyActive {
		src = g.recent
	}
	return append([]workbench.Editor(nil), src...)
}

func (g *Group) ActiveEditor() workbench.Editor {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.recent) == 0 {
		return nil
	}
	return g.recent[0]
}

func (g *Group) IsSticky(e workbench.Editor) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sticky[e]
}

func (g *Group) Contains(e workbench.Editor) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return indexOf(g.sequential, e) >= 0
}

// Open appends editor to group. Opening already opened editor activates it,
// unless opts.Inactive.
func (g *Group) Open(e workbench.Editor, opts OpenOptions) {
	g.mu.Lock()
	if indexOf(g.sequential, e) >= 0 {
		g.mu.Unlock()
		if !opts.Inactive {
			g.Activate(e)
		}
		return
	}
	g.sequential = append(g.sequential, e)
	active := !opts.Inactive || len(g.recent) == 0
	if active {
		g.recent = insertAt(g.recent, 0, e)
	} else {
		g.recent = insertAt(g.recent, 1, e)
	}
	if opts.Sticky {
		g.sticky[e] = true
	}
	g.mu.Unlock()

	g.opened.Fire(e)
	if active {
		g.activeChanged.Fire(e)
	}
}

// Activate returns false if editor is not opened in group.
func (g *Group) Activate(e workbench.Editor) bool {
	g.mu.Lock()
	i := indexOf(g.recent, e)
	if i < 0 {
		g.mu.Unlock()
		return false
	}
	g.recent = insertAt(removeAt(g.recent, i), 0, e)
	g.mu.Unlock()
	g.activeChanged.Fire(e)
	return true
}

func (g *Group) Pin(e workbench.Editor, sticky bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sticky {
		g.sticky[e] = true
	} else {
		delete(g.sticky, e)
	}
}

// Close closes editor without veto. Returns false if editor is not opened.
func (g *Group) Close(e workbench.Editor) bool {
	g.mu.Lock()
	i := indexOf(g.sequential, e)
	if i < 0 {
		g.mu.Unlock()
		return false
	}
	g.sequential = removeAt(g.sequential, i)
	ri := indexOf(g.recent, e)
	g.recent = removeAt(g.recent, ri)
	delete(g.sticky, e)
	var newActive workbench.Editor
	if ri == 0 && len(g.recent) > 0 {
		newActive = g.recent[0]
	}
	g.mu.Unlock()

	g.closed.Fire(e)
	if newActive != nil {
		g.activeChanged.Fire(newActive)
	}
	return true
}

func (g *Group) CloseEditors(ctx context.Context, editors []workbench.Editor, opts workbench.CloseOptions) error {
	var notClosed int
	for _, e := range editors {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if g.Veto != nil {
			if err := g.Veto(e); err != nil {
				notClosed++
				continue
			}
		}
		if !g.Close(e) {
			notClosed++
		}
	}
	if notClosed > 0 {
		return errors.Wrapf(ErrNotClosed, "%v of %v", notClosed, len(editors))
	}
	return nil
}

func (g *Group) OnDidOpenEditor(f func(workbench.Editor)) workbench.Unsubscribe {
	return g.opened.On(f)
}

func (g *Group) OnDidCloseEditor(f func(workbench.Editor)) workbench.Unsubscribe {
	return g.closed.On(f)
}

func (g *Group) OnDidActiveEditorChange(f func(workbench.Editor)) workbench.Unsubscribe {
	return g.activeChanged.On(f)
}

func indexOf(editors []workbench.Editor, e workbench.Editor) int {
	for i, x := range editors {
		if x == e {
			return i
		}
	}
	return -1
}

func insertAt(editors []workbench.Editor, i int, e workbench.Editor) []workbench.Editor {
	if i > len(editors) {
		i = len(editors)
	}
	editors = append(editors, nil)
	copy(editors[i+1:], editors[i:])
	editors[i] = e
	return editors
}

func removeAt(editors []workbench.Editor, i int) []workbench.Editor {
	return append(editors[:i], editors[i+1:]...)
}
