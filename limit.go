package editormru

import (
	"context"
	"time"

	"github.com/puku-sh/editormru/mru"
	"github.com/puku-sh/editormru/workbench"
)

// keptOpen reports whether editor state protects it from limit: it has unsaved
// changes that are not being saved right now, or it is scratchpad.
func keptOpen(e workbench.Editor) bool {
	return (e.IsDirty() && !e.IsSaving()) || workbench.HasCapability(e, workbench.CapScratchpad)
}

// victims are editors of one group to close.
type victims struct {
	group   workbench.GroupID
	editors []workbench.Editor
}

// planEviction chooses least recently used editors to close, so counted editors
// number does not exceed limit. Candidates are ordered from least to most recent.
// Victims are grouped by group in order of first victim appearance.
// Ties are resolved by candidates order only.
func planEviction(limit workbench.LimitSettings, candidates []mru.Identity, exclude *mru.Identity, isSticky func(mru.Identity) bool) []victims {
	if !limit.Active() {
		return nil
	}
	counted := candidates
	if limit.ExcludeDirty {
		counted = make([]mru.Identity, 0, len(candidates))
		for _, id := range candidates {
			if !keptOpen(id.Editor) {
				counted = append(counted, id)
			}
		}
	}
	if limit.Value >= len(counted) {
		return nil
	}
	toClose := len(counted) - limit.Value

	var plan []victims
	groupIndex := map[workbench.GroupID]int{}
	for _, id := range counted {
		if toClose == 0 {
			break
		}
		if !closable(id, exclude, isSticky) {
			continue
		}
		i, ok := groupIndex[id.GroupID]
		if !ok {
			i = len(plan)
			groupIndex[id.GroupID] = i
			plan = append(plan, victims{group: id.GroupID})
		}
		plan[i].editors = append(plan[i].editors, id.Editor)
		toClose--
	}
	return plan
}

func closable(id mru.Identity, exclude *mru.Identity, isSticky func(mru.Identity) bool) bool {
	if keptOpen(id.Editor) {
		return false
	}
	if exclude != nil && id.Is(exclude.GroupID, exclude.Editor) {
		return false
	}
	return !isSticky(id)
}

// ensureLimit closes least recently used editors if opened editors limit is exceeded.
// With per group limit, only scope group is checked, or every group one by one if scope is nil.
// Excluded editor is never closed.
func (o *Observer) ensureLimit(ctx context.Context, exclude *mru.Identity, scope workbench.Group) {
	limit := o.settings.Limit()
	if !limit.Active() {
		return
	}
	defer o.metrics.ensureLimit.UpdateSince(time.Now())
	if limit.PerEditorGroup {
		if scope != nil {
			o.ensureGroupLimit(ctx, limit, scope, exclude)
			return
		}
		// Sequentially: every pass can close editors and so change state of others.
		for _, g := range o.groups.Groups(workbench.GroupsByCreation) {
			o.ensureGroupLimit(ctx, limit, g, exclude)
		}
		return
	}
	o.mu.Lock()
	candidates := o.store.Editors()
	o.mu.Unlock()
	o.evict(ctx, limit, candidates, exclude)
}

func (o *Observer) ensureGroupLimit(ctx context.Context, limit workbench.LimitSettings, g workbench.Group, exclude *mru.Identity) {
	recent := g.Editors(workbench.EditorsByMostRecentlyActive)
	candidates := make([]mru.Identity, len(recent))
	for i, e := range recent {
		candidates[len(recent)-1-i] = mru.Identity{GroupID: g.ID(), Editor: e}
	}
	o.evict(ctx, limit, candidates, exclude)
}

func (o *Observer) evict(ctx context.Context, limit workbench.LimitSettings, candidates []mru.Identity, exclude *mru.Identity) {
	groups := map[workbench.GroupID]workbench.Group{}
	groupOf := func(id workbench.GroupID) workbench.Group {
		g, ok := groups[id]
		if !ok {
			g = o.groups.Group(id)
			groups[id] = g
		}
		return g
	}
	isSticky := func(id mru.Identity) bool {
		g := groupOf(id.GroupID)
		return g != nil && g.IsSticky(id.Editor)
	}
	plan := planEviction(limit, candidates, exclude, isSticky)
	for _, v := range plan {
		if ctx.Err() != nil {
			return
		}
		g := groupOf(v.group)
		if g == nil {
			o.log.Debugf("Group %v removed before its editors were closed.", v.group)
			continue
		}
		editors := o.reconcile(g, v.editors, exclude)
		if len(editors) == 0 {
			continue
		}
		o.log.Debugf("Closing %v editors in group %v to fit limit %v.", len(editors), v.group, limit.Value)
		err := g.CloseEditors(ctx, editors, workbench.CloseOptions{PreserveFocus: true})
		if err != nil {
			// Declined save confirmation, for example. Not a failure of limit.
			o.log.Debugf("Group %v has not closed editors: %v", v.group, err)
			o.metrics.closeRejected.Inc(1)
		}
		o.metrics.evicted.Inc(int64(countClosed(g, editors)))
	}
}

// reconcile filters out victims that were closed, or became protected, while
// previous close request was in process.
func (o *Observer) reconcile(g workbench.Group, editors []workbench.Editor, exclude *mru.Identity) []workbench.Editor {
	opened := g.Editors(workbench.EditorsSequential)
	res := editors[:0:0]
	for _, e := range editors {
		id := mru.Identity{GroupID: g.ID(), Editor: e}
		if indexOf(opened, e) < 0 || !closable(id, exclude, func(mru.Identity) bool { return g.IsSticky(e) }) {
			o.metrics.reconciled.Inc(1)
			continue
		}
		res = append(res, e)
	}
	return res
}

func countClosed(g workbench.Group, editors []workbench.Editor) (closed int) {
	opened := g.Editors(workbench.EditorsSequential)
	for _, e := range editors {
		if indexOf(opened, e) < 0 {
			closed++
		}
	}
	return
}
