// Package editormru tracks most recently used editors across editor groups and closes
// least recently used ones, when opened editors limit is exceeded.
//
// Observer is driven by workbench collaborators: it listens to group and editor
// events, keeps global most recently used order and persists it on state save.
package editormru

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/mru"
	"github.com/puku-sh/editormru/workbench"
)

var (
	ErrAlreadyStarted = errors.New("observer is already started")
	ErrDisposed       = errors.New("observer is disposed")
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateLive
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Deps are observer collaborators. Groups and Settings are required.
type Deps struct {
	Groups   workbench.GroupProvider
	Settings workbench.SettingsProvider
	// State can be nil for scoped observer.
	State workbench.StateStore
	// Serializers decides which editors are persisted. All editors are, if nil.
	Serializers workbench.SerializerRegistry
	// Metrics is registry to register observer metrics in. New one is created, if nil.
	Metrics metrics.Registry
}

type Config struct {
	// Scoped observer neither restores nor persists state.
	Scoped bool
	// StateKey is key of persisted state. StateKey const is used, if empty.
	StateKey string
}

type Observer struct {
	log         log.Logger
	groups      workbench.GroupProvider
	settings    workbench.SettingsProvider
	state       workbench.StateStore
	serializers workbench.SerializerRegistry
	conf        Config
	metrics     *observerMetrics

	// ctx is canceled on dispose, so close requests issued by event handlers are aborted.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	lifecycle State
	store     *mru.Store
	// changes is number of store changes not yet reported to change listeners.
	changes        int
	listeners      []workbench.Unsubscribe
	groupListeners map[workbench.GroupID][]workbench.Unsubscribe

	changed workbench.Emitter[struct{}]
}

func New(l log.Logger, deps Deps, conf Config) *Observer {
	if deps.Groups == nil || deps.Settings == nil {
		panic("editors observer requires groups and settings")
	}
	if deps.State == nil {
		conf.Scoped = true
	}
	if deps.Serializers == nil {
		deps.Serializers = workbench.SerializerFunc(func(workbench.Editor) bool { return true })
	}
	if conf.StateKey == "" {
		conf.StateKey = StateKey
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Observer{
		log:            l.WithFields(log.Fields{"component": "editors-observer"}),
		groups:         deps.Groups,
		settings:       deps.Settings,
		state:          deps.State,
		serializers:    deps.Serializers,
		conf:           conf,
		metrics:        newObserverMetrics(deps.Metrics),
		ctx:            ctx,
		cancel:         cancel,
		store:          mru.NewStore(),
		groupListeners: make(map[workbench.GroupID][]workbench.Unsubscribe),
	}
	return o
}

// Start waits for groups to be ready, restores persisted order or builds it from
// opened editors, subscribes to workbench events and applies limit once.
// Malformed persisted state fails start with error wrapping ErrCorruptedState.
// Observer that failed to start is disposed.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.lifecycle != StateUninitialized {
		state := o.lifecycle
		o.mu.Unlock()
		return errors.Wrap(ErrAlreadyStarted, state.String())
	}
	o.lifecycle = StateLoading
	o.mu.Unlock()

	err := o.groups.WhenReady(ctx)
	if err != nil {
		o.Dispose()
		return stackerr.Wrap(err)
	}
	store, err := o.load()
	if err != nil {
		o.Dispose()
		return err
	}

	o.mu.Lock()
	if o.lifecycle == StateDisposed {
		o.mu.Unlock()
		return stackerr.Wrap(ErrDisposed)
	}
	store.OnChange = o.onStoreChange
	o.store = store
	o.lifecycle = StateLive
	o.changes = 1
	o.subscribe()
	o.mu.Unlock()
	o.log.Debugf("Started with %v editors.", store.Len())

	o.notify()
	o.ensureLimit(o.ctx, o.activeIdentity(), nil)
	return nil
}

func (o *Observer) load() (*mru.Store, error) {
	if o.conf.Scoped {
		return seed(o.groups), nil
	}
	raw, ok, err := o.state.Get(o.conf.StateKey)
	if err != nil {
		return nil, stackerr.Wrap(err)
	}
	if !ok {
		o.log.Debug("No persisted editors. Using opened ones.")
		return seed(o.groups), nil
	}
	records, err := decodeState(raw)
	if err != nil {
		return nil, err
	}
	store, skipped := deserialize(o.groups, o.serializers, records)
	if skipped > 0 {
		o.log.Debugf("Skipped %v persisted editors that are not opened anymore.", skipped)
	}
	o.metrics.restored.Inc(int64(store.Len()))
	o.metrics.stateSkipped.Inc(int64(skipped))
	return store, nil
}

// subscribe should be called with lock held.
func (o *Observer) subscribe() {
	o.listeners = append(o.listeners,
		o.groups.OnDidAddGroup(o.onGroupAdded),
		o.groups.OnDidRemoveGroup(o.onGroupRemoved),
		o.groups.OnDidActivateGroup(o.onGroupActivated),
		o.settings.OnDidChangeLimit(o.onLimitChanged),
	)
	if !o.conf.Scoped {
		o.listeners = append(o.listeners, o.state.OnWillSaveState(o.onWillSaveState))
	}
	for _, g := range o.groups.Groups(workbench.GroupsByCreation) {
		o.subscribeGroup(g)
	}
}

func (o *Observer) subscribeGroup(g workbench.Group) {
	id := g.ID()
	if _, ok := o.groupListeners[id]; ok {
		return
	}
	o.groupListeners[id] = []workbench.Unsubscribe{
		g.OnDidOpenEditor(func(e workbench.Editor) { o.onEditorOpened(g, e) }),
		g.OnDidCloseEditor(func(e workbench.Editor) { o.onEditorClosed(g, e) }),
		g.OnDidActiveEditorChange(func(e workbench.Editor) { o.onActiveEditorChanged(g, e) }),
	}
}

func (o *Observer) onGroupAdded(g workbench.Group) {
	o.mu.Lock()
	if o.lifecycle != StateLive {
		o.mu.Unlock()
		return
	}
	added := o.trackGroupEditors(g)
	o.subscribeGroup(g)
	o.mu.Unlock()
	if added == 0 {
		return
	}
	o.log.Debugf("Group %v added with %v editors.", g.ID(), added)
	o.notify()
	o.ensureLimit(o.ctx, o.activeIdentity(), g)
}

// trackGroupEditors adds editors that were opened in group before it was
// observed. Group recency order is kept. Must be called with o.mu held.
func (o *Observer) trackGroupEditors(g workbench.Group) (added int) {
	id := g.ID()
	recent := g.Editors(workbench.EditorsByMostRecentlyActive)
	// Non active editors are inserted before tail, so on empty store they
	// would be swapped. Append them instead.
	appendAll := o.store.Len() == 0
	for i := len(recent) - 1; i >= 0; i-- {
		if o.store.Contains(id, recent[i]) {
			continue
		}
		o.store.Add(id, recent[i], appendAll, true)
		added++
	}
	if added == 0 {
		return
	}
	if active := o.groups.ActiveGroup(); active != nil && active.ID() == id {
		if e := g.ActiveEditor(); e != nil && o.store.Contains(id, e) {
			o.store.Add(id, e, true, false)
		}
	}
	return
}

func (o *Observer) onGroupRemoved(g workbench.Group) {
	id := g.ID()
	o.mu.Lock()
	unsubscribe := o.groupListeners[id]
	delete(o.groupListeners, id)
	o.mu.Unlock()
	for _, f := range unsubscribe {
		f()
	}
	o.update(func(s *mru.Store) {
		if n := s.RemoveGroup(id); n > 0 {
			o.log.Debugf("Group %v removed with %v editors.", id, n)
		}
	})
}

func (o *Observer) onGroupActivated(g workbench.Group) {
	e := g.ActiveEditor()
	if e == nil {
		return
	}
	o.update(func(s *mru.Store) { s.Add(g.ID(), e, true, false) })
}

func (o *Observer) onEditorOpened(g workbench.Group, e workbench.Editor) {
	if !o.update(func(s *mru.Store) { s.Add(g.ID(), e, false, true) }) {
		return
	}
	o.ensureLimit(o.ctx, &mru.Identity{GroupID: g.ID(), Editor: e}, g)
}

func (o *Observer) onEditorClosed(g workbench.Group, e workbench.Editor) {
	o.update(func(s *mru.Store) { s.Remove(g.ID(), e) })
}

func (o *Observer) onActiveEditorChanged(g workbench.Group, e workbench.Editor) {
	if e == nil {
		return
	}
	active := o.groups.ActiveGroup()
	isActiveGroup := active != nil && active.ID() == g.ID()
	if !o.update(func(s *mru.Store) { s.Add(g.ID(), e, isActiveGroup, false) }) {
		return
	}
	o.ensureLimit(o.ctx, &mru.Identity{GroupID: g.ID(), Editor: e}, g)
}

func (o *Observer) onLimitChanged(workbench.LimitSettings) {
	if o.State() != StateLive {
		return
	}
	o.ensureLimit(o.ctx, o.activeIdentity(), nil)
}

func (o *Observer) onWillSaveState() {
	if err := o.SaveState(); err != nil {
		o.log.Errorf("Editors state save failed: %v", err)
	}
}

func (o *Observer) onStoreChange() { o.changes++ }

// update applies f to store with lock held, and then notifies change listeners.
// Returns false if observer is not live, and f was not called.
func (o *Observer) update(f func(s *mru.Store)) bool {
	o.mu.Lock()
	if o.lifecycle != StateLive {
		o.mu.Unlock()
		return false
	}
	f(o.store)
	o.mu.Unlock()
	o.notify()
	return true
}

// notify fires change event for every pending store change.
func (o *Observer) notify() {
	o.mu.Lock()
	changes := o.changes
	o.changes = 0
	o.metrics.editors.Update(int64(o.store.Len()))
	o.mu.Unlock()
	for ; changes > 0; changes-- {
		o.changed.Fire(struct{}{})
	}
}

// activeIdentity returns active editor of active group, or nil.
func (o *Observer) activeIdentity() *mru.Identity {
	g := o.groups.ActiveGroup()
	if g == nil {
		return nil
	}
	e := g.ActiveEditor()
	if e == nil {
		return nil
	}
	return &mru.Identity{GroupID: g.ID(), Editor: e}
}

// Count returns number of tracked editors.
func (o *Observer) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Len()
}

// Editors returns tracked editors from least to most recently used.
func (o *Observer) Editors() []mru.Identity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Editors()
}

// HasEditor reports whether editor of type and id is opened for resource in any group.
// Side by side editors are accounted by their primary side.
func (o *Observer) HasEditor(resource, typeID, editorID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.HasEditor(resource, typeID, editorID)
}

// HasEditors reports whether any editor is opened for resource in any group.
func (o *Observer) HasEditors(resource string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.HasEditors(resource)
}

// OnDidChange listener is called once after every change of most recently used order.
func (o *Observer) OnDidChange(f func()) workbench.Unsubscribe {
	return o.changed.On(func(struct{}) { f() })
}

// EnsureLimit closes least recently used editors, if limit is exceeded.
// Active editor of active group is never closed.
func (o *Observer) EnsureLimit(ctx context.Context) {
	if o.State() != StateLive {
		return
	}
	o.ensureLimit(ctx, o.activeIdentity(), nil)
}

// SaveState stores serialized order, or removes stored one if nothing can be serialized.
// Scoped observer doesn't store anything.
func (o *Observer) SaveState() error {
	if o.conf.Scoped {
		return nil
	}
	o.mu.Lock()
	if o.lifecycle != StateLive {
		o.mu.Unlock()
		return nil
	}
	ids := o.store.Editors()
	o.mu.Unlock()

	records, skipped := serialize(o.groups, o.serializers, ids)
	o.metrics.stateSkipped.Inc(int64(skipped))
	var err error
	if len(records) == 0 {
		err = o.state.Remove(o.conf.StateKey)
	} else {
		var raw string
		raw, err = encodeState(records)
		if err == nil {
			err = o.state.Store(o.conf.StateKey, raw)
		}
	}
	if err != nil {
		o.metrics.saveErrors.Inc(1)
		return stackerr.Wrap(err)
	}
	o.metrics.stateSaved.Inc(1)
	return nil
}

func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lifecycle
}

// Metrics returns registry with observer metrics.
func (o *Observer) Metrics() metrics.Registry { return o.metrics.registry }

// Dispose unsubscribes from all events and aborts close requests in process.
// Disposed observer can't be started again. Calling Dispose twice is no-op.
func (o *Observer) Dispose() {
	o.mu.Lock()
	if o.lifecycle == StateDisposed {
		o.mu.Unlock()
		return
	}
	o.lifecycle = StateDisposed
	unsubscribe := o.listeners
	o.listeners = nil
	for _, group := range o.groupListeners {
		unsubscribe = append(unsubscribe, group...)
	}
	o.groupListeners = make(map[workbench.GroupID][]workbench.Unsubscribe)
	o.store.OnChange = nil
	o.mu.Unlock()

	o.cancel()
	for _, f := range unsubscribe {
		f()
	}
	o.log.Debug("Disposed.")
}
