// Package workbench declares contracts of editor groups, editors, settings and
// state storage that editors observer is driven by. Implementations live outside
// of observer: see workbench/inmem for in memory one.
package workbench

import "context"

type GroupID int

// Unsubscribe removes listener registered by On* method. Calling it twice is no-op.
type Unsubscribe func()

type GroupOrder int

const (
	GroupsByCreation GroupOrder = iota
	// GroupsByMostRecentlyActive returns most recently active group first.
	GroupsByMostRecentlyActive
)

type EditorOrder int

const (
	// EditorsSequential is visual (tab) order.
	EditorsSequential EditorOrder = iota
	// EditorsByMostRecentlyActive returns most recently active editor first.
	EditorsByMostRecentlyActive
)

type GroupProvider interface {
	Groups(order GroupOrder) []Group
	// Group returns nil if there is no group with such id.
	Group(id GroupID) Group
	ActiveGroup() Group
	// WhenReady blocks until groups are restored.
	WhenReady(ctx context.Context) error

	OnDidAddGroup(func(Group)) Unsubscribe
	OnDidRemoveGroup(func(Group)) Unsubscribe
	OnDidActivateGroup(func(Group)) Unsubscribe
}

type CloseOptions struct {
	PreserveFocus bool
}

type Group interface {
	ID() GroupID
	Editors(order EditorOrder) []Editor
	// ActiveEditor returns nil for empty group.
	ActiveEditor() Editor
	IsSticky(e Editor) bool
	// CloseEditors may block, for example, on save confirmation.
	// Returned error means that some editors were not closed.
	CloseEditors(ctx context.Context, editors []Editor, opts CloseOptions) error

	OnDidOpenEditor(func(Editor)) Unsubscribe
	OnDidCloseEditor(func(Editor)) Unsubscribe
	OnDidActiveEditorChange(func(Editor)) Unsubscribe
}

type Capability uint32

const (
	// CapScratchpad marks editor that is never closed by limit and never counted as
	// clean, whatever its dirty state.
	CapScratchpad Capability = 1 << iota
	CapReadonly
	CapUntitled
)

// Editor is handle of opened document. Editor values are used as map keys,
// so implementations must be comparable. Pointer types are expected.
type Editor interface {
	TypeID() string
	// EditorID is optional sub identifier. Empty if editor has default one.
	EditorID() string
	// Resource is empty for editors without backing resource.
	Resource() string
	IsDirty() bool
	IsSaving() bool
	Capabilities() Capability
}

// SideBySide is implemented by composite editors that show two editors.
// Primary side identifies composite editor for resource tracking.
type SideBySide interface {
	Editor
	Primary() Editor
	Secondary() Editor
}

func HasCapability(e Editor, c Capability) bool {
	return e.Capabilities()&c != 0
}

// PrimaryOf returns primary side of side by side editor, or editor itself.
func PrimaryOf(e Editor) Editor {
	if sbs, ok := e.(SideBySide); ok {
		if p := sbs.Primary(); p != nil {
			return p
		}
	}
	return e
}

type LimitSettings struct {
	Enabled        bool
	Value          int
	PerEditorGroup bool
	ExcludeDirty   bool
}

// Active reports whether limit should be applied at all.
func (s LimitSettings) Active() bool {
	return s.Enabled && s.Value > 0
}

type SettingsProvider interface {
	Limit() LimitSettings
	OnDidChangeLimit(func(LimitSettings)) Unsubscribe
}

// StateStore is key/value storage for state that should survive restart.
type StateStore interface {
	Get(key string) (value string, ok bool, err error)
	Store(key, value string) error
	Remove(key string) error
	// OnWillSaveState listeners are called before store is persisted,
	// so they can put their latest state.
	OnWillSaveState(func()) Unsubscribe
}

type SerializerRegistry interface {
	CanSerialize(e Editor) bool
}

// SerializerFunc adapts function to SerializerRegistry.
type SerializerFunc func(e Editor) bool

func (f SerializerFunc) CanSerialize(e Editor) bool { return f(e) }
