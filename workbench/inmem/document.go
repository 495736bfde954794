// Package inmem implements workbench contracts in memory.
// It is used by tests and by simulator command.
package inmem

import (
	"sync"

	"github.com/puku-sh/editormru/workbench"
)

const TextType = "text"

// Document is plain editor. Dirty, saving and capability state is set by caller.
type Document struct {
	Name string
	Type string
	ID   string
	URI  string
	// Transient documents can't be serialized.
	Transient bool

	mu     sync.Mutex
	dirty  bool
	saving bool
	caps   workbench.Capability
}

var _ workbench.Editor = (*Document)(nil)

// NewDocument returns text document named as its resource.
func NewDocument(uri string) *Document {
	return &Document{Name: uri, Type: TextType, URI: uri}
}

func (d *Document) TypeID() string   { return d.Type }
func (d *Document) EditorID() string { return d.ID }
func (d *Document) Resource() string { return d.URI }
func (d *Document) String() string   { return d.Name }

func (d *Document) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *Document) IsSaving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saving
}

func (d *Document) Capabilities() workbench.Capability {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

func (d *Document) SetDirty(dirty bool) *Document {
	d.mu.Lock()
	d.dirty = dirty
	d.mu.Unlock()
	return d
}

func (d *Document) SetSaving(saving bool) *Document {
	d.mu.Lock()
	d.saving = saving
	d.mu.Unlock()
	return d
}

func (d *Document) SetCapabilities(c workbench.Capability) *Document {
	d.mu.Lock()
	d.caps = c
	d.mu.Unlock()
	return d
}

// SideBySideDocument shows two editors. Dirty state is taken from primary side.
type SideBySideDocument struct {
	Name      string
	primary   workbench.Editor
	secondary workbench.Editor
}

var _ workbench.SideBySide = (*SideBySideDocument)(nil)

func NewSideBySide(name string, primary, secondary workbench.Editor) *SideBySideDocument {
	return &SideBySideDocument{Name: name, primary: primary, secondary: secondary}
}

func (d *SideBySideDocument) Primary() workbench.Editor   { return d.primary }
func (d *SideBySideDocument) Secondary() workbench.Editor { return d.secondary }
func (d *SideBySideDocument) TypeID() string              { return "side-by-side" }
func (d *SideBySideDocument) EditorID() string            { return "" }
func (d *SideBySideDocument) Resource() string            { return d.primary.Resource() }
func (d *SideBySideDocument) IsDirty() bool               { return d.primary.IsDirty() }
func (d *SideBySideDocument) IsSaving() bool              { return d.primary.IsSaving() }
func (d *SideBySideDocument) String() string              { return d.Name }

func (d *SideBySideDocument) Capabilities() workbench.Capability {
	return d.primary.Capabilities() | d.secondary.Capabilities()
}

// Serializers can serialize any not transient document.
var Serializers = workbench.SerializerFunc(canSerialize)

func canSerialize(e workbench.Editor) bool {
	switch d := e.(type) {
	case *Document:
		return !d.Transient
	case *SideBySideDocument:
		return canSerialize(d.primary) && canSerialize(d.secondary)
	}
	return false
}
