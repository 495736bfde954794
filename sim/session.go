package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/puku-sh/editormru"
	"github.com/puku-sh/editormru/internal/util"
	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/statestore"
	"github.com/puku-sh/editormru/workbench"
	"github.com/puku-sh/editormru/workbench/inmem"
)

var (
	ErrVetoed           = errors.New("close vetoed")
	ErrExternalSettings = errors.New("limit is controlled by config file")
)

type Config struct {
	// Limit is initial limit of in memory settings.
	Limit workbench.LimitSettings
	// Settings replaces in memory settings, if not nil. Limit command fails then.
	Settings workbench.SettingsProvider
	// Store is in memory one, if nil.
	Store    statestore.Persistent
	Observer editormru.Config
	Metrics  metrics.Registry
}

// Session is simulated workbench. Groups layout can be built by group, open, activate,
// pin, dirty and veto commands before observer start. Observer is started by ready
// command or by first other command.
type Session struct {
	log      log.Logger
	groups   *inmem.Groups
	settings *inmem.Settings
	store    statestore.Persistent
	observer *editormru.Observer
	started  bool

	// editors are keyed by name: resource for documents, "primary|secondary" for side by side.
	editors   map[string]workbench.Editor
	documents map[string]*inmem.Document
	vetoed    map[workbench.GroupID]map[workbench.Editor]bool
}

func NewSession(l log.Logger, conf Config) *Session {
	s := &Session{
		log:       l,
		groups:    inmem.NewPendingGroups(),
		store:     conf.Store,
		editors:   make(map[string]workbench.Editor),
		documents: make(map[string]*inmem.Document),
		vetoed:    make(map[workbench.GroupID]map[workbench.Editor]bool),
	}
	if s.store == nil {
		s.store = statestore.NewMemory()
	}
	settings := conf.Settings
	if settings == nil {
		s.settings = inmem.NewSettings(conf.Limit)
		settings = s.settings
	}
	s.observer = editormru.New(l, editormru.Deps{
		Groups:      s.groups,
		Settings:    settings,
		State:       s.store,
		Serializers: inmem.Serializers,
		Metrics:     conf.Metrics,
	}, conf.Observer)
	return s
}

func (s *Session) Observer() *editormru.Observer { return s.observer }

// Close stops observer and closes store. Store is saved on close, so observer
// state is persisted before observer is disposed.
func (s *Session) Close() error {
	err := s.store.Close()
	s.observer.Dispose()
	return err
}

// Run executes commands from r until EOF. Client errors are reported in w and don't stop
// execution. Returned error is I/O error or observer start failure.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	c := &conn{
		Session: s,
		reader:  newReader(r),
		Writer:  bufio.NewWriterSize(w, OutBufferSize),
	}
	defer c.Flush()
	return c.loop(ctx)
}

func (s *Session) start(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true
	s.groups.MarkReady()
	return s.observer.Start(ctx)
}

type conn struct {
	*Session
	reader
	*bufio.Writer
}

func (c *conn) loop(ctx context.Context) error {
	for {
		command, fields, clientErr, err := c.readCommand()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if clientErr == nil {
			c.log.Debugf("Command: %s.", command)
			switch string(command) {
			case GroupCommand:
				clientErr, err = c.group(fields)
			case OpenCommand:
				clientErr, err = c.open(fields)
			case ActivateCommand:
				clientErr, err = c.activate(fields)
			case PinCommand:
				clientErr, err = c.pin(fields)
			case DirtyCommand:
				clientErr, err = c.dirty(fields)
			case VetoCommand:
				clientErr, err = c.veto(fields)
			default:
				err = c.start(ctx)
				if err != nil {
					c.sendResponse(fmt.Sprintf("%s %s", ServerErrorResponse, errors.Cause(util.Unwrap(err))))
					return err
				}
				switch string(command) {
				case ReadyCommand:
					err = c.sendResponse(OKResponse)
				case CloseCommand:
					clientErr, err = c.close(fields)
				case LimitCommand:
					clientErr, err = c.limit(fields)
				case ListCommand:
					clientErr, err = c.list(fields)
				case HasCommand:
					clientErr, err = c.has(fields)
				case SaveCommand:
					clientErr, err = c.save(fields)
				default:
					c.log.Errorf("Unexpected command: %s", command)
					err = c.sendResponse(ErrorResponse)
				}
			}
		}
		if clientErr != nil && err == nil {
			err = c.sendClientError(clientErr)
		}
		if err != nil {
			return err
		}
	}
}

// group [add] | group remove <id> | group activate <id>
func (c *conn) group(fields [][]byte) (clientErr, err error) {
	if len(fields) == 0 || string(fields[0]) == "add" {
		if len(fields) > 1 {
			clientErr = stackerr.Wrap(ErrTooManyFields)
			return
		}
		g := c.groups.AddGroup()
		err = c.sendResponse(fmt.Sprintf("%s %v", GroupResponse, g.ID()))
		return
	}
	_, clientErr = checkFields(fields, 2, 0)
	if clientErr != nil {
		return
	}
	var id workbench.GroupID
	id, clientErr = parseGroupID(fields[1])
	if clientErr != nil {
		return
	}
	var ok bool
	switch string(fields[0]) {
	case "remove":
		ok = c.groups.RemoveGroup(id)
		delete(c.vetoed, id)
	case "activate":
		ok = c.groups.ActivateGroup(id)
	default:
		clientErr = stackerr.Newf("%s: %s", ErrInvalidOption, fields[0])
		return
	}
	if !ok {
		clientErr = stackerr.Newf("%s: %v", ErrUnknownGroup, id)
		return
	}
	err = c.sendResponse(OKResponse)
	return
}

// open <group> <uri> [inactive] [sticky] [transient] [scratchpad] [readonly] [untitled]
// open <group> <primary-uri>|<secondary-uri> opens side by side editor.
func (c *conn) open(fields [][]byte) (clientErr, err error) {
	var options [][]byte
	options, clientErr = checkFields(fields, 2, 6)
	if clientErr != nil {
		return
	}
	var set map[string]bool
	set, clientErr = optionSet(options, "inactive", "sticky", "transient", "scratchpad", "readonly", "untitled")
	if clientErr != nil {
		return
	}
	var g *inmem.Group
	g, clientErr = c.lookupGroup(fields[0])
	if clientErr != nil {
		return
	}
	e := c.editor(string(fields[1]))
	if d, ok := e.(*inmem.Document); ok {
		if set["transient"] {
			d.Transient = true
		}
		var caps workbench.Capability
		if set["scratchpad"] {
			caps |= workbench.CapScratchpad
		}
		if set["readonly"] {
			caps |= workbench.CapReadonly
		}
		if set["untitled"] {
			caps |= workbench.CapUntitled
		}
		if caps != 0 {
			d.SetCapabilities(d.Capabilities() | caps)
		}
	}
	g.Open(e, inmem.OpenOptions{Inactive: set["inactive"], Sticky: set["sticky"]})
	err = c.sendResponse(OKResponse)
	return
}

// activate <group> <uri>
func (c *conn) activate(fields [][]byte) (clientErr, err error) {
	var g *inmem.Group
	var e workbench.Editor
	g, e, clientErr = c.groupEditor(fields, 0)
	if clientErr != nil {
		return
	}
	g.Activate(e)
	err = c.sendResponse(OKResponse)
	return
}

// close <group> <uri> closes editor with veto check, as user would do.
func (c *conn) close(fields [][]byte) (clientErr, err error) {
	var g *inmem.Group
	var e workbench.Editor
	g, e, clientErr = c.groupEditor(fields, 0)
	if clientErr != nil {
		return
	}
	closeErr := g.CloseEditors(context.Background(), []workbench.Editor{e}, workbench.CloseOptions{})
	if errors.Cause(closeErr) == inmem.ErrNotClosed {
		clientErr = stackerr.Wrap(ErrVetoed)
		return
	}
	if closeErr != nil {
		err = closeErr
		return
	}
	err = c.sendResponse(OKResponse)
	return
}

// pin <group> <uri> [off]
func (c *conn) pin(fields [][]byte) (clientErr, err error) {
	var g *inmem.Group
	var e workbench.Editor
	var off bool
	g, e, off, clientErr = c.groupEditorSwitch(fields)
	if clientErr != nil {
		return
	}
	g.Pin(e, !off)
	err = c.sendResponse(OKResponse)
	return
}

// veto <group> <uri> [off] makes group refuse to close editor.
func (c *conn) veto(fields [][]byte) (clientErr, err error) {
	var g *inmem.Group
	var e workbench.Editor
	var off bool
	g, e, off, clientErr = c.groupEditorSwitch(fields)
	if clientErr != nil {
		return
	}
	vetoed, ok := c.vetoed[g.ID()]
	if !ok {
		vetoed = make(map[workbench.Editor]bool)
		c.vetoed[g.ID()] = vetoed
		g.Veto = func(e workbench.Editor) error {
			if vetoed[e] {
				return ErrVetoed
			}
			return nil
		}
	}
	if off {
		delete(vetoed, e)
	} else {
		vetoed[e] = true
	}
	err = c.sendResponse(OKResponse)
	return
}

// dirty <uri> [off|saving]
func (c *conn) dirty(fields [][]byte) (clientErr, err error) {
	var options [][]byte
	options, clientErr = checkFields(fields, 1, 1)
	if clientErr != nil {
		return
	}
	d, ok := c.documents[string(fields[0])]
	if !ok {
		clientErr = stackerr.Newf("%s: %s", ErrUnknownEditor, fields[0])
		return
	}
	var set map[string]bool
	set, clientErr = optionSet(options, "off", "saving")
	if clientErr != nil {
		return
	}
	switch {
	case set["off"]:
		d.SetDirty(false).SetSaving(false)
	case set["saving"]:
		d.SetDirty(true).SetSaving(true)
	default:
		d.SetDirty(true).SetSaving(false)
	}
	err = c.sendResponse(OKResponse)
	return
}

// limit off | limit <value> [per-group] [exclude-dirty]
func (c *conn) limit(fields [][]byte) (clientErr, err error) {
	if c.settings == nil {
		clientErr = stackerr.Wrap(ErrExternalSettings)
		return
	}
	var options [][]byte
	options, clientErr = checkFields(fields, 1, 2)
	if clientErr != nil {
		return
	}
	if string(fields[0]) == "off" {
		if len(options) != 0 {
			clientErr = stackerr.Wrap(ErrTooManyFields)
			return
		}
		c.settings.SetLimit(workbench.LimitSettings{})
		err = c.sendResponse(OKResponse)
		return
	}
	value, parseErr := strconv.Atoi(string(fields[0]))
	if parseErr != nil {
		clientErr = stackerr.Newf("%s: %s", ErrFieldsParseError, parseErr)
		return
	}
	var set map[string]bool
	set, clientErr = optionSet(options, "per-group", "exclude-dirty")
	if clientErr != nil {
		return
	}
	c.settings.SetLimit(workbench.LimitSettings{
		Enabled:        true,
		Value:          value,
		PerEditorGroup: set["per-group"],
		ExcludeDirty:   set["exclude-dirty"],
	})
	err = c.sendResponse(OKResponse)
	return
}

// list [group] responds with editors from least to most recently used.
func (c *conn) list(fields [][]byte) (clientErr, err error) {
	_, clientErr = checkFields(fields, 0, 1)
	if clientErr != nil {
		return
	}
	var only *workbench.GroupID
	if len(fields) == 1 {
		var id workbench.GroupID
		id, clientErr = parseGroupID(fields[0])
		if clientErr != nil {
			return
		}
		only = &id
	}
	for _, id := range c.observer.Editors() {
		if only != nil && id.GroupID != *only {
			continue
		}
		fmt.Fprintf(c, "%s %v %v"+Separator, EditorResponse, id.GroupID, id.Editor)
	}
	err = c.sendResponse(EndResponse)
	return
}

// has <uri>
func (c *conn) has(fields [][]byte) (clientErr, err error) {
	_, clientErr = checkFields(fields, 1, 0)
	if clientErr != nil {
		return
	}
	res := NoResponse
	if c.observer.HasEditors(string(fields[0])) {
		res = YesResponse
	}
	err = c.sendResponse(res)
	return
}

func (c *conn) save(fields [][]byte) (clientErr, err error) {
	_, clientErr = checkFields(fields, 0, 0)
	if clientErr != nil {
		return
	}
	err = c.store.Save()
	if err != nil {
		return
	}
	err = c.sendResponse(OKResponse)
	return
}

// editor returns known editor by name or creates new one.
func (c *conn) editor(name string) workbench.Editor {
	if e, ok := c.editors[name]; ok {
		return e
	}
	var e workbench.Editor
	if primary, secondary, ok := splitSideBySide(name); ok {
		e = inmem.NewSideBySide(name, c.editor(primary), c.editor(secondary))
	} else {
		d := inmem.NewDocument(name)
		c.documents[name] = d
		e = d
	}
	c.editors[name] = e
	return e
}

func splitSideBySide(name string) (primary, secondary string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '|' {
			primary, secondary = name[:i], name[i+1:]
			return primary, secondary, primary != "" && secondary != ""
		}
	}
	return
}

func (c *conn) lookupGroup(f []byte) (*inmem.Group, error) {
	id, err := parseGroupID(f)
	if err != nil {
		return nil, err
	}
	g := c.groups.Get(id)
	if g == nil {
		return nil, stackerr.Newf("%s: %v", ErrUnknownGroup, id)
	}
	return g, nil
}

func (c *conn) groupEditor(fields [][]byte, maxOptions int) (g *inmem.Group, e workbench.Editor, err error) {
	_, err = checkFields(fields, 2, maxOptions)
	if err != nil {
		return
	}
	g, err = c.lookupGroup(fields[0])
	if err != nil {
		return
	}
	e, ok := c.editors[string(fields[1])]
	if !ok || !g.Contains(e) {
		err = stackerr.Newf("%s: %s in group %v", ErrUnknownEditor, fields[1], g.ID())
	}
	return
}

func (c *conn) groupEditorSwitch(fields [][]byte) (g *inmem.Group, e workbench.Editor, off bool, err error) {
	g, e, err = c.groupEditor(fields, 1)
	if err != nil {
		return
	}
	if len(fields) == 3 {
		if string(fields[2]) != "off" {
			err = stackerr.Newf("%s: %s", ErrInvalidOption, fields[2])
			return
		}
		off = true
	}
	return
}

func (c *conn) sendClientError(err error) error {
	c.log.Debug("Client error: ", err)
	return c.sendResponse(fmt.Sprintf("%s %s", ClientErrorResponse, errors.Cause(util.Unwrap(err))))
}

func (c *conn) sendResponse(res string) error {
	c.WriteString(res)
	c.WriteString(Separator)
	return c.Flush()
}

func (c *conn) Flush() error {
	return stackerr.Wrap(c.Writer.Flush())
}
