package inmem

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/puku-sh/editormru/workbench"
)

var _ = Describe("Group", func() {
	var (
		g       *Group
		a, b, c *Document
		events  []string
	)
	BeforeEach(func() {
		g = newGroup(1)
		a, b, c = NewDocument("a"), NewDocument("b"), NewDocument("c")
		events = nil
		g.OnDidOpenEditor(func(e workbench.Editor) { events = append(events, "open "+e.Resource()) })
		g.OnDidCloseEditor(func(e workbench.Editor) { events = append(events, "close "+e.Resource()) })
		g.OnDidActiveEditorChange(func(e workbench.Editor) { events = append(events, "active "+e.Resource()) })
	})

	It("open", func() {
		g.Open(a, OpenOptions{})
		g.Open(b, OpenOptions{})
		g.Open(c, OpenOptions{Inactive: true, Sticky: true})
		Expect(labels(g.Editors(workbench.EditorsSequential))).To(Equal([]string{"a", "b", "c"}))
		Expect(labels(g.Editors(workbench.EditorsByMostRecentlyActive))).To(Equal([]string{"b", "c", "a"}))
		Expect(g.ActiveEditor()).To(BeIdenticalTo(b))
		Expect(g.IsSticky(c)).To(BeTrue())
		Expect(events).To(Equal([]string{"open a", "active a", "open b", "active b", "open c"}))
	})

	It("first inactive is active", func() {
		g.Open(a, OpenOptions{Inactive: true})
		Expect(g.ActiveEditor()).To(BeIdenticalTo(a))
		Expect(events).To(Equal([]string{"open a", "active a"}))
	})

	It("reopen activates", func() {
		g.Open(a, OpenOptions{})
		g.Open(b, OpenOptions{})
		events = nil
		g.Open(a, OpenOptions{})
		Expect(g.ActiveEditor()).To(BeIdenticalTo(a))
		Expect(events).To(Equal([]string{"active a"}))
	})

	It("close active activates next", func() {
		g.Open(a, OpenOptions{})
		g.Open(b, OpenOptions{})
		events = nil
		Expect(g.Close(b)).To(BeTrue())
		Expect(g.Close(b)).To(BeFalse())
		Expect(g.ActiveEditor()).To(BeIdenticalTo(a))
		Expect(events).To(Equal([]string{"close b", "active a"}))
		Expect(g.Activate(b)).To(BeFalse())
	})

	It("close editors with veto", func() {
		g.Open(a, OpenOptions{})
		g.Open(b, OpenOptions{})
		g.Open(c, OpenOptions{})
		g.Veto = func(e workbench.Editor) error {
			if e == b {
				return errors.New("declined")
			}
			return nil
		}
		err := g.CloseEditors(context.Background(), []workbench.Editor{a, b}, workbench.CloseOptions{})
		Expect(errors.Cause(err)).To(Equal(ErrNotClosed))
		Expect(labels(g.Editors(workbench.EditorsSequential))).To(Equal([]string{"b", "c"}))
	})

	It("close editors canceled", func() {
		g.Open(a, OpenOptions{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := g.CloseEditors(ctx, []workbench.Editor{a}, workbench.CloseOptions{})
		Expect(errors.Cause(err)).To(Equal(context.Canceled))
		Expect(g.Contains(a)).To(BeTrue())
	})

	It("pin", func() {
		g.Open(a, OpenOptions{})
		g.Pin(a, true)
		Expect(g.IsSticky(a)).To(BeTrue())
		g.Pin(a, false)
		Expect(g.IsSticky(a)).To(BeFalse())
	})
})

var _ = Describe("Groups", func() {
	var (
		p      *Groups
		events []string
	)
	BeforeEach(func() {
		p = NewGroups()
		events = nil
		p.OnDidAddGroup(func(g workbench.Group) { events = append(events, "add") })
		p.OnDidRemoveGroup(func(g workbench.Group) { events = append(events, "remove") })
		p.OnDidActivateGroup(func(g workbench.Group) { events = append(events, "activate") })
	})

	It("first added is active", func() {
		Expect(p.ActiveGroup()).To(BeNil())
		g1 := p.AddGroup()
		g2 := p.AddGroup()
		Expect(p.ActiveGroup()).To(BeIdenticalTo(g1))
		Expect(p.ActivateGroup(g2.ID())).To(BeTrue())
		Expect(p.ActiveGroup()).To(BeIdenticalTo(g2))
		Expect(p.Groups(workbench.GroupsByCreation)).To(Equal([]workbench.Group{g1, g2}))
		Expect(p.Groups(workbench.GroupsByMostRecentlyActive)).To(Equal([]workbench.Group{g2, g1}))
		Expect(p.ActivateGroup(7)).To(BeFalse())
		Expect(events).To(Equal([]string{"add", "add", "activate"}))
	})

	It("remove closes editors", func() {
		g1 := p.AddGroup()
		g2 := p.AddGroup()
		p.ActivateGroup(g2.ID())
		var closed int
		g2.OnDidCloseEditor(func(workbench.Editor) { closed++ })
		g2.Open(NewDocument("a"), OpenOptions{})
		events = nil
		Expect(p.RemoveGroup(g2.ID())).To(BeTrue())
		Expect(closed).To(Equal(1))
		Expect(p.Group(g2.ID())).To(BeNil())
		Expect(p.Get(g1.ID())).To(BeIdenticalTo(g1))
		Expect(p.ActiveGroup()).To(BeIdenticalTo(g1))
		Expect(events).To(Equal([]string{"remove", "activate"}))
		Expect(p.RemoveGroup(g2.ID())).To(BeFalse())
	})

	It("pending until ready", func() {
		pending := NewPendingGroups()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(pending.WhenReady(ctx)).To(Equal(context.Canceled))
		pending.MarkReady()
		pending.MarkReady()
		Expect(pending.WhenReady(context.Background())).To(Succeed())
	})
})

var _ = Describe("Documents", func() {
	It("side by side", func() {
		p, s := NewDocument("p"), NewDocument("s")
		s.SetCapabilities(workbench.CapReadonly)
		sbs := NewSideBySide("p|s", p, s)
		Expect(sbs.Resource()).To(Equal("p"))
		Expect(workbench.PrimaryOf(sbs)).To(BeIdenticalTo(p))
		p.SetDirty(true)
		Expect(sbs.IsDirty()).To(BeTrue())
		Expect(workbench.HasCapability(sbs, workbench.CapReadonly)).To(BeTrue())
	})

	It("serializers", func() {
		p, s := NewDocument("p"), NewDocument("s")
		sbs := NewSideBySide("p|s", p, s)
		Expect(Serializers.CanSerialize(sbs)).To(BeTrue())
		s.Transient = true
		Expect(Serializers.CanSerialize(s)).To(BeFalse())
		Expect(Serializers.CanSerialize(sbs)).To(BeFalse())
	})
})

var _ = Describe("Settings", func() {
	It("set notifies", func() {
		s := NewSettings(workbench.LimitSettings{})
		var got []workbench.LimitSettings
		s.OnDidChangeLimit(func(l workbench.LimitSettings) { got = append(got, l) })
		l := workbench.LimitSettings{Enabled: true, Value: 2}
		s.SetLimit(l)
		Expect(s.Limit()).To(Equal(l))
		Expect(got).To(Equal([]workbench.LimitSettings{l}))
	})
})
