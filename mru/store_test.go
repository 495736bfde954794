package mru

import (
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/puku-sh/editormru/testutil"
	"github.com/puku-sh/editormru/workbench"
	"github.com/puku-sh/editormru/workbench/inmem"
)

var _ = Describe("Store", func() {
	var (
		s       *Store
		changes int
		a, b, c *inmem.Document
	)
	BeforeEach(func() {
		resetTestDocs()
		s = NewStore()
		changes = 0
		s.OnChange = func() { changes++ }
		a, b, c = testDoc(), testDoc(), testDoc()
	})
	AfterEach(func() {
		s.ExpectInvariantsOk()
	})

	It("init", func() {
		Expect(s.Len()).To(BeZero())
		Expect(s.Editors()).To(BeEmpty())
		_, ok := s.MostRecent()
		Expect(ok).To(BeFalse())
	})

	Context("add", func() {
		It("first not active becomes most recent", func() {
			s.Add(1, a, false, true)
			Expect(s.Editors()).To(Equal(ids(1, a)))
			Expect(changes).To(Equal(1))
		})

		It("active becomes most recent", func() {
			s.Add(1, a, true, true)
			s.Add(1, b, true, true)
			s.Add(1, a, true, false)
			Expect(s.Editors()).To(Equal(ids(1, b, a)))
			id, ok := s.MostRecent()
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(Identity{1, a}))
			Expect(changes).To(Equal(3))
		})

		It("not active becomes second most recent", func() {
			s.Add(1, a, true, true)
			s.Add(1, b, true, true)
			s.Add(1, c, false, true)
			Expect(s.Editors()).To(Equal(ids(1, a, c, b)))
		})

		It("not active tracked moves before most recent", func() {
			s.Add(1, a, true, true)
			s.Add(1, b, true, true)
			s.Add(1, c, true, true)
			s.Add(1, a, false, false)
			Expect(s.Editors()).To(Equal(ids(1, b, a, c)))
		})

		It("not active most recent stays", func() {
			s.Add(1, a, true, true)
			s.Add(1, b, true, true)
			s.Add(1, b, false, false)
			Expect(s.Editors()).To(Equal(ids(1, a, b)))
		})

		It("same editor in different groups is different identity", func() {
			s.Add(1, a, true, true)
			s.Add(2, a, true, true)
			Expect(s.Editors()).To(Equal([]Identity{{1, a}, {2, a}}))
			Expect(s.Resources().Count(a.URI)).To(Equal(2))
			Expect(s.GroupEditors(2)).To(Equal(ids(2, a)))
		})

		It("repeated new is counted once", func() {
			s.Add(1, a, true, true)
			s.Add(1, a, true, true)
			Expect(s.Len()).To(Equal(1))
			Expect(s.Resources().Count(a.URI)).To(Equal(1))
		})

		It("not new is not counted", func() {
			s.Add(1, a, true, false)
			Expect(s.HasEditors(a.URI)).To(BeFalse())
			s.Remove(1, a)
			Expect(s.Resources().Len()).To(BeZero())
		})
	})

	Context("remove", func() {
		BeforeEach(func() {
			s.Add(1, a, true, true)
			s.Add(1, b, true, true)
			s.Add(2, c, true, true)
			changes = 0
		})

		It("tracked", func() {
			Expect(s.Remove(1, a)).To(BeTrue())
			Expect(s.Editors()).To(Equal([]Identity{{1, b}, {2, c}}))
			Expect(s.HasEditors(a.URI)).To(BeFalse())
			Expect(changes).To(Equal(1))
		})

		It("not tracked", func() {
			Expect(s.Remove(2, a)).To(BeFalse())
			Expect(s.Len()).To(Equal(3))
			Expect(changes).To(BeZero())
		})

		It("group", func() {
			Expect(s.RemoveGroup(1)).To(Equal(2))
			Expect(s.Editors()).To(Equal(ids(2, c)))
			Expect(s.Contains(1, a)).To(BeFalse())
			Expect(changes).To(Equal(1))
			Expect(s.RemoveGroup(1)).To(BeZero())
			Expect(changes).To(Equal(1))
		})

		It("slot reused", func() {
			s.Remove(1, a)
			s.Add(1, a, true, true)
			Expect(s.live()).To(Equal(3))
		})
	})

	Context("resources", func() {
		It("has editor by kind", func() {
			d := inmem.NewDocument(a.URI)
			d.Type = "preview"
			s.Add(1, a, true, true)
			s.Add(1, d, true, true)
			Expect(s.HasEditor(a.URI, inmem.TextType, "")).To(BeTrue())
			Expect(s.HasEditor(a.URI, "preview", "")).To(BeTrue())
			Expect(s.HasEditor(a.URI, "preview", "other")).To(BeFalse())
			s.Remove(1, a)
			Expect(s.HasEditor(a.URI, inmem.TextType, "")).To(BeFalse())
			Expect(s.HasEditors(a.URI)).To(BeTrue())
		})

		It("side by side is counted by primary", func() {
			sbs := inmem.NewSideBySide("compare", a, b)
			s.Add(1, sbs, true, true)
			Expect(s.HasEditor(a.URI, inmem.TextType, "")).To(BeTrue())
			Expect(s.HasEditors(b.URI)).To(BeFalse())
			s.Remove(1, sbs)
			Expect(s.HasEditors(a.URI)).To(BeFalse())
		})

		It("editor without resource is not counted", func() {
			untitled := inmem.NewDocument("")
			s.Add(1, untitled, true, true)
			Expect(s.Len()).To(Equal(1))
			Expect(s.Resources().Len()).To(BeZero())
		})
	})

	It("fuzz", func() {
		const (
			groups = 3
			ops    = 2000
		)
		var editors []workbench.Editor
		for i := 0; i < 6; i++ {
			editors = append(editors, testDoc())
		}
		// Same resource, other kind.
		preview := inmem.NewDocument(editors[0].Resource())
		preview.Type = "preview"
		editors = append(editors, preview, inmem.NewSideBySide("compare", editors[1], editors[2]), inmem.NewDocument(""))

		var model []Identity
		indexOf := func(id Identity) int {
			for i, x := range model {
				if x == id {
					return i
				}
			}
			return -1
		}
		remove := func(id Identity) {
			if i := indexOf(id); i >= 0 {
				model = append(model[:i:i], model[i+1:]...)
			}
		}
		for i := 0; i < ops; i++ {
			id := Identity{workbench.GroupID(1 + Rand.Intn(groups)), editors[Rand.Intn(len(editors))]}
			switch op := Rand.Intn(10); {
			case op < 6:
				var active bool
				Fuzz(&active)
				isNew := indexOf(id) < 0 || Rand.Intn(2) == 0
				if active || len(model) == 0 {
					remove(id)
					model = append(model, id)
				} else if prevTail := model[len(model)-1]; prevTail != id {
					remove(id)
					remove(prevTail)
					model = append(model, id, prevTail)
				}
				s.Add(id.GroupID, id.Editor, active, isNew)
				if active {
					id, _ := s.MostRecent()
					Expect(id).To(Equal(model[len(model)-1]))
				}
			case op < 9:
				tracked := indexOf(id) >= 0
				remove(id)
				Expect(s.Remove(id.GroupID, id.Editor)).To(Equal(tracked))
			default:
				var n int
				for _, x := range model {
					if x.GroupID == id.GroupID {
						n++
					}
				}
				filtered := model[:0:0]
				for _, x := range model {
					if x.GroupID != id.GroupID {
						filtered = append(filtered, x)
					}
				}
				model = filtered
				Expect(s.RemoveGroup(id.GroupID)).To(Equal(n))
			}
			Expect(s.Editors()).To(Equal(append([]Identity{}, model...)), fmt.Sprintf("op %v", i))
			s.ExpectInvariantsOk()
		}
		for _, e := range editors {
			res := workbench.PrimaryOf(e).Resource()
			if res == "" {
				continue
			}
			var tracked int
			for _, id := range model {
				if workbench.PrimaryOf(id.Editor).Resource() == res {
					tracked++
				}
			}
			Expect(s.Resources().Count(res)).To(Equal(tracked), res)
			Expect(s.HasEditors(res)).To(Equal(tracked > 0))
		}
	})
})
