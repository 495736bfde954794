//go:build debug
// +build debug

// Gomega should not be dependency in non-debug build.

package mru

import (
	"errors"
	"log"

	"github.com/facebookgo/stackerr"
	. "github.com/onsi/gomega"

	"github.com/puku-sh/editormru/workbench"
)

var _ = func() (_ struct{}) {
	RegisterFailHandler(GomegaFailHandler)
	return
}()

func GomegaFailHandler(message string, callerSkip ...int) {
	skip := 1
	if len(callerSkip) > 0 {
		skip += callerSkip[0]
	}
	log.Fatal("FATAL: invariants are broken:", stackerr.WrapSkip(errors.New(message), skip))
}

func (s *Store) checkInvariants() {
	Expect(s.at(fakeHead).prev).To(Equal(noSlot))
	Expect(s.at(fakeTail).next).To(Equal(noSlot))
	var items int
	counted := map[string]int{}
	for sl := s.order.head(); !s.order.end(sl); sl = s.order.next(sl) {
		items++
		n := s.at(sl)
		Expect(s.at(n.prev).next).To(Equal(sl))
		registered, ok := s.keys[n.GroupID][n.Editor]
		Expect(ok).To(BeTrue(), "no registry ref to %v", n.Identity)
		Expect(registered).To(Equal(sl), "registry refs to another slot")
		if n.counted {
			counted[workbench.PrimaryOf(n.Editor).Resource()]++
		}
	}
	Expect(s.at(s.order.tail()).next).To(Equal(fakeTail))
	Expect(items).To(Equal(s.order.len))
	Expect(items).To(Equal(s.live()), "leaked slots")
	var registered int
	for _, groupKeys := range s.keys {
		Expect(groupKeys).NotTo(BeEmpty())
		registered += len(groupKeys)
	}
	Expect(registered).To(Equal(items), "too many registry items")
	for res, c := range counted {
		Expect(s.resources.Count(res)).To(Equal(c), "resource %s miscounted", res)
	}
}
