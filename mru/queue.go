package mru

import "fmt"

// Pre and post conditions (Invariants) for queue methods:
// * queue owns attached nodes between fakeHead and fakeTail.
// * {fakeHead, all attached nodes, fakeTail} are correct doubly linked list.
// * detached nodes have prev and next equal to noSlot.
// * queue.len equal number of attached nodes.
type queue struct {
	*arena
	len int

	// Fake nodes. Real nodes are between them.
	// noSlot <- fakeHead <-> node_0 <-> ... <-> node_(n-1) <-> fakeTail -> noSlot
	// Such structure prevent emptiness checks in code.
	// fakeHead.next is least recent node. fakeTail.prev is most recent node.
}

func newQueue(a *arena) queue {
	q := queue{arena: a}
	q.link(fakeHead, fakeTail)
	return q
}

// pushBack attaches detached node as most recent.
func (q *queue) pushBack(s slot) {
	q.insertBefore(s, fakeTail)
}

// moveToBack makes node most recent. Node can be attached or not.
func (q *queue) moveToBack(s slot) {
	if q.at(s).attached() {
		if q.tail() == s {
			return
		}
		q.detach(s)
	}
	q.pushBack(s)
}

func (q *queue) insertBefore(s, before slot) {
	q.assertNotFake(s)
	if q.at(s).attached() {
		panic(fmt.Sprintf("insert of attached node %v", q.at(s).Identity))
	}
	q.link(q.at(before).prev, s)
	q.link(s, before)
	q.len++
}

func (q *queue) detach(s slot) {
	q.assertNotFake(s)
	n := q.at(s)
	q.link(n.prev, n.next)
	n.prev, n.next = noSlot, noSlot
	q.len--
}

func (q *queue) head() slot       { return q.at(fakeHead).next }
func (q *queue) tail() slot       { return q.at(fakeTail).prev }
func (q *queue) end(s slot) bool  { return s == fakeTail }
func (q *queue) empty() bool      { return q.len == 0 }
func (q *queue) next(s slot) slot { return q.at(s).next }

func (q *queue) link(a, b slot) { q.at(a).next, q.at(b).prev = b, a }

func (q *queue) assertNotFake(s slot) {
	if s < firstSlot {
		panic(fmt.Sprintf("fake node %v passed", s))
	}
}

// each calls f for nodes from least to most recent while f returns true.
// f must not modify queue.
func (q *queue) each(f func(s slot, n *node) bool) {
	for s := q.head(); !q.end(s); s = q.next(s) {
		if !f(s, q.at(s)) {
			return
		}
	}
}
