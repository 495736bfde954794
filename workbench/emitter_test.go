package workbench

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Emitter", func() {
	var (
		e     Emitter[int]
		calls []string
	)
	BeforeEach(func() {
		e = Emitter[int]{}
		calls = nil
	})
	record := func(name string) func(int) {
		return func(int) { calls = append(calls, name) }
	}

	It("registration order", func() {
		e.On(record("a"))
		e.On(record("b"))
		e.Fire(1)
		Expect(calls).To(Equal([]string{"a", "b"}))
		Expect(e.Len()).To(Equal(2))
	})

	It("unsubscribe is idempotent", func() {
		unsubscribe := e.On(record("a"))
		e.On(record("b"))
		unsubscribe()
		unsubscribe()
		e.Fire(1)
		Expect(calls).To(Equal([]string{"b"}))
		Expect(e.Len()).To(Equal(1))
	})

	It("unsubscribe during fire", func() {
		var unsubscribeB Unsubscribe
		e.On(func(int) {
			calls = append(calls, "a")
			unsubscribeB()
		})
		unsubscribeB = e.On(record("b"))
		e.Fire(1)
		// Listeners are snapshot on fire.
		Expect(calls).To(Equal([]string{"a", "b"}))
		calls = nil
		e.Fire(2)
		Expect(calls).To(Equal([]string{"a"}))
	})

	It("subscribe during fire", func() {
		e.On(func(int) {
			calls = append(calls, "a")
			e.On(record("late"))
		})
		e.Fire(1)
		Expect(calls).To(Equal([]string{"a"}))
	})
})

var _ = Describe("Limit settings", func() {
	It("active", func() {
		Expect(LimitSettings{Enabled: true, Value: 1}.Active()).To(BeTrue())
		Expect(LimitSettings{Enabled: true}.Active()).To(BeFalse())
		Expect(LimitSettings{Value: 1}.Active()).To(BeFalse())
	})
})
