package sim

import (
	"bytes"
	"context"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gbytes"
	"github.com/rcrowley/go-metrics"

	"github.com/puku-sh/editormru"
	"github.com/puku-sh/editormru/statestore"
	. "github.com/puku-sh/editormru/testutil"
	"github.com/puku-sh/editormru/workbench"
	"github.com/puku-sh/editormru/workbench/inmem"
)

var _ = Describe("Session", func() {
	var (
		conf Config
		s    *Session
	)
	BeforeEach(func() {
		conf = Config{Metrics: metrics.NewRegistry()}
		s = nil
	})
	AfterEach(func() {
		if s != nil {
			Expect(s.Close()).To(Succeed())
		}
	})
	run := func(script ...string) string {
		if s == nil {
			s = NewSession(testLogger(), conf)
		}
		out := &bytes.Buffer{}
		err := s.Run(context.Background(), strings.NewReader(Lines(script...)), out)
		Expect(err).To(BeNil(), "%v", err)
		return out.String()
	}

	It("layout and list", func() {
		Expect(run(
			"# two groups",
			"group",
			"group add",
			"",
			"open 1 a",
			"open 1 b",
			"open 2 x",
			"list",
			"list 1",
		)).To(Equal(Lines(
			"GROUP 1",
			"GROUP 2",
			"OK", "OK", "OK",
			"EDITOR 2 x",
			"EDITOR 1 a",
			"EDITOR 1 b",
			"END",
			"EDITOR 1 a",
			"EDITOR 1 b",
			"END",
		)))
		Expect(s.Observer().State()).To(Equal(editormru.StateLive))
	})

	It("last line without separator", func() {
		s = NewSession(testLogger(), conf)
		out := &bytes.Buffer{}
		Expect(s.Run(context.Background(), strings.NewReader("group\nready"), out)).To(Succeed())
		Expect(out.String()).To(Equal(Lines("GROUP 1", "OK")))
	})

	It("limit closes least recently used", func() {
		Expect(run(
			"group",
			"open 1 a",
			"open 1 b",
			"open 1 c",
			"limit 2",
			"list",
			"has a",
			"has c",
		)).To(Equal(Lines(
			"GROUP 1", "OK", "OK", "OK",
			"OK",
			"EDITOR 1 b",
			"EDITOR 1 c",
			"END",
			"NO",
			"YES",
		)))
		Expect(conf.Metrics.Get(editormru.MetricEvicted).(metrics.Counter).Count()).To(BeEquivalentTo(1))
	})

	It("dirty is kept", func() {
		Expect(run(
			"group",
			"open 1 a",
			"dirty a",
			"open 1 b",
			"limit 1 exclude-dirty",
			"open 1 c",
			"list",
		)).To(Equal(Lines(
			"GROUP 1", "OK", "OK", "OK",
			"OK", "OK",
			"EDITOR 1 a",
			"EDITOR 1 c",
			"END",
		)))
	})

	It("scratchpad is kept", func() {
		Expect(run(
			"group",
			"open 1 a scratchpad untitled",
			"open 1 b",
			"open 1 c",
			"limit 1",
			"list",
		)).To(Equal(Lines(
			"GROUP 1", "OK", "OK", "OK",
			"OK",
			"EDITOR 1 a",
			"EDITOR 1 c",
			"END",
		)))
	})

	It("veto", func() {
		Expect(run(
			"group",
			"open 1 a",
			"open 1 b",
			"veto 1 a",
			"close 1 a",
			"limit 1",
			"list",
			"veto 1 a off",
			"close 1 a",
			"list",
		)).To(Equal(Lines(
			"GROUP 1", "OK", "OK", "OK",
			"CLIENT_ERROR close vetoed",
			"OK",
			"EDITOR 1 a",
			"EDITOR 1 b",
			"END",
			"OK", "OK",
			"EDITOR 1 b",
			"END",
		)))
	})

	It("side by side", func() {
		Expect(run(
			"group",
			"open 1 p|s",
			"has p",
			"has s",
			"list",
		)).To(Equal(Lines(
			"GROUP 1", "OK",
			"YES",
			"NO",
			"EDITOR 1 p|s",
			"END",
		)))
	})

	It("group remove", func() {
		Expect(run(
			"group",
			"group",
			"open 1 a",
			"open 2 x",
			"ready",
			"group remove 2",
			"list",
			"group remove 2",
		)).To(Equal(Lines(
			"GROUP 1", "GROUP 2", "OK", "OK",
			"OK",
			"OK",
			"EDITOR 1 a",
			"END",
			"CLIENT_ERROR unknown group: 2",
		)))
	})

	DescribeTable("client error",
		func(command, expected string) {
			out := run("group", "open 1 a", command)
			Expect(out).To(Equal(Lines("GROUP 1", "OK", expected)))
		},
		Entry("unknown group", "open 9 b", "CLIENT_ERROR unknown group: 9"),
		Entry("more fields", "open 1", "CLIENT_ERROR more fields required"),
		Entry("invalid option", "open 1 b bogus", "CLIENT_ERROR invalid option: bogus"),
		Entry("unknown editor", "activate 1 zz", "CLIENT_ERROR unknown editor: zz in group 1"),
		Entry("unknown document", "dirty zz", "CLIENT_ERROR unknown editor: zz"),
		Entry("too many fields", "has a b", "CLIENT_ERROR too many fields"),
		Entry("group option", "group resize 1", "CLIENT_ERROR invalid option: resize"),
		Entry("unknown command", "frobnicate", "ERROR"),
	)

	It("too large command", func() {
		out := run("ready", strings.Repeat("x", MaxCommandSize+1), "ready")
		Expect(out).To(Equal(Lines("OK", "CLIENT_ERROR command length is too big", "OK")))
	})

	It("limit of external settings", func() {
		conf.Settings = inmem.NewSettings(workbench.LimitSettings{Enabled: true, Value: 1})
		Expect(run(
			"group",
			"open 1 a",
			"open 1 b",
			"limit 3",
			"list",
		)).To(Equal(Lines(
			"GROUP 1", "OK", "OK",
			"CLIENT_ERROR limit is controlled by config file",
			"EDITOR 1 b",
			"END",
		)))
	})

	Context("state", func() {
		var store *statestore.Memory
		BeforeEach(func() {
			store = statestore.NewMemory()
			conf.Store = store
		})

		It("restored by next session", func() {
			Expect(run(
				"group",
				"open 1 a",
				"open 1 b",
				"activate 1 a",
				"save",
			)).To(Equal(Lines("GROUP 1", "OK", "OK", "OK", "OK")))
			Expect(s.Close()).To(Succeed())
			raw, ok, _ := store.Get(editormru.StateKey)
			Expect(ok).To(BeTrue())
			Expect(raw).To(MatchJSON(`[{"groupId":1,"index":1},{"groupId":1,"index":0}]`))

			// Opened in other order, but restored order wins.
			s = nil
			Expect(run(
				"group",
				"open 1 a",
				"open 1 b",
				"list",
			)).To(Equal(Lines(
				"GROUP 1", "OK", "OK",
				"EDITOR 1 b",
				"EDITOR 1 a",
				"END",
			)))
		})

		It("corrupted fails start", func() {
			Expect(store.Store(editormru.StateKey, "{")).To(Succeed())
			s = NewSession(testLogger(), conf)
			out := &bytes.Buffer{}
			err := s.Run(context.Background(), strings.NewReader(Lines("group", "list")), out)
			Expect(err).NotTo(BeNil())
			Expect(out.String()).To(Equal(Lines("GROUP 1", "SERVER_ERROR corrupted editors state")))
			Expect(s.Observer().State()).To(Equal(editormru.StateDisposed))
		})
	})

	It("interactive", func() {
		s = NewSession(testLogger(), conf)
		out := NewBuffer()
		r, in := io.Pipe()
		finished := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			finished <- s.Run(context.Background(), r, out)
		}()
		io.WriteString(in, "group\n")
		Eventually(out).Should(Say("GROUP 1\n"))
		io.WriteString(in, "open 1 a\nlist\n")
		Eventually(out).Should(Say("OK\nEDITOR 1 a\nEND\n"))
		in.Close()
		Eventually(finished).Should(Receive(BeNil()))
	})
})
