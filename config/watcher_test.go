package config

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/gomega"

	"github.com/puku-sh/editormru/log"
	. "github.com/puku-sh/editormru/testutil"
	"github.com/puku-sh/editormru/workbench"
)

var _ = Describe("Watcher", func() {
	var (
		dir  string
		path string
		w    *Watcher
	)
	writeLimit := func(value int) {
		data := Marshal(path, &Config{Limit: LimitConfig{Enabled: true, Value: value}})
		gomega.Expect(os.WriteFile(path, data, 0644)).To(gomega.Succeed())
	}
	BeforeEach(func() {
		dir = TmpDir()
		path = filepath.Join(dir, "editors.yaml")
		writeLimit(3)
		var err error
		w, err = NewWatcher(log.NewLogger(log.DebugLevel, GinkgoWriter), path)
		gomega.Expect(err).To(gomega.BeNil())
	})
	AfterEach(func() {
		gomega.Expect(w.Close()).To(gomega.Succeed())
		os.RemoveAll(dir)
	})

	It("initial limit", func() {
		gomega.Expect(w.Limit()).To(gomega.Equal(workbench.LimitSettings{Enabled: true, Value: 3}))
	})

	It("reload notifies on change only", func() {
		var changes []workbench.LimitSettings
		w.OnDidChangeLimit(func(l workbench.LimitSettings) { changes = append(changes, l) })
		gomega.Expect(w.Reload()).To(gomega.Succeed())
		gomega.Expect(changes).To(gomega.BeEmpty())
		writeLimit(5)
		gomega.Expect(w.Reload()).To(gomega.Succeed())
		gomega.Expect(changes).To(gomega.Equal([]workbench.LimitSettings{{Enabled: true, Value: 5}}))
	})

	It("invalid file keeps limit", func() {
		gomega.Expect(os.WriteFile(path, []byte("limit: [broken"), 0644)).To(gomega.Succeed())
		gomega.Expect(w.Reload()).NotTo(gomega.Succeed())
		gomega.Expect(w.Limit().Value).To(gomega.Equal(3))
	})

	It("file change is watched", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			w.Run(ctx)
		}()
		gomega.Expect(os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("limit: {value: 1}"), 0644)).To(gomega.Succeed())
		writeLimit(7)
		// File may be read truncated on first event, so only final value is checked.
		gomega.Eventually(func() int { return w.Limit().Value }).Should(gomega.Equal(7))
		cancel()
		gomega.Eventually(done).Should(gomega.BeClosed())
	})
})
