package testutil

import (
	"fmt"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func Byf(format string, args ...interface{}) {
	By(fmt.Sprintf(format, args...))
	fmt.Fprintln(GinkgoWriter)
}

// TmpFileName returns name of not existing file in temp dir.
func TmpFileName() string {
	f, err := os.CreateTemp("", "go_test_tmp_")
	Expect(err).To(BeNil())
	filename := f.Name()
	err = f.Close()
	Expect(err).To(BeNil())
	err = os.Remove(filename)
	Expect(err).To(BeNil())
	return filename
}

// TmpDir returns new empty dir. Caller should remove it.
func TmpDir() string {
	dir, err := os.MkdirTemp("", "go_test_tmp_")
	Expect(err).To(BeNil())
	return dir
}
