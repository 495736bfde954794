package testutil

import (
	"bytes"
	"fmt"
	"strings"

	. "github.com/onsi/gomega"
)

const maxPrintableLen = 1024

// ExpectBytesEqual have much less overhead for large byte chunks but gomega.Equal.
func ExpectBytesEqual(a, b []byte) {
	ExpectBytesEqualWithOffset(1, a, b)
}

func ExpectBytesEqualWithOffset(off int, a, b []byte) {
	off++
	if bytes.Equal(a, b) {
		return
	}
	if len(a)+len(b) <= 2*maxPrintableLen {
		ExpectWithOffset(off, string(a)).To(Equal(string(b)))
	}
	ExpectWithOffset(off, len(a)).To(Equal(len(b)), "Length are unequal and data is too large to print.")
	for i, ab := range a {
		if ab != b[i] {
			end := i + maxPrintableLen
			if end > len(a) {
				end = len(a)
			}
			ExpectWithOffset(off, a[i:end]).To(Equal(b[i:end]), "Skiped %v equal bytes.", i)
		}
	}
}

// Lines joins lines with "\n" separator after each.
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Labels returns fmt %v representation of every value.
func Labels[T any](values []T) []string {
	res := make([]string, len(values))
	for i, v := range values {
		res[i] = fmt.Sprint(v)
	}
	return res
}
