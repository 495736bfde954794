package aof

import (
	"bufio"
	"io"
	"os"

	"github.com/facebookgo/stackerr"
)

// Rotator writes compacted equivalent of AOF prefix read from r into w.
type Rotator interface {
	Rotate(r ROFile, w io.Writer) error
}

type RotatorFunc func(r ROFile, w io.Writer) error

func (f RotatorFunc) Rotate(r ROFile, w io.Writer) error {
	return f(r, w)
}

type ROFile interface {
	io.Reader
}

// RotateFile rotates fname file prefix size of limit into w.
func RotateFile(rot Rotator, fname string, limit int64, w io.Writer) (err error) {
	var file *os.File
	file, err = os.Open(fname)
	if err != nil {
		return stackerr.Wrap(err)
	}
	defer file.Close()
	bufW := bufio.NewWriter(w)
	r := bufio.NewReader(io.LimitReader(file, limit))
	err = rot.Rotate(r, bufW)
	if err != nil {
		return stackerr.Wrap(err)
	}
	err = bufW.Flush()
	return stackerr.Wrap(err)
}
