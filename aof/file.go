package aof

import "io"

type file interface {
	io.WriteCloser
	Sync() error
}
