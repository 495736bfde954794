package aof

import "github.com/facebookgo/stackerr"

type transaction struct{ *AOF }

func (t *transaction) Write(p []byte) (n int, err error) {
	if t.isClosed() {
		return 0, stackerr.Wrap(ErrClosed)
	}
	n, err = t.writer.Write(p)
	err = stackerr.Wrap(err)
	t.size += int64(n)
	return
}

// Close syncs AOF if configured so, and rotates it if it is too large.
// Lock is released in any case.
func (t *transaction) Close() (err error) {
	if t.AOF == nil {
		return
	}
	defer func() {
		t.lock.Unlock()
		t.AOF = nil
	}()
	if t.isClosed() {
		return stackerr.Wrap(ErrClosed)
	}
	if t.isSyncEveryTransaction() {
		err = t.sync()
		if err != nil {
			return
		}
	}
	if t.config.RotateSize > 0 && t.size > t.config.RotateSize {
		err = t.rotate()
	}
	return
}
