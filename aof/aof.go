// Package aof implements append only file and key/value state store on top of it.
package aof

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/puku-sh/editormru/log"
)

const MinSyncPeriod = 100 * time.Millisecond
const Perm = 0664

type Config struct {
	Name       string
	SyncPeriod time.Duration
	RotateSize int64 // AOF size, after which Rotator will be called. 0 disables rotation.
	BuffSize   int   // 0 if no buffering.
}

// AOF represents Append Only File.
type AOF struct {
	config  Config
	rotator Rotator
	log     log.Logger

	// lock protects fields bellow.
	lock sync.Mutex
	// writer is current io.Writer to write AOF. It can be file or *bufio.Writer.
	writer io.Writer
	// If buffering is on, flusher.Flush() flushes buffer into file.
	flusher flusher
	file    file
	// Current AOF size.
	size int64
	stop chan struct{}
}

func Open(l log.Logger, r Rotator, conf Config) (aof *AOF, err error) {
	if r == nil {
		panic("nil rotator")
	}
	aof = &AOF{
		log:     l,
		rotator: r,
		config:  conf,
	}
	err = aof.init()
	if err != nil {
		return
	}
	if !aof.isSyncEveryTransaction() {
		aof.stop = make(chan struct{})
		aof.startSync()
	}
	return
}

func (f *AOF) init() (err error) {
	var file *os.File
	file, err = os.OpenFile(f.config.Name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, Perm|os.ModeAppend)
	if err != nil {
		return stackerr.Wrap(err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return stackerr.Wrap(err)
	}
	f.size = stat.Size()
	f.file = file

	if f.config.BuffSize == 0 {
		f.writer = file
		f.flusher = nopFlusher{}
		return
	}
	bufWriter := bufio.NewWriterSize(f.file, f.config.BuffSize)
	f.writer = bufWriter
	f.flusher = bufWriter
	f.log.Debug("AOF opened.")
	return
}

func (f *AOF) isSyncEveryTransaction() bool {
	return f.config.SyncPeriod < MinSyncPeriod
}

func (f *AOF) sync() (err error) {
	err = f.flusher.Flush()
	if err != nil {
		return stackerr.Wrap(err)
	}
	err = f.file.Sync()
	return stackerr.Wrap(err)
}

// Sync flushes buffered data and syncs file.
func (f *AOF) Sync() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.isClosed() {
		return nil
	}
	return f.sync()
}

func (f *AOF) isClosed() bool {
	return f.file == nil
}

func (f *AOF) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.isClosed() {
		return nil
	}
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
	return f.close()
}

func (f *AOF) close() error {
	f.flusher.Flush()
	err := f.file.Close()
	f.file = nil // Mark as closed.
	return stackerr.Wrap(err)
}

// NewTransaction create new AOF transaction.
// Returned transaction hold AOF lock until close,
// so callee should write data and close it, as soon as possible.
func (f *AOF) NewTransaction() io.WriteCloser {
	f.lock.Lock()
	return &transaction{f}
}

// rotate writes rotator output into new file, and atomically replaces AOF with it.
// rotate requires lock be acquired.
func (f *AOF) rotate() (err error) {
	f.log.Info("AOF rotation started.")
	err = f.flusher.Flush()
	if err != nil {
		return stackerr.Wrap(err)
	}
	// Same dir, so rename is atomic.
	newFile, err := os.CreateTemp(filepath.Dir(f.config.Name), ".rotating_aof_")
	if err != nil {
		return stackerr.Wrap(err)
	}
	newFileName := newFile.Name()
	defer func() {
		if err != nil {
			newFile.Close()
			os.Remove(newFileName)
		}
	}()
	err = RotateFile(f.rotator, f.config.Name, f.size, newFile)
	if err != nil {
		return
	}
	err = newFile.Chmod(Perm)
	if err != nil {
		return stackerr.Wrap(err)
	}
	err = newFile.Sync()
	if err != nil {
		return stackerr.Wrap(err)
	}
	err = newFile.Close()
	if err != nil {
		return stackerr.Wrap(err)
	}
	err = f.close()
	if err != nil {
		return
	}
	err = os.Rename(newFileName, f.config.Name) // Atomic. No data corruption on fail.
	if err != nil {
		err = stackerr.Wrap(err)
		// Reopen old one.
		if initErr := f.init(); initErr != nil {
			f.log.Errorf("AOF reopen after failed rotation error: %v", initErr)
		}
		return
	}
	err = f.init()
	if err != nil {
		return
	}
	f.log.Infof("AOF rotation finished. New size %v.", f.size)
	afterRotateTestHook()
	return
}

var afterRotateTestHook = func() {}

func (f *AOF) startSync() {
	stop := f.stop
	go func() {
		ticker := time.NewTicker(f.config.SyncPeriod)
		defer ticker.Stop()
		var prevSize int64
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			f.lock.Lock()
			if f.isClosed() {
				f.lock.Unlock()
				return
			}
			if f.size != prevSize {
				prevSize = f.size
				if err := f.sync(); err != nil {
					f.log.Errorf("AOF sync error: %v", err)
				}
			}
			f.lock.Unlock()
		}
	}()
}
