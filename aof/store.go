package aof

import (
	"os"
	"sync"

	"github.com/facebookgo/stackerr"

	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/statestore"
	"github.com/puku-sh/editormru/workbench"
)

type StoreConfig struct {
	AOF Config
	// FixCorrupted truncates AOF to valid prefix instead of failing on corruption.
	FixCorrupted bool
}

// Store is state store which logs every change into AOF.
// Values are kept in memory and restored from AOF on open.
type Store struct {
	statestore.SaveHooks
	log log.Logger

	mu     sync.Mutex
	values map[string]string
	aof    *AOF
}

var _ statestore.Persistent = (*Store)(nil)
var _ workbench.StateStore = (*Store)(nil)

// OpenStore reads AOF if it exists and opens it for append.
// WARN: if conf.FixCorrupted is true, on AOF corruption AOF will be truncated
// to valid prefix, and no error will be returned.
// If conf.FixCorrupted is false, on AOF corruption error type of *CorruptedError will be returned.
func OpenStore(l log.Logger, conf StoreConfig) (s *Store, err error) {
	s = &Store{
		log:    l,
		values: make(map[string]string),
	}
	err = s.read(conf)
	if err != nil {
		return nil, err
	}
	s.aof, err = Open(l, RotatorFunc(Compact), conf.AOF)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) read(conf StoreConfig) error {
	f, err := os.Open(conf.AOF.Name)
	if os.IsNotExist(err) {
		s.log.Info("AOF is not exists. New will be created.")
		return nil
	}
	if err != nil {
		return stackerr.Wrap(err)
	}
	defer f.Close()
	_, err = ReadRecords(f, s.apply)
	cerr, ok := err.(*CorruptedError)
	if !ok {
		return err
	}
	if !conf.FixCorrupted {
		return cerr
	}
	s.log.Warnf("AOF is corrupted: %v. Truncating to valid size %v.", cerr.Err, cerr.ValidSize)
	return stackerr.Wrap(os.Truncate(conf.AOF.Name, cerr.ValidSize))
}

func (s *Store) apply(rec Record) {
	switch rec.Op {
	case SetOp:
		s.values[rec.Key] = rec.Value
	case RemoveOp:
		delete(s.values, rec.Key)
	}
}

func (s *Store) Get(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok = s.values[key]
	return
}

func (s *Store) Store(key, value string) error {
	return s.logRecord(Record{Op: SetOp, Key: key, Value: value})
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	_, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.logRecord(Record{Op: RemoveOp, Key: key})
}

// logRecord applies record and appends it to AOF. Store lock is held while transaction
// is opened, so records are logged in same order as applied.
func (s *Store) logRecord(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.values[rec.Key]; ok && rec.Op == SetOp && prev == rec.Value {
		return nil
	}
	t := s.aof.NewTransaction()
	err := WriteRecord(t, rec)
	closeErr := t.Close()
	if err != nil {
		return err
	}
	// Record is written, even if sync or rotation failed.
	s.apply(rec)
	return closeErr
}

// Save fires will save listeners and syncs AOF.
func (s *Store) Save() error {
	s.FireWillSave()
	return s.aof.Sync()
}

func (s *Store) Close() error {
	err := s.Save()
	closeErr := s.aof.Close()
	if err != nil {
		return err
	}
	return closeErr
}
