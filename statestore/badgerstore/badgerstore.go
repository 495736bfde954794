// Package badgerstore implements workbench.StateStore on top of BadgerDB.
package badgerstore

import (
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"

	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/statestore"
	"github.com/puku-sh/editormru/workbench"
)

var ErrNoPath = errors.New("path is required for persistent database")

type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path     string
	InMemory bool
	// SyncWrites makes every Store and Remove durable.
	SyncWrites bool
	// Prefix is prepended to all keys, so several stores can share database.
	Prefix string
}

// Store keeps every key as separate BadgerDB key.
type Store struct {
	statestore.SaveHooks
	db     *badger.DB
	prefix []byte
	log    log.Logger
}

var _ statestore.Persistent = (*Store)(nil)
var _ workbench.StateStore = (*Store)(nil)

func Open(l log.Logger, conf Config) (*Store, error) {
	var opts badger.Options
	if conf.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if conf.Path == "" {
			return nil, stackerr.Wrap(ErrNoPath)
		}
		if err := os.MkdirAll(conf.Path, 0750); err != nil {
			return nil, stackerr.Wrap(err)
		}
		opts = badger.DefaultOptions(conf.Path)
	}
	opts = opts.WithSyncWrites(conf.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{l})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, stackerr.Wrap(err)
	}
	return &Store{db: db, prefix: []byte(conf.Prefix), log: l}, nil
}

func (s *Store) key(k string) []byte {
	return append(append([]byte(nil), s.prefix...), k...)
}

func (s *Store) Get(key string) (value string, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	err = stackerr.Wrap(err)
	return
}

func (s *Store) Store(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), []byte(value))
	})
	return stackerr.Wrap(err)
}

func (s *Store) Remove(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	return stackerr.Wrap(err)
}

// Keys returns stored keys without prefix.
func (s *Store) Keys() (keys []string, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(s.prefix):]))
		}
		return nil
	})
	err = stackerr.Wrap(err)
	return
}

// Save fires will save listeners and syncs database.
func (s *Store) Save() error {
	s.FireWillSave()
	if s.db.Opts().InMemory {
		return nil
	}
	return stackerr.Wrap(s.db.Sync())
}

func (s *Store) Close() error {
	err := s.Save()
	closeErr := stackerr.Wrap(s.db.Close())
	if err != nil {
		return err
	}
	return closeErr
}

// badgerLogger adapts log.Logger to badger.Logger.
// Badger info output is noisy, so it is logged at debug level.
type badgerLogger struct {
	log log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }
