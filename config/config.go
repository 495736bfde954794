// Package config contains file form of simulator and observer configuration,
// its parsing into runtime options and limit settings file watcher.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/stackerr"

	"github.com/puku-sh/editormru/aof"
	"github.com/puku-sh/editormru/internal/util"
	"github.com/puku-sh/editormru/log"
	"github.com/puku-sh/editormru/statestore"
	"github.com/puku-sh/editormru/statestore/badgerstore"
	"github.com/puku-sh/editormru/workbench"
)

// RotateSizeCoef is AOF size to state size ratio, after which AOF is compacted.
const RotateSizeCoef = 3

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendAOF    Backend = "aof"
	BackendBadger Backend = "badger"
)

type Config struct {
	LogDestination string      `json:"log-destination,omitempty" yaml:"log-destination,omitempty"` // Stdout, stderr, or filepath.
	LogLevel       string      `json:"log-level,omitempty" yaml:"log-level,omitempty"`
	Limit          LimitConfig `json:"limit,omitempty" yaml:"limit,omitempty"`
	State          StateConfig `json:"state,omitempty" yaml:"state,omitempty"`
}

type LimitConfig struct {
	Enabled        bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Value          int  `json:"value,omitempty" yaml:"value,omitempty"`
	PerEditorGroup bool `json:"per-editor-group,omitempty" yaml:"per-editor-group,omitempty"`
	ExcludeDirty   bool `json:"exclude-dirty,omitempty" yaml:"exclude-dirty,omitempty"`
}

type StateConfig struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Path is AOF file name or badger directory.
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Scoped bool   `json:"scoped,omitempty" yaml:"scoped,omitempty"`
	// Sync is AOF sync period: 1s, 100ms. Zero syncs every write.
	Sync string `json:"sync,omitempty" yaml:"sync,omitempty"`
	// Size values 10g, 128m, 1024k, 1000000b
	BufSize      string `json:"buf-size,omitempty" yaml:"buf-size,omitempty"`
	RotateSize   string `json:"rotate-size,omitempty" yaml:"rotate-size,omitempty"`
	FixCorrupted bool   `json:"fix-corrupted,omitempty" yaml:"fix-corrupted,omitempty"`
}

func Default() *Config {
	return &Config{
		LogDestination: "stderr",
		LogLevel:       "info",
		State: StateConfig{
			Backend:    string(BackendMemory),
			BufSize:    "4k",
			RotateSize: "64k",
		},
	}
}

// Merge overwrites def values with non zero override values.
func Merge(def, override *Config) {
	util.MergeNonZero(def, override)
}

// Options is parsed Config.
type Options struct {
	LogDestination io.Writer
	LogLevel       log.Level
	Limit          workbench.LimitSettings
	State          StateOptions
}

type StateOptions struct {
	Backend Backend
	Key     string
	Scoped  bool
	AOF     aof.StoreConfig
	Badger  badgerstore.Config
}

func Parse(conf Config) (opts Options, err error) {
	opts.LogDestination, err = logDestination(conf.LogDestination)
	if err != nil {
		err = stackerr.Newf("Log destination open error: %v", err)
		return
	}
	opts.LogLevel, err = log.LevelFromString(conf.LogLevel)
	if err != nil {
		err = stackerr.Newf("Log level parse error: %v", err)
		return
	}
	opts.Limit = ParseLimit(conf.Limit)
	opts.State, err = parseState(conf.State)
	return
}

func ParseLimit(conf LimitConfig) workbench.LimitSettings {
	return workbench.LimitSettings{
		Enabled:        conf.Enabled,
		Value:          conf.Value,
		PerEditorGroup: conf.PerEditorGroup,
		ExcludeDirty:   conf.ExcludeDirty,
	}
}

func parseState(conf StateConfig) (opts StateOptions, err error) {
	opts.Backend = Backend(strings.ToLower(conf.Backend))
	opts.Key = conf.Key
	opts.Scoped = conf.Scoped
	switch opts.Backend {
	case "", BackendMemory:
		opts.Backend = BackendMemory
	case BackendAOF:
		if conf.Path == "" {
			err = stackerr.Newf("AOF state backend requires path.")
			return
		}
		opts.AOF.AOF.Name = conf.Path
		opts.AOF.FixCorrupted = conf.FixCorrupted
		if conf.Sync != "" {
			opts.AOF.AOF.SyncPeriod, err = time.ParseDuration(conf.Sync)
			if err != nil {
				err = stackerr.Newf("Sync period parse error: %v", err)
				return
			}
		}
		var bufSize int64
		bufSize, err = parseSize(conf.BufSize)
		if err != nil {
			err = stackerr.Newf("BufSize parse error: %v", err)
			return
		}
		opts.AOF.AOF.BuffSize = int(bufSize)
		var rotateSize int64
		rotateSize, err = parseSize(conf.RotateSize)
		if err != nil {
			err = stackerr.Newf("RotateSize parse error: %v", err)
			return
		}
		opts.AOF.AOF.RotateSize = rotateSize * RotateSizeCoef
	case BackendBadger:
		opts.Badger.Path = conf.Path
		opts.Badger.InMemory = conf.Path == ""
		opts.Badger.SyncWrites = conf.Sync == "0" || conf.Sync == "0s"
	default:
		err = stackerr.Newf("Unknown state backend %q.", conf.Backend)
	}
	return
}

// OpenStore opens state store of configured backend.
func (o StateOptions) OpenStore(l log.Logger) (statestore.Persistent, error) {
	var (
		s   statestore.Persistent
		err error
	)
	switch o.Backend {
	case BackendAOF:
		s, err = aof.OpenStore(l, o.AOF)
	case BackendBadger:
		s, err = badgerstore.Open(l, o.Badger)
	default:
		s = statestore.NewMemory()
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseSize(s string) (size int64, err error) {
	if len(s) < 2 {
		err = errors.New("Invalid size format.")
		return
	}
	sep := len(s) - 1
	sizeStr := s[:sep]
	exponentStr := s[sep:]
	var exponent uint32
	switch strings.ToLower(exponentStr) {
	case "b":
		exponent = 0
	case "k":
		exponent = 10
	case "m":
		exponent = 20
	case "g":
		exponent = 30
	default:
		err = errors.New("Invalid exponent. Only 'b', 'k', 'm', 'g' allowed.")
		return
	}
	size, err = strconv.ParseInt(sizeStr, 10, 31)
	if err != nil {
		err = fmt.Errorf("Size parse error: %s", err)
		return
	}
	size <<= exponent
	return
}

func logDestination(dest string) (w io.Writer, err error) {
	switch strings.ToLower(dest) {
	case "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		w, err = os.OpenFile(dest, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	}
	return
}
