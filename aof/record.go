package aof

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"
)

var (
	ErrClosed        = errors.New("aof is closed")
	ErrInvalidRecord = errors.New("invalid record")
)

type Op string

const (
	SetOp    Op = "set"
	RemoveOp Op = "remove"
)

// Record is one line of AOF. Lines are JSON encoded, so any key and value
// can be stored and torn last line is detectable.
type Record struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func (r Record) validate() error {
	switch r.Op {
	case SetOp, RemoveOp:
	default:
		return errors.Wrapf(ErrInvalidRecord, "unexpected op %q", r.Op)
	}
	if r.Key == "" {
		return errors.Wrap(ErrInvalidRecord, "empty key")
	}
	return nil
}

func WriteRecord(w io.Writer, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return stackerr.Wrap(err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

type CorruptedError struct {
	Err error
	// ValidSize is size of valid AOF prefix.
	ValidSize int64
}

func (e *CorruptedError) Error() string {
	return fmt.Sprint("AOF is corrupted: ", e.Err)
}

// ReadRecords calls apply for every record. On invalid record *CorruptedError returned.
func ReadRecords(r io.Reader, apply func(Record)) (lastValidPos int64, err error) {
	br := bufio.NewReader(r)
	for {
		var line []byte
		line, err = br.ReadBytes('\n')
		if err == io.EOF {
			if len(line) == 0 {
				err = nil
				return
			}
			err = &CorruptedError{io.ErrUnexpectedEOF, lastValidPos}
			return
		}
		if err != nil {
			err = stackerr.Wrap(err)
			return
		}
		var rec Record
		err = json.Unmarshal(line, &rec)
		if err == nil {
			err = rec.validate()
		}
		if err != nil {
			err = &CorruptedError{err, lastValidPos}
			return
		}
		apply(rec)
		lastValidPos += int64(len(line))
	}
}

// Compact reads records from r and writes set record for every key that is set at the end.
// Keys are written in first set order.
func Compact(r ROFile, w io.Writer) error {
	values := map[string]string{}
	var keys []string
	_, err := ReadRecords(r, func(rec Record) {
		switch rec.Op {
		case SetOp:
			if _, ok := values[rec.Key]; !ok {
				keys = append(keys, rec.Key)
			}
			values[rec.Key] = rec.Value
		case RemoveOp:
			delete(values, rec.Key)
		}
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		err = WriteRecord(w, Record{Op: SetOp, Key: k, Value: v})
		if err != nil {
			return err
		}
		// Removed and set again key must be written once.
		delete(values, k)
	}
	return nil
}
