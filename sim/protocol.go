// Package sim drives in memory workbench and editors observer by line oriented
// command script. Every command is answered by response line(s) in writer.
package sim

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/facebookgo/stackerr"
	"github.com/pkg/errors"

	"github.com/puku-sh/editormru/workbench"
)

const (
	MaxCommandSize = 1 << 12

	Separator     = "\n"
	CommentPrefix = "#"

	GroupCommand    = "group"
	OpenCommand     = "open"
	ActivateCommand = "activate"
	CloseCommand    = "close"
	DirtyCommand    = "dirty"
	PinCommand      = "pin"
	VetoCommand     = "veto"
	LimitCommand    = "limit"
	ListCommand     = "list"
	HasCommand      = "has"
	SaveCommand     = "save"
	ReadyCommand    = "ready"

	OKResponse          = "OK"
	GroupResponse       = "GROUP"
	EditorResponse      = "EDITOR"
	EndResponse         = "END"
	YesResponse         = "YES"
	NoResponse          = "NO"
	ErrorResponse       = "ERROR"
	ClientErrorResponse = "CLIENT_ERROR"
	ServerErrorResponse = "SERVER_ERROR"

	InBufferSize  = 16 * (1 << 10)
	OutBufferSize = 16 * (1 << 10)
)

var _ = func() (_ struct{}) {
	if MaxCommandSize > InBufferSize {
		panic("max command should fit in input buffer")
	}
	return
}()

var (
	ErrTooManyFields      = errors.New("too many fields")
	ErrMoreFieldsRequired = errors.New("more fields required")
	ErrTooLargeCommand    = errors.New("command length is too big")
	ErrInvalidOption      = errors.New("invalid option")
	ErrFieldsParseError   = errors.New("fields parse error")
	ErrUnknownGroup       = errors.New("unknown group")
	ErrUnknownEditor      = errors.New("unknown editor")
)

type reader struct {
	*bufio.Reader
}

func newReader(r io.Reader) reader {
	return reader{bufio.NewReaderSize(r, InBufferSize)}
}

// readCommand skips empty and comment lines.
// WARN: retuned byte slices points into read buffed and invalidated after next read.
func (r reader) readCommand() (command []byte, fields [][]byte, clientErr, err error) {
	for {
		var line []byte
		line, err = r.ReadSlice('\n')
		if err == bufio.ErrBufferFull || len(line) > MaxCommandSize {
			clientErr = stackerr.Wrap(ErrTooLargeCommand)
			if err == bufio.ErrBufferFull {
				err = r.discardCommand()
			} else {
				err = nil
			}
			return
		}
		if err == io.EOF && len(line) != 0 {
			// Last line without separator is ok in script.
			err = nil
		}
		if err != nil {
			if err != io.EOF {
				err = stackerr.Wrap(err)
			}
			return
		}
		line = bytes.TrimRight(line, "\r\n")
		split := bytes.Fields(line)
		if len(split) == 0 || bytes.HasPrefix(split[0], []byte(CommentPrefix)) {
			continue
		}
		command = split[0]
		fields = split[1:]
		return
	}
}

// discardCommand discard all input untill next separator.
func (r reader) discardCommand() error {
	for {
		_, err := r.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			return nil
		}
		return err
	}
}

func checkFields(fields [][]byte, required, maxOptions int) (options [][]byte, err error) {
	if len(fields) < required {
		return nil, stackerr.Wrap(ErrMoreFieldsRequired)
	}
	options = fields[required:]
	if len(options) > maxOptions {
		return nil, stackerr.Wrap(ErrTooManyFields)
	}
	return options, nil
}

func parseGroupID(f []byte) (workbench.GroupID, error) {
	id, err := strconv.ParseUint(string(f), 10, 31)
	if err != nil {
		return 0, stackerr.Newf("%s: %s", ErrFieldsParseError, err)
	}
	return workbench.GroupID(id), nil
}

// optionSet parses options from allowed set.
func optionSet(options [][]byte, allowed ...string) (map[string]bool, error) {
	set := make(map[string]bool, len(options))
	for _, o := range options {
		var ok bool
		for _, a := range allowed {
			if string(o) == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, stackerr.Newf("%s: %s", ErrInvalidOption, o)
		}
		set[string(o)] = true
	}
	return set, nil
}
