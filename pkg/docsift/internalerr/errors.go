package internalerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at a component boundary. DecodeError covers
// bytes that cannot be read or turned into text.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindNotAFile          Kind = "NotAFile"
	KindTooLarge          Kind = "TooLarge"
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindDecodeError       Kind = "DecodeError"
	KindMalformedContent  Kind = "MalformedContent"
	KindAnalysisError     Kind = "AnalysisError"
	KindWriteError        Kind = "WriteError"
	KindCanceled          Kind = "Canceled"
)

// Sentinel errors, one per kind, so callers can use errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotAFile          = errors.New("not a regular file")
	ErrTooLarge          = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecode            = errors.New("cannot decode text")
	ErrMalformedContent  = errors.New("malformed content")
	ErrAnalysis          = errors.New("analysis failed")
	ErrWrite             = errors.New("write failed")
	ErrCanceled          = errors.New("canceled before dispatch")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

var sentinels = map[Kind]error{
	KindNotFound:          ErrNotFound,
	KindNotAFile:          ErrNotAFile,
	KindTooLarge:          ErrTooLarge,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindDecodeError:       ErrDecode,
	KindMalformedContent:  ErrMalformedContent,
	KindAnalysisError:     ErrAnalysis,
	KindWriteError:        ErrWrite,
	KindCanceled:          ErrCanceled,
}

// Error is a typed failure tied to a single file.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// New builds an Error. err may be nil, in which case the kind's sentinel
// message is used.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Err != nil && (e.Err != sentinels[e.Kind]) {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf reports the Kind carried anywhere in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
