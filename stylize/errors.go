package stylize

import (
	"errors"
	"fmt"
)

// ErrInputNotFound marks a missing source or background file; use
// errors.Is against pipeline errors to detect it.
var ErrInputNotFound = errors.New("input not found")

// InputError reports an unreadable input file.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string { return fmt.Sprintf("input %s: %v", e.Path, e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// DecodeError reports malformed input: an unparseable PDF or an
// undecodable background image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError reports an output failure; no partial file remains.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
