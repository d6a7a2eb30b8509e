package report

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidWindow   = errors.New("invalid window")
)

// RecordError describes the line that stopped the parse.
type RecordError struct {
	Kind error // ErrMalformedRecord or ErrInvalidWindow
	Line int   // 1-based; 0 when parsed outside Parse
	Msg  string
}

func (e *RecordError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
}

func (e *RecordError) Unwrap() error { return e.Kind }

func malformed(line int, format string, args ...any) error {
	return &RecordError{Kind: ErrMalformedRecord, Line: line, Msg: fmt.Sprintf(format, args...)}
}
