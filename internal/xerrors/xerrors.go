// Package xerrors defines the core's typed error kinds (spec.md §7).
// Each kind carries the context its caller needs to report or recover;
// Fatal additionally captures a stack trace via github.com/pkg/errors
// since it is the only kind expected to propagate to a top-level
// handler instead of being matched and handled locally.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// MalformedPage reports a page whose header fails PageWalker's
// invariants (spec.md §4.1).
type MalformedPage struct {
	Block  uint32
	Reason string
}

func (e *MalformedPage) Error() string {
	return fmt.Sprintf("malformed page at block %d: %s", e.Block, e.Reason)
}

// ItemOverrun reports a line pointer whose (offset, length) escapes the
// page's special-space boundary.
type ItemOverrun struct {
	Block uint32
	Slot  int
}

func (e *ItemOverrun) Error() string {
	return fmt.Sprintf("item overrun at block %d slot %d", e.Block, e.Slot)
}

// AttrOverflow reports a TupleReader walk that ran out of item bytes
// partway through an attribute.
type AttrOverflow struct {
	Index int
}

func (e *AttrOverflow) Error() string {
	return fmt.Sprintf("attribute %d overflows item bounds", e.Index)
}

// BadVarlena reports a malformed varlena header or payload.
type BadVarlena struct {
	Reason string
}

func (e *BadVarlena) Error() string {
	return fmt.Sprintf("bad varlena: %s", e.Reason)
}

// CompressionError reports a PGLZ/LZ4 stream that failed to decode.
type CompressionError struct {
	Method string
	Reason string
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("%s decompression failed: %s", e.Method, e.Reason)
}

// ToastMissing reports a valueid with no entry in the resolver's index.
type ToastMissing struct {
	ValueID uint32
}

func (e *ToastMissing) Error() string {
	return fmt.Sprintf("toast valueid %d not found", e.ValueID)
}

// EncodingError reports a byte that cannot be transcoded to the sink's
// target character set.
type EncodingError struct {
	ByteOffset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error at byte offset %d", e.ByteOffset)
}

// Fatal wraps an unrecoverable error with a captured stack trace, for
// cmd/pdu's top-level error path to report before exit.
type Fatal struct {
	cause error
}

// NewFatal wraps cause, capturing a stack trace at the call site.
func NewFatal(cause error) *Fatal {
	return &Fatal{cause: errors.WithStack(cause)}
}

func (e *Fatal) Error() string { return e.cause.Error() }
func (e *Fatal) Unwrap() error { return e.cause }

// StackTrace renders e's captured stack, for cmd/pdu's top-level error report.
func (e *Fatal) StackTrace() string {
	return fmt.Sprintf("%+v", e.cause)
}
