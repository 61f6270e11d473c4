// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"errors"
	"fmt"
)

// Kind classifies a CodecError so callers can switch on it without parsing
// the message text.
type Kind int

const (
	// KindMalformedInput marks an offset/size/count inconsistency, a bad
	// algorithm tag, or a truncated stream.
	KindMalformedInput Kind = iota

	// KindUnsupportedVersion marks a version field outside the supported band.
	KindUnsupportedVersion

	// KindWrongIndexKind marks an access to an object-index payload of the
	// wrong kind (e.g. the export payload of a script import).
	KindWrongIndexKind

	// KindUnresolvedReference marks an import that could not be resolved.
	// RebuildLegacy always downgrades it to a warning plus a placeholder
	// import; there is no strict mode that keeps it fatal.
	KindUnresolvedReference

	// KindPayloadRewriteFailed marks a class-specific re-serialization that
	// rejected its input.
	KindPayloadRewriteFailed

	// KindSourceClosed marks a byte source/sink that returned EOF or a write
	// failure mid-stream.
	KindSourceClosed

	// KindCacheMiss marks a lazy lookup the caller asked to fail rather than
	// block on.
	KindCacheMiss
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "MalformedInput"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindWrongIndexKind:
		return "WrongIndexKind"
	case KindUnresolvedReference:
		return "UnresolvedReference"
	case KindPayloadRewriteFailed:
		return "PayloadRewriteFailed"
	case KindSourceClosed:
		return "SourceClosed"
	case KindCacheMiss:
		return "CacheMiss"
	default:
		return "Unknown"
	}
}

// CodecError is the single result type every fallible operation in this
// module returns. Callers switch on Kind rather than matching message text.
type CodecError struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CodecError) Unwrap() error { return e.Cause }

func newError(kind Kind, cause error, format string, args ...interface{}) *CodecError {
	return &CodecError{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is a CodecError of kind k.
func Is(err error, k Kind) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// Sentinel errors for simple boundary conditions that don't need extra
// formatting context.
var (
	// ErrWrongKind is returned by object-index payload accessors when asked
	// for a payload of the wrong kind.
	ErrWrongKind = &CodecError{Kind: KindWrongIndexKind, Msg: "object index payload accessed with wrong kind"}

	// ErrMalformedNameBatch is returned when a name batch's declared
	// string-bytes total disagrees with the decoded length sum, or its
	// algorithm tag doesn't match the expected constant.
	ErrMalformedNameBatch = &CodecError{Kind: KindMalformedInput, Msg: "malformed name batch"}

	// ErrTableOutOfBounds is returned when a table's offsets/sizes overrun
	// the buffer they're read from.
	ErrTableOutOfBounds = &CodecError{Kind: KindMalformedInput, Msg: "table out of bounds"}

	// ErrUnsupportedVersion is returned when a Legacy or Zen version tag
	// falls outside the band this codec understands.
	ErrUnsupportedVersion = &CodecError{Kind: KindUnsupportedVersion, Msg: "unsupported version"}

	// ErrSourceClosed is returned when a byte source/sink is severed
	// mid-read or mid-write.
	ErrSourceClosed = &CodecError{Kind: KindSourceClosed, Msg: "source or sink closed"}

	// ErrMissingBody is returned when a Legacy model has no body stream to
	// pull export payload bytes from.
	ErrMissingBody = &CodecError{Kind: KindMalformedInput, Msg: "missing legacy body stream"}

	// ErrClassSpecificRewriteMismatch is returned when a class-specific
	// payload rewrite's byte-counted parse doesn't consume the export
	// payload exactly (§4.G step 6): the assumed wire shape (e.g. a
	// StringTable's terminator/entry layout) didn't hold for this export.
	ErrClassSpecificRewriteMismatch = &CodecError{Kind: KindPayloadRewriteFailed, Msg: "class-specific rewrite payload shape mismatch"}
)
