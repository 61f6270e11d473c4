// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "strings"

// emptyTagContainer is the four zero bytes representing an int32 count of
// zero, the padding §4.G step 6 appends for certain export classes.
var emptyTagContainer = []byte{0, 0, 0, 0}

func identityRewrite(payload []byte) ([]byte, error) { return payload, nil }

// rewritePayload dispatches an export's payload to its class-specific
// re-serialization, per §4.G step 6. Every class not named below takes the
// passthrough path.
func (bc *buildContext) rewritePayload(className string, payload []byte) ([]byte, error) {
	switch className {
	case "StringTable":
		return bc.rewriteStringTablePayload(payload)
	case "SkeletalMesh":
		// Each material slot needs a trailing empty tag container (§4.G
		// step 6), but FSkeletalMaterial's on-disk shape (object
		// reference, FName slot name, shadow-casting bool, UV-channel
		// struct) is a hand-serialized engine struct whose field widths
		// are version dependent and aren't pinned down by spec.md or
		// recovered from original_source here; finding each slot's end
		// byte-for-byte would mean guessing those widths rather than
		// grounding them. See DESIGN.md, "Open-question decisions (§9)
		// - SkeletalMesh material-slot padding" for the deferral and
		// what real-content reference would close it.
		return identityRewrite(payload)
	default:
		return identityRewrite(payload)
	}
}

// noneNameIndex returns this package's interned index for the name
// "None", or false if it was never interned. An export whose tagged
// property stream is empty (no UPROPERTY fields, as with UStringTable)
// still serializes that empty stream's terminator: a plain FName
// reference to "None", the same 8-byte (index int32, number int32)
// mapped-name shape used everywhere else in this codec.
func (bc *buildContext) noneNameIndex() (int32, bool) {
	return bc.names.Lookup("None")
}

// readFString reads one engine-style length-prefixed string: count == 0
// is empty; count > 0 means that many ASCII bytes follow (including a
// trailing NUL); count < 0 means -count UTF-16LE code units follow
// (also NUL terminated). The wide branch reuses the UTF-16LE decoder the
// name batch uses (decodeUTF16LE, hash.go), but the length prefix differs
// from the name batch's: here it is an inline little-endian int32 with the
// sign selecting the encoding, while the name batch stores separate
// big-endian 16-bit headers (names.go). Reading one doesn't require any
// property-reflection machinery.
func readFString(r *byteReader) (string, error) {
	n, err := r.i32()
	if err != nil {
		return "", err
	}
	switch {
	case n == 0:
		return "", nil
	case n > 0:
		b, err := r.bytes(int(n))
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(b), "\x00"), nil
	default:
		b, err := r.bytes(int(-n) * 2)
		if err != nil {
			return "", err
		}
		s, err := decodeUTF16LE(b)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(s, "\x00"), nil
	}
}

// rewriteStringTablePayload implements the StringTable half of §4.G
// step 6: a trailing empty tag container after each (key, value) entry,
// plus one more at the very end. UStringTable has no UPROPERTY fields of
// its own, so its payload is: the empty tagged-property terminator
// (FName "None"), then its custom fields — FString TableNamespace, int32
// NumEntries, then NumEntries × (FString Key, FString Value). All of
// that is recoverable by byte-counting alone (no generic property
// deserialization): the terminator is a fixed-width mapped-name pair,
// and every FString is length-prefixed per readFString. If "None" was
// never interned, the leading pair is not the "None" terminator, the
// entry count is negative, or a field read runs past the end of the
// payload, the payload passes through unchanged. If the entries parse but
// bytes remain after the last one, this returns
// ErrClassSpecificRewriteMismatch rather than guess; unlike the
// SkeletalMesh case, a StringTable's entries are never ambiguous once
// the terminator lines up, so a short parse means the assumption was
// wrong, not that the format is unknowable.
func (bc *buildContext) rewriteStringTablePayload(payload []byte) ([]byte, error) {
	noneIdx, ok := bc.noneNameIndex()
	if !ok {
		return identityRewrite(payload)
	}

	r := newByteReader(payload)
	idx, err := r.i32()
	if err != nil {
		return identityRewrite(payload)
	}
	number, err := r.i32()
	if err != nil {
		return identityRewrite(payload)
	}
	if idx != noneIdx || number != 0 {
		return identityRewrite(payload)
	}

	if _, err := readFString(r); err != nil {
		return identityRewrite(payload)
	}
	numEntries, err := r.i32()
	if err != nil || numEntries < 0 {
		return identityRewrite(payload)
	}

	entryEnds := make([]int, 0, numEntries)
	for i := int32(0); i < numEntries; i++ {
		if _, err := readFString(r); err != nil {
			return identityRewrite(payload)
		}
		if _, err := readFString(r); err != nil {
			return identityRewrite(payload)
		}
		entryEnds = append(entryEnds, r.pos)
	}

	if r.pos != len(payload) {
		return nil, newError(KindPayloadRewriteFailed, ErrClassSpecificRewriteMismatch,
			"string table payload: %d bytes left over after %d entries", len(payload)-r.pos, numEntries)
	}

	out := make([]byte, 0, len(payload)+4*(len(entryEnds)+1))
	prev := 0
	for _, end := range entryEnds {
		out = append(out, payload[prev:end]...)
		out = append(out, emptyTagContainer...)
		prev = end
	}
	out = append(out, payload[prev:]...)
	out = append(out, emptyTagContainer...)
	return out, nil
}

// classNameForExport resolves export i's class name by following its
// ClassIndex to either an import's object name or another export's
// object name.
func (bc *buildContext) classNameForExport(i int) (string, error) {
	ref := decodeLegacyIndex(bc.legacy.Exports[i].ClassIndex)
	if ref.IsNull {
		return "", nil
	}
	if ref.IsImport {
		if ref.Index >= len(bc.legacy.Imports) {
			return "", nil
		}
		n, err := bc.legacy.nameAt(bc.legacy.Imports[ref.Index].ObjectName.Index)
		if err != nil {
			return "", err
		}
		return n.Value, nil
	}
	if ref.Index >= len(bc.legacy.Exports) {
		return "", nil
	}
	n, err := bc.legacy.nameAt(bc.legacy.Exports[ref.Index].ObjectName.Index)
	if err != nil {
		return "", err
	}
	return n.Value, nil
}

// applyClassSpecificRewrites implements §4.G step 6: concatenate every
// export's (possibly rewritten) payload into the single Zen payload
// region, with each export's own cooked_serial_size absorbing whatever
// delta its rewrite introduced.
func (bc *buildContext) applyClassSpecificRewrites(exports []ZenExport) ([]byte, []ZenExport, error) {
	rewritten := make([][]byte, len(bc.legacy.Exports))
	for i, le := range bc.legacy.Exports {
		className, err := bc.classNameForExport(i)
		if err != nil {
			return nil, nil, err
		}
		out, err := bc.rewritePayload(className, le.Payload)
		if err != nil {
			return nil, nil, newError(KindPayloadRewriteFailed, err, "rewrite export %d (%s) payload", i, className)
		}
		rewritten[i] = out
	}

	var payload []byte
	for i, b := range rewritten {
		payload = append(payload, b...)
		exports[i].CookedSerialSize = uint64(len(b))
	}
	return payload, exports, nil
}
