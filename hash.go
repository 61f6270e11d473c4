// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"strings"

	"github.com/tenfyzhong/cityhash"
	"golang.org/x/text/encoding/unicode"
)

// City64 computes the 64-bit CityHash64 of buf, byte for byte compatible
// with the engine content this codec interoperates with. Grounded on the
// uasset parser's hashString helper (other_examples), which wraps the same
// library the same way.
func City64(buf []byte) uint64 {
	return cityhash.CityHash64(buf)
}

// asciiFoldLower lowercases only the ASCII range, matching the engine's
// invariant-culture (ASCII-only) fold. Bytes
// outside 'A'-'Z' pass through untouched, including UTF-8 continuation
// bytes, so this is safe to run on either the raw string or its UTF-16LE
// encoding's source string.
func asciiFoldLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

var (
	utf16leEncoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16leDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
)

// encodeUTF16LE transcodes s to UTF-16LE bytes with no byte-order mark,
// mirroring the decode half already present in the teacher repo's
// DecodeUTF16String (helper.go), which uses the same golang.org/x/text
// codec in the opposite direction.
func encodeUTF16LE(s string) ([]byte, error) {
	return utf16leEncoder.Bytes([]byte(s))
}

// decodeUTF16LE is the inverse of encodeUTF16LE, grounded directly on
// saferwall-pe/helper.go's DecodeUTF16String.
func decodeUTF16LE(b []byte) (string, error) {
	s, err := utf16leDecoder.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// PackageID derives the 64-bit package identifier from a package path, e.g.
// "/Game/Sub/Path/Asset". It is the key by which containers and imports
// address packages (§4.B, §6).
func PackageID(packagePath string) uint64 {
	return City64([]byte(asciiFoldLower(packagePath)))
}

// PublicExportHash hashes an object's path within its package (no package
// prefix, no leading slash), allowing cross-package references without a
// name lookup.
func PublicExportHash(pathWithinPackage string) uint64 {
	b, err := encodeUTF16LE(asciiFoldLower(pathWithinPackage))
	if err != nil {
		// UTF-16LE encoding of a valid Go string cannot fail for the
		// invariant-cased ASCII-dominant paths this codec handles; treat a
		// theoretical failure as a hash of the empty path rather than panic.
		return City64(nil)
	}
	return City64(b)
}

// normalizeScriptImportPath replaces ':' and '.' with '/' per §3's
// script-import hash normalization.
func normalizeScriptImportPath(path string) string {
	path = strings.ReplaceAll(path, ":", "/")
	path = strings.ReplaceAll(path, ".", "/")
	return path
}

// scriptImportPayloadMask clears the top two tag bits of a 64-bit hash so
// the object-index tag field alone encodes the kind (§3, §4.C).
const scriptImportPayloadMask = uint64(1)<<62 - 1

// ScriptImportHash hashes an engine-provided object's path into the 62-bit
// payload carried by a ScriptImport object index.
func ScriptImportHash(objectPath string) uint64 {
	normalized := normalizeScriptImportPath(objectPath)
	b, err := encodeUTF16LE(asciiFoldLower(normalized))
	if err != nil {
		return 0
	}
	return City64(b) & scriptImportPayloadMask
}

// NameHash hashes a single interned name's bytes in its own encoding
// (ASCII or UTF-16LE), lowercased first (§4.A).
func NameHash(value string, wide bool) (uint64, error) {
	lower := asciiFoldLower(value)
	if !wide {
		return City64([]byte(lower)), nil
	}
	b, err := encodeUTF16LE(lower)
	if err != nil {
		return 0, newError(KindMalformedInput, err, "encode UTF-16LE for name hash")
	}
	return City64(b), nil
}
