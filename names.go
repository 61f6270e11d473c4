// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// nameBatchAlgorithmTag identifies the CityHash64-lowercase algorithm used
// to hash every name in a batch (§4.A, §6).
const nameBatchAlgorithmTag = uint64(0x00000000C1640000)

// Name is an interned string plus the encoding it is stored and hashed
// under. Encoding is an emergent property of the value (ASCII-only vs.
// wide), never a separate field a caller sets.
type Name struct {
	Value string
	Wide  bool
}

// isWide reports whether value requires UTF-16LE encoding: true iff any
// code point exceeds 0x7F.
func isWide(value string) bool {
	for _, r := range value {
		if r > 0x7F {
			return true
		}
	}
	return false
}

// NewName builds a Name, inferring its encoding from the value.
func NewName(value string) Name {
	return Name{Value: value, Wide: isWide(value)}
}

// MappedName is a (index, number) reference into a name table. Number 0
// means no numeric suffix; number N>0 means the rendered form carries the
// suffix "_N-1" (except in the imported-package-path synthesis context,
// which zero-pads to two digits — see builder.go).
type MappedName struct {
	Index  int32
	Number int32
}

// NameTable owns a sequence of interned Name entries with exact-match
// deduplication (case sensitive comparison, not the case-folded hash form).
type NameTable struct {
	names []Name
	index map[string]int32
}

// NewNameTable returns an empty, mutable name table.
func NewNameTable() *NameTable {
	return &NameTable{index: make(map[string]int32)}
}

// Intern returns the index of value, appending it if not already present.
// Equality is exact (case sensitive); the duplicate check runs before any
// write, so interning an existing value never grows the table.
func (t *NameTable) Intern(value string) int32 {
	if idx, ok := t.index[value]; ok {
		return idx
	}
	idx := int32(len(t.names))
	t.names = append(t.names, NewName(value))
	t.index[value] = idx
	return idx
}

// Lookup returns the index of value if already interned.
func (t *NameTable) Lookup(value string) (int32, bool) {
	idx, ok := t.index[value]
	return idx, ok
}

// Len returns the number of interned names.
func (t *NameTable) Len() int { return len(t.names) }

// At returns the name at idx.
func (t *NameTable) At(idx int32) (Name, error) {
	if idx < 0 || int(idx) >= len(t.names) {
		return Name{}, newError(KindMalformedInput, ErrTableOutOfBounds, "name index %d out of bounds (len=%d)", idx, len(t.names))
	}
	return t.names[idx], nil
}

// Names returns the interned names in insertion order. The returned slice
// must not be mutated; the table is sealed from the caller's perspective
// once built (§3 lifecycle).
func (t *NameTable) Names() []Name { return t.names }

// FromNames seeds a NameTable from an existing ordered slice, preserving
// order and indices (used when carrying a Legacy name table into a Zen
// name table unchanged — §4.G step 2).
func FromNames(names []Name) *NameTable {
	t := NewNameTable()
	for _, n := range names {
		t.Intern(n.Value)
	}
	return t
}

// renderSuffix renders a mapped name's numeric suffix using the general
// convention: 0 -> no suffix, N>0 -> "_N-1".
func renderSuffix(number int32) string {
	if number == 0 {
		return ""
	}
	return "_" + itoa(int64(number-1))
}

// renderSuffixZeroPadded renders a mapped name's numeric suffix using the
// import-package-path synthesis convention: zero-padded two digits,
// "_01", "_02", ... This diverges from the general rule and must be
// preserved exactly since package IDs depend on it (§9 design note).
func renderSuffixZeroPadded(number int32) string {
	if number == 0 {
		return ""
	}
	n := number - 1
	if n < 99 {
		return "_" + padTwoDigits(n)
	}
	return "_" + itoa(int64(n))
}

func padTwoDigits(n int32) string {
	s := itoa(int64(n))
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// writeNameBatch writes a name batch per §4.A / §6: count, then (if count
// > 0) string-bytes-total, the algorithm tag, N hashes, N big-endian
// length headers, then concatenated string bytes with no alignment
// padding. An empty batch writes only the zero count, matching the §8
// boundary behavior.
func writeNameBatch(w Sink, names []Name) error {
	if err := writeU32(w, uint32(len(names))); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	var totalBytes uint32
	encoded := make([][]byte, len(names))
	hashes := make([]uint64, len(names))
	for i, n := range names {
		var b []byte
		if n.Wide {
			var err error
			b, err = encodeUTF16LE(n.Value)
			if err != nil {
				return newError(KindMalformedInput, err, "encode wide name %q", n.Value)
			}
		} else {
			b = []byte(n.Value)
		}
		encoded[i] = b
		totalBytes += uint32(len(b))

		h, err := NameHash(n.Value, n.Wide)
		if err != nil {
			return err
		}
		hashes[i] = h
	}

	if err := writeU32(w, totalBytes); err != nil {
		return err
	}
	if err := writeU64(w, nameBatchAlgorithmTag); err != nil {
		return err
	}
	for _, h := range hashes {
		if err := writeU64(w, h); err != nil {
			return err
		}
	}
	for i, n := range names {
		var header int16
		if n.Wide {
			charCount := len(encoded[i]) / 2
			header = int16(int32(minI16) + int32(charCount))
		} else {
			header = int16(len(encoded[i]))
		}
		if err := writeU16BE(w, uint16(header)); err != nil {
			return err
		}
	}
	for _, b := range encoded {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

const minI16 = -32768

// readNameBatch mirrors writeNameBatch. A zero count is a valid empty
// batch with nothing else to read.
func readNameBatch(r *byteReader) ([]Name, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	declaredBytes, err := r.u32()
	if err != nil {
		return nil, err
	}
	tag, err := r.u64()
	if err != nil {
		return nil, err
	}
	if tag != nameBatchAlgorithmTag {
		return nil, newError(KindMalformedInput, ErrMalformedNameBatch, "name batch algorithm tag 0x%x != 0x%x", tag, nameBatchAlgorithmTag)
	}

	hashes := make([]uint64, count)
	for i := range hashes {
		hashes[i], err = r.u64()
		if err != nil {
			return nil, err
		}
	}

	headers := make([]int16, count)
	for i := range headers {
		v, err := r.u16be()
		if err != nil {
			return nil, err
		}
		headers[i] = int16(v)
	}

	names := make([]Name, count)
	var consumedBytes uint32
	for i, h := range headers {
		if h >= 0 {
			b, err := r.bytes(int(h))
			if err != nil {
				return nil, err
			}
			names[i] = Name{Value: string(b), Wide: false}
			consumedBytes += uint32(h)
		} else {
			charCount := int32(h) - minI16
			b, err := r.bytes(int(charCount) * 2)
			if err != nil {
				return nil, err
			}
			s, err := decodeUTF16LE(b)
			if err != nil {
				return nil, newError(KindMalformedInput, err, "decode wide name at index %d", i)
			}
			names[i] = Name{Value: s, Wide: true}
			consumedBytes += uint32(charCount) * 2
		}
	}

	if consumedBytes != declaredBytes {
		return nil, newError(KindMalformedInput, ErrMalformedNameBatch,
			"name batch declared %d string bytes, decoded %d", declaredBytes, consumedBytes)
	}

	return names, nil
}
