// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// legacyPackageFileTag terminates the Legacy body stream (§6). Readers
// strip it before computing export-size invariants; writers append it.
const legacyPackageFileTag = uint32(0x9E2A83C1)

const legacySummaryFixedSize = 4 + 4 + 16 + 4 + 1 + 4*8

// ReadLegacy parses a Legacy header stream and its companion body stream
// into a LegacyModel. Grounded on the two-stream, index-then-data read
// style of other_examples' legacy_reader.go.go (readLegacyHeader then
// loadLegacyIndex) and saferwall-pe's structUnpack bounds-checked field
// reads.
func ReadLegacy(header, body []byte) (*LegacyModel, error) {
	r := newByteReader(header)

	summary, err := readLegacySummary(r)
	if err != nil {
		return nil, err
	}

	if err := r.seek(int(summary.NameOffset)); err != nil {
		return nil, err
	}
	names, err := readNameBatch(r)
	if err != nil {
		return nil, err
	}

	if err := r.seek(int(summary.ImportOffset)); err != nil {
		return nil, err
	}
	imports := make([]LegacyImport, summary.ImportCount)
	for i := range imports {
		imports[i], err = readLegacyImport(r)
		if err != nil {
			return nil, err
		}
	}

	if err := r.seek(int(summary.ExportOffset)); err != nil {
		return nil, err
	}
	exports := make([]LegacyExport, summary.ExportCount)
	for i := range exports {
		exports[i], err = readLegacyExport(r)
		if err != nil {
			return nil, err
		}
	}

	var bulkEntries []BulkDataEntry
	if summary.BulkDataCount > 0 {
		if err := r.seek(int(summary.BulkDataOffset)); err != nil {
			return nil, err
		}
		bulkEntries = make([]BulkDataEntry, summary.BulkDataCount)
		for i := range bulkEntries {
			bulkEntries[i], err = readBulkDataEntry(r)
			if err != nil {
				return nil, err
			}
		}
	}

	strippedBody, err := stripLegacyPackageFileTag(body)
	if err != nil {
		return nil, err
	}

	for i := range exports {
		start := exports[i].SerialOffset - int64(summary.HeaderSize)
		end := start + exports[i].SerialSize
		if start < 0 || end > int64(len(strippedBody)) {
			return nil, newError(KindMalformedInput, ErrTableOutOfBounds,
				"export %d payload window [%d,%d) outside body of length %d", i, start, end, len(strippedBody))
		}
		exports[i].Payload = strippedBody[start:end]
	}

	return &LegacyModel{
		Summary:     summary,
		Names:       names,
		Imports:     imports,
		Exports:     exports,
		BulkEntries: bulkEntries,
	}, nil
}

func stripLegacyPackageFileTag(body []byte) ([]byte, error) {
	if len(body) < 4 {
		return nil, newError(KindMalformedInput, ErrMissingBody, "legacy body stream shorter than the trailing package tag")
	}
	r := newByteReader(body[len(body)-4:])
	tag, err := r.u32()
	if err != nil {
		return nil, err
	}
	if tag != legacyPackageFileTag {
		return nil, newError(KindMalformedInput, ErrMissingBody, "legacy body stream missing trailing package tag 0x%x", legacyPackageFileTag)
	}
	return body[:len(body)-4], nil
}

func readLegacySummary(r *byteReader) (LegacySummary, error) {
	var s LegacySummary
	var err error
	if s.HeaderSize, err = r.u32(); err != nil {
		return s, err
	}
	if s.PackageFlags, err = r.u32(); err != nil {
		return s, err
	}
	guid, err := r.bytes(16)
	if err != nil {
		return s, err
	}
	copy(s.PackageGUID[:], guid)
	if s.EngineVersion, err = r.u32(); err != nil {
		return s, err
	}
	unversioned, err := r.u8()
	if err != nil {
		return s, err
	}
	s.Unversioned = unversioned != 0
	if s.NameCount, err = r.u32(); err != nil {
		return s, err
	}
	if s.NameOffset, err = r.u32(); err != nil {
		return s, err
	}
	if s.ImportCount, err = r.u32(); err != nil {
		return s, err
	}
	if s.ImportOffset, err = r.u32(); err != nil {
		return s, err
	}
	if s.ExportCount, err = r.u32(); err != nil {
		return s, err
	}
	if s.ExportOffset, err = r.u32(); err != nil {
		return s, err
	}
	if s.BulkDataCount, err = r.u32(); err != nil {
		return s, err
	}
	if s.BulkDataOffset, err = r.u32(); err != nil {
		return s, err
	}
	return s, nil
}

func readMappedName(r *byteReader) (MappedName, error) {
	idx, err := r.i32()
	if err != nil {
		return MappedName{}, err
	}
	num, err := r.i32()
	if err != nil {
		return MappedName{}, err
	}
	return MappedName{Index: idx, Number: num}, nil
}

func readLegacyImport(r *byteReader) (LegacyImport, error) {
	var imp LegacyImport
	var err error
	if imp.ClassPackageName, err = readMappedName(r); err != nil {
		return imp, err
	}
	if imp.ClassName, err = readMappedName(r); err != nil {
		return imp, err
	}
	if imp.OuterIndex, err = r.i32(); err != nil {
		return imp, err
	}
	if imp.ObjectName, err = readMappedName(r); err != nil {
		return imp, err
	}
	return imp, nil
}

func readInt32List(r *byteReader, n uint32) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]int32, n)
	for i := range out {
		v, err := r.i32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readLegacyExport(r *byteReader) (LegacyExport, error) {
	var e LegacyExport
	var err error
	if e.ClassIndex, err = r.i32(); err != nil {
		return e, err
	}
	if e.SuperIndex, err = r.i32(); err != nil {
		return e, err
	}
	if e.TemplateIndex, err = r.i32(); err != nil {
		return e, err
	}
	if e.OuterIndex, err = r.i32(); err != nil {
		return e, err
	}
	if e.ObjectName, err = readMappedName(r); err != nil {
		return e, err
	}
	flags, err := r.u32()
	if err != nil {
		return e, err
	}
	e.ObjectFlags = ObjectFlags(flags)
	if e.SerialOffset, err = r.i64(); err != nil {
		return e, err
	}
	if e.SerialSize, err = r.i64(); err != nil {
		return e, err
	}
	notForClient, err := r.u8()
	if err != nil {
		return e, err
	}
	e.NotForClient = notForClient != 0
	notForServer, err := r.u8()
	if err != nil {
		return e, err
	}
	e.NotForServer = notForServer != 0

	counts := make([]uint32, 4)
	for i := range counts {
		if counts[i], err = r.u32(); err != nil {
			return e, err
		}
	}
	if e.Preload.CreateBeforeCreate, err = readInt32List(r, counts[0]); err != nil {
		return e, err
	}
	if e.Preload.SerializeBeforeCreate, err = readInt32List(r, counts[1]); err != nil {
		return e, err
	}
	if e.Preload.CreateBeforeSerialize, err = readInt32List(r, counts[2]); err != nil {
		return e, err
	}
	if e.Preload.SerializeBeforeSerialize, err = readInt32List(r, counts[3]); err != nil {
		return e, err
	}
	return e, nil
}

// readBulkDataEntry parses one 32-byte bulk-data entry: offset, duplicate
// offset, size, flags, then 4 reserved bytes (§6).
func readBulkDataEntry(r *byteReader) (BulkDataEntry, error) {
	var b BulkDataEntry
	var err error
	if b.Offset, err = r.i64(); err != nil {
		return b, err
	}
	if b.DuplicateOffset, err = r.i64(); err != nil {
		return b, err
	}
	if b.Size, err = r.i64(); err != nil {
		return b, err
	}
	if b.Flags, err = r.u32(); err != nil {
		return b, err
	}
	if _, err = r.bytes(4); err != nil {
		return b, err
	}
	return b, nil
}
