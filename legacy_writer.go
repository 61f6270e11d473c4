// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "io"

// WriteLegacy serializes model into a (header, body) byte pair. It emits a
// placeholder summary, writes every table in a fixed order while recording
// each table's absolute offset, then seeks back and rewrites the summary
// with the offsets filled in — the same two-pass strategy
// saferwall-pe uses for its NT header/section table (§4.E, §9).
func WriteLegacy(model *LegacyModel) (header, body []byte, err error) {
	sink := NewBufferSink()

	placeholder := make([]byte, legacySummaryFixedSize)
	if _, err := sink.Write(placeholder); err != nil {
		return nil, nil, err
	}

	nameOffset, err := currentPos(sink)
	if err != nil {
		return nil, nil, err
	}
	if err := writeNameBatch(sink, model.Names); err != nil {
		return nil, nil, err
	}

	importOffset, err := currentPos(sink)
	if err != nil {
		return nil, nil, err
	}
	for _, imp := range model.Imports {
		if err := writeLegacyImport(sink, imp); err != nil {
			return nil, nil, err
		}
	}

	exportOffset, err := currentPos(sink)
	if err != nil {
		return nil, nil, err
	}
	for _, exp := range model.Exports {
		if err := writeLegacyExport(sink, exp); err != nil {
			return nil, nil, err
		}
	}

	var bulkOffset int64
	if len(model.BulkEntries) > 0 {
		bulkOffset, err = currentPos(sink)
		if err != nil {
			return nil, nil, err
		}
		for _, b := range model.BulkEntries {
			if err := writeBulkDataEntry(sink, b); err != nil {
				return nil, nil, err
			}
		}
	}

	headerSize, err := currentPos(sink)
	if err != nil {
		return nil, nil, err
	}

	summary := LegacySummary{
		HeaderSize:     uint32(headerSize),
		PackageFlags:   model.Summary.PackageFlags,
		PackageGUID:    model.Summary.PackageGUID,
		EngineVersion:  model.Summary.EngineVersion,
		Unversioned:    model.Summary.Unversioned,
		NameCount:      uint32(len(model.Names)),
		NameOffset:     uint32(nameOffset),
		ImportCount:    uint32(len(model.Imports)),
		ImportOffset:   uint32(importOffset),
		ExportCount:    uint32(len(model.Exports)),
		ExportOffset:   uint32(exportOffset),
		BulkDataCount:  uint32(len(model.BulkEntries)),
		BulkDataOffset: uint32(bulkOffset),
	}

	if _, err := sink.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	if err := writeLegacySummary(sink, summary); err != nil {
		return nil, nil, err
	}

	bodySink := NewBufferSink()
	var cumulative int64
	for _, exp := range model.Exports {
		if _, err := bodySink.Write(exp.Payload); err != nil {
			return nil, nil, err
		}
		cumulative += int64(len(exp.Payload))
	}
	if err := writeU32(bodySink, legacyPackageFileTag); err != nil {
		return nil, nil, err
	}

	// Rewrite each export's serial_offset to equal new_body_start +
	// cumulative_size_before_this_export, per the writer contract. Since
	// the header we just wrote already carries headerSize, re-derive the
	// final header bytes once more with the corrected export table.
	cumulative = 0
	for i := range model.Exports {
		model.Exports[i].SerialOffset = int64(headerSize) + cumulative
		model.Exports[i].SerialSize = int64(len(model.Exports[i].Payload))
		cumulative += model.Exports[i].SerialSize
	}
	if _, err := sink.Seek(exportOffset, io.SeekStart); err != nil {
		return nil, nil, err
	}
	for _, exp := range model.Exports {
		if err := writeLegacyExport(sink, exp); err != nil {
			return nil, nil, err
		}
	}

	return sink.Bytes(), bodySink.Bytes(), nil
}

func currentPos(s *BufferSink) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

func writeLegacySummary(w Sink, s LegacySummary) error {
	if err := writeU32(w, s.HeaderSize); err != nil {
		return err
	}
	if err := writeU32(w, s.PackageFlags); err != nil {
		return err
	}
	if _, err := w.Write(s.PackageGUID[:]); err != nil {
		return err
	}
	if err := writeU32(w, s.EngineVersion); err != nil {
		return err
	}
	unversioned := uint8(0)
	if s.Unversioned {
		unversioned = 1
	}
	if err := writeU8(w, unversioned); err != nil {
		return err
	}
	if err := writeU32(w, s.NameCount); err != nil {
		return err
	}
	if err := writeU32(w, s.NameOffset); err != nil {
		return err
	}
	if err := writeU32(w, s.ImportCount); err != nil {
		return err
	}
	if err := writeU32(w, s.ImportOffset); err != nil {
		return err
	}
	if err := writeU32(w, s.ExportCount); err != nil {
		return err
	}
	if err := writeU32(w, s.ExportOffset); err != nil {
		return err
	}
	if err := writeU32(w, s.BulkDataCount); err != nil {
		return err
	}
	return writeU32(w, s.BulkDataOffset)
}

func writeMappedName(w Sink, m MappedName) error {
	if err := writeI32(w, m.Index); err != nil {
		return err
	}
	return writeI32(w, m.Number)
}

func writeLegacyImport(w Sink, imp LegacyImport) error {
	if err := writeMappedName(w, imp.ClassPackageName); err != nil {
		return err
	}
	if err := writeMappedName(w, imp.ClassName); err != nil {
		return err
	}
	if err := writeI32(w, imp.OuterIndex); err != nil {
		return err
	}
	return writeMappedName(w, imp.ObjectName)
}

func writeInt32List(w Sink, list []int32) error {
	for _, v := range list {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeLegacyExport(w Sink, e LegacyExport) error {
	if err := writeI32(w, e.ClassIndex); err != nil {
		return err
	}
	if err := writeI32(w, e.SuperIndex); err != nil {
		return err
	}
	if err := writeI32(w, e.TemplateIndex); err != nil {
		return err
	}
	if err := writeI32(w, e.OuterIndex); err != nil {
		return err
	}
	if err := writeMappedName(w, e.ObjectName); err != nil {
		return err
	}
	if err := writeU32(w, uint32(e.ObjectFlags)); err != nil {
		return err
	}
	if err := writeI64(w, e.SerialOffset); err != nil {
		return err
	}
	if err := writeI64(w, e.SerialSize); err != nil {
		return err
	}
	notForClient := uint8(0)
	if e.NotForClient {
		notForClient = 1
	}
	if err := writeU8(w, notForClient); err != nil {
		return err
	}
	notForServer := uint8(0)
	if e.NotForServer {
		notForServer = 1
	}
	if err := writeU8(w, notForServer); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(e.Preload.CreateBeforeCreate))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(e.Preload.SerializeBeforeCreate))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(e.Preload.CreateBeforeSerialize))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(e.Preload.SerializeBeforeSerialize))); err != nil {
		return err
	}
	if err := writeInt32List(w, e.Preload.CreateBeforeCreate); err != nil {
		return err
	}
	if err := writeInt32List(w, e.Preload.SerializeBeforeCreate); err != nil {
		return err
	}
	if err := writeInt32List(w, e.Preload.CreateBeforeSerialize); err != nil {
		return err
	}
	return writeInt32List(w, e.Preload.SerializeBeforeSerialize)
}

func writeBulkDataEntry(w Sink, b BulkDataEntry) error {
	if err := writeI64(w, b.Offset); err != nil {
		return err
	}
	if err := writeI64(w, b.DuplicateOffset); err != nil {
		return err
	}
	if err := writeI64(w, b.Size); err != nil {
		return err
	}
	if err := writeU32(w, b.Flags); err != nil {
		return err
	}
	var reserved [4]byte
	_, err := w.Write(reserved[:])
	return err
}
