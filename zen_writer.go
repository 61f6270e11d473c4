// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "io"

// WriteZen serializes pkg into a single Zen byte stream, following the
// ten-step writer contract of §4.F: placeholder summary, then every table
// in fixed order while offsets are recorded, then payload, then a
// back-patch of the summary and export map once final offsets are known.
func WriteZen(pkg *ZenPackage) ([]byte, error) {
	version := pkg.Summary.Version
	sink := NewBufferSink()

	summaryPlaceholder := zenSummarySize(version)
	if _, err := sink.Write(make([]byte, summaryPlaceholder)); err != nil {
		return nil, err
	}

	if err := writeNameBatch(sink, pkg.Names); err != nil {
		return nil, err
	}

	if err := writeBulkDataMap(sink, pkg.BulkEntries); err != nil {
		return nil, err
	}

	var importedHashesOffset int64
	if version > ContainerVersionInitial {
		var err error
		importedHashesOffset, err = currentPos(sink)
		if err != nil {
			return nil, err
		}
		for _, h := range pkg.ImportedPublicExportHashes {
			if err := writeU64(sink, h); err != nil {
				return nil, err
			}
		}
	}

	importMapOffset, err := currentPos(sink)
	if err != nil {
		return nil, err
	}
	for _, idx := range pkg.Imports {
		if err := writeU64(sink, uint64(idx)); err != nil {
			return nil, err
		}
	}

	exportMapOffset, err := currentPos(sink)
	if err != nil {
		return nil, err
	}
	for _, e := range pkg.Exports {
		if err := writeZenExport(sink, e); err != nil {
			return nil, err
		}
	}

	exportBundleOffset, err := currentPos(sink)
	if err != nil {
		return nil, err
	}
	for _, b := range pkg.ExportBundleEntries {
		if err := writeExportBundleEntry(sink, b); err != nil {
			return nil, err
		}
	}

	var depHeadersOffset, depEntriesOffset, importedNamesOffset, graphDataOffset int64
	if version >= ContainerVersionNoExportInfo {
		depHeadersOffset, err = currentPos(sink)
		if err != nil {
			return nil, err
		}
		for _, h := range pkg.DependencyBundleHeaders {
			if err := writeDependencyBundleHeader(sink, h); err != nil {
				return nil, err
			}
		}

		depEntriesOffset, err = currentPos(sink)
		if err != nil {
			return nil, err
		}
		for _, v := range pkg.DependencyBundleEntries {
			if err := writeI32(sink, v); err != nil {
				return nil, err
			}
		}

		importedNamesOffset, err = currentPos(sink)
		if err != nil {
			return nil, err
		}
		if err := writeNameBatch(sink, pkg.ImportedPackageNames); err != nil {
			return nil, err
		}
		for _, n := range pkg.ImportedPackageNumbers {
			if err := writeI32(sink, n); err != nil {
				return nil, err
			}
		}
	} else {
		graphDataOffset, err = currentPos(sink)
		if err != nil {
			return nil, err
		}
	}

	headerSize, err := currentPos(sink)
	if err != nil {
		return nil, err
	}

	// Step 8: cooked_serial_offset is the cumulative sum of prior
	// cooked_serial_size values, relative to the start of the payload.
	var cumulative uint64
	for i := range pkg.Exports {
		pkg.Exports[i].CookedSerialOffset = cumulative
		cumulative += pkg.Exports[i].CookedSerialSize
	}

	if _, err := sink.Write(pkg.Payload); err != nil {
		return nil, err
	}

	summary := pkg.Summary
	summary.HeaderSize = uint32(headerSize)
	summary.ImportedPublicExportHashesOffset = int32(importedHashesOffset)
	summary.ImportMapOffset = int32(importMapOffset)
	summary.ExportMapOffset = int32(exportMapOffset)
	summary.ExportBundleEntriesOffset = int32(exportBundleOffset)
	summary.DependencyBundleHeadersOffset = int32(depHeadersOffset)
	summary.DependencyBundleEntriesOffset = int32(depEntriesOffset)
	summary.ImportedPackageNamesOffset = int32(importedNamesOffset)
	summary.GraphDataOffset = int32(graphDataOffset)

	if _, err := sink.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if err := writeZenSummary(sink, summary); err != nil {
		return nil, err
	}

	if _, err := sink.Seek(exportMapOffset, io.SeekStart); err != nil {
		return nil, err
	}
	for _, e := range pkg.Exports {
		if err := writeZenExport(sink, e); err != nil {
			return nil, err
		}
	}

	return sink.Bytes(), nil
}

// zenSummarySize returns the placeholder byte size of a version-gated Zen
// summary, mirroring readZenSummary's field gating exactly.
func zenSummarySize(version ContainerVersion) int64 {
	size := int64(0)
	if version > ContainerVersionInitial {
		size += 4 + 4 // has_versioning_info, header_size
	}
	size += 4 + 4 // name (mapped)
	size += 4     // package_flags
	size += 4     // cooked_header_size
	if version > ContainerVersionInitial {
		size += 4 // imported_public_export_hashes_offset
	}
	size += 4 + 4 + 4 // import_map, export_map, export_bundle_entries offsets
	if version >= ContainerVersionNoExportInfo {
		size += 4 + 4 + 4 // dependency bundle headers/entries, imported package names
	} else {
		size += 4 // graph_data_offset
	}
	return size
}

func writeZenSummary(w Sink, s ZenSummary) error {
	if s.Version > ContainerVersionInitial {
		hasVersioning := uint32(0)
		if s.HasVersioningInfo {
			hasVersioning = 1
		}
		if err := writeU32(w, hasVersioning); err != nil {
			return err
		}
		if err := writeU32(w, s.HeaderSize); err != nil {
			return err
		}
	}

	if err := writeMappedName(w, s.Name); err != nil {
		return err
	}
	if err := writeU32(w, s.PackageFlags); err != nil {
		return err
	}
	if err := writeU32(w, s.CookedHeaderSize); err != nil {
		return err
	}

	if s.Version > ContainerVersionInitial {
		if err := writeI32(w, s.ImportedPublicExportHashesOffset); err != nil {
			return err
		}
	}
	if err := writeI32(w, s.ImportMapOffset); err != nil {
		return err
	}
	if err := writeI32(w, s.ExportMapOffset); err != nil {
		return err
	}
	if err := writeI32(w, s.ExportBundleEntriesOffset); err != nil {
		return err
	}

	if s.Version >= ContainerVersionNoExportInfo {
		if err := writeI32(w, s.DependencyBundleHeadersOffset); err != nil {
			return err
		}
		if err := writeI32(w, s.DependencyBundleEntriesOffset); err != nil {
			return err
		}
		return writeI32(w, s.ImportedPackageNamesOffset)
	}
	return writeI32(w, s.GraphDataOffset)
}

func writeBulkDataMap(w Sink, entries []BulkDataEntry) error {
	if len(entries) == 0 {
		return writeI64(w, 0)
	}
	if err := writeI64(w, int64(len(entries))*zenBulkDataEntrySize); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeBulkDataEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeZenExport(w Sink, e ZenExport) error {
	if err := writeU64(w, e.CookedSerialOffset); err != nil {
		return err
	}
	if err := writeU64(w, e.CookedSerialSize); err != nil {
		return err
	}
	if err := writeMappedName(w, e.ObjectName); err != nil {
		return err
	}
	if err := writeU64(w, uint64(e.OuterIndex)); err != nil {
		return err
	}
	if err := writeU64(w, uint64(e.ClassIndex)); err != nil {
		return err
	}
	if err := writeU64(w, uint64(e.SuperIndex)); err != nil {
		return err
	}
	if err := writeU64(w, uint64(e.TemplateIndex)); err != nil {
		return err
	}
	if err := writeU64(w, e.PublicExportHash); err != nil {
		return err
	}
	if err := writeU32(w, uint32(e.ObjectFlags)); err != nil {
		return err
	}
	if err := writeU8(w, uint8(e.FilterFlags)); err != nil {
		return err
	}
	var pad [3]byte
	_, err := w.Write(pad[:])
	return err
}

func writeExportBundleEntry(w Sink, b ExportBundleEntry) error {
	if err := writeU32(w, b.LocalExportIndex); err != nil {
		return err
	}
	return writeU32(w, uint32(b.Command))
}

func writeDependencyBundleHeader(w Sink, h DependencyBundleHeader) error {
	if err := writeU32(w, h.FirstEntryIndex); err != nil {
		return err
	}
	if err := writeU32(w, h.CreateBeforeCreate); err != nil {
		return err
	}
	if err := writeU32(w, h.SerializeBeforeCreate); err != nil {
		return err
	}
	if err := writeU32(w, h.CreateBeforeSerialize); err != nil {
		return err
	}
	return writeU32(w, h.SerializeBeforeSerialize)
}
