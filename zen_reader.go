// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// zenExportMapEntrySize is the fixed on-disk size of one ExportMap entry,
// three padding bytes included (§6).
const zenExportMapEntrySize = 72

// zenExportBundleEntrySize is the fixed on-disk size of one
// ExportBundleEntries record (§6).
const zenExportBundleEntrySize = 8

// zenDependencyBundleHeaderSize is the fixed on-disk size of one
// DependencyBundleHeaders record: 5 uint32 fields (§6).
const zenDependencyBundleHeaderSize = 20

// zenBulkDataEntrySize is the fixed on-disk size of one BulkDataMap entry
// (§6), shared with the Legacy bulk-data side-file format.
const zenBulkDataEntrySize = 32

// ReadZen parses a Zen package header-and-payload byte stream into a
// ZenPackage. Table boundaries are derived from consecutive offsets rather
// than stored lengths, per §4.F; the trailing ExportPayload region is
// whatever bytes remain after the last offset-bearing table.
func ReadZen(version ContainerVersion, buf []byte) (*ZenPackage, error) {
	r := newByteReader(buf)

	summary, err := readZenSummary(r, version)
	if err != nil {
		return nil, err
	}

	// NameBatch starts immediately after the summary and has no stored
	// offset of its own; its end is discovered by reading it.
	names, err := readNameBatch(r)
	if err != nil {
		return nil, err
	}

	bulkEntries, err := readBulkDataMap(r)
	if err != nil {
		return nil, err
	}

	var importedHashes []uint64
	if version > ContainerVersionInitial {
		hashCount := (int(summary.ImportMapOffset) - int(summary.ImportedPublicExportHashesOffset)) / 8
		if err := r.seek(int(summary.ImportedPublicExportHashesOffset)); err != nil {
			return nil, err
		}
		importedHashes = make([]uint64, hashCount)
		for i := range importedHashes {
			if importedHashes[i], err = r.u64(); err != nil {
				return nil, err
			}
		}
	}

	importCount := (int(summary.ExportMapOffset) - int(summary.ImportMapOffset)) / 8
	if err := r.seek(int(summary.ImportMapOffset)); err != nil {
		return nil, err
	}
	imports := make([]ObjectIndex, importCount)
	for i := range imports {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		imports[i] = ObjectIndex(v)
	}

	exportCount := (int(summary.ExportBundleEntriesOffset) - int(summary.ExportMapOffset)) / zenExportMapEntrySize
	if err := r.seek(int(summary.ExportMapOffset)); err != nil {
		return nil, err
	}
	exports := make([]ZenExport, exportCount)
	for i := range exports {
		if exports[i], err = readZenExport(r); err != nil {
			return nil, err
		}
	}

	var nextAfterBundles int
	if version >= ContainerVersionNoExportInfo {
		nextAfterBundles = int(summary.DependencyBundleHeadersOffset)
	} else {
		nextAfterBundles = int(summary.GraphDataOffset)
	}
	bundleCount := (nextAfterBundles - int(summary.ExportBundleEntriesOffset)) / zenExportBundleEntrySize
	if err := r.seek(int(summary.ExportBundleEntriesOffset)); err != nil {
		return nil, err
	}
	bundles := make([]ExportBundleEntry, bundleCount)
	for i := range bundles {
		if bundles[i], err = readExportBundleEntry(r); err != nil {
			return nil, err
		}
	}

	var depHeaders []DependencyBundleHeader
	var depEntries []int32
	var importedPackageNames []Name
	var importedPackageNumbers []int32
	var importedPackages []uint64

	if version >= ContainerVersionNoExportInfo {
		headerCount := (int(summary.DependencyBundleEntriesOffset) - int(summary.DependencyBundleHeadersOffset)) / zenDependencyBundleHeaderSize
		if err := r.seek(int(summary.DependencyBundleHeadersOffset)); err != nil {
			return nil, err
		}
		depHeaders = make([]DependencyBundleHeader, headerCount)
		for i := range depHeaders {
			if depHeaders[i], err = readDependencyBundleHeader(r); err != nil {
				return nil, err
			}
		}

		entryCount := (int(summary.ImportedPackageNamesOffset) - int(summary.DependencyBundleEntriesOffset)) / 4
		if err := r.seek(int(summary.DependencyBundleEntriesOffset)); err != nil {
			return nil, err
		}
		depEntries = make([]int32, entryCount)
		for i := range depEntries {
			if depEntries[i], err = r.i32(); err != nil {
				return nil, err
			}
		}

		if err := r.seek(int(summary.ImportedPackageNamesOffset)); err != nil {
			return nil, err
		}
		importedPackageNames, err = readNameBatch(r)
		if err != nil {
			return nil, err
		}
		importedPackageNumbers = make([]int32, len(importedPackageNames))
		for i := range importedPackageNumbers {
			if importedPackageNumbers[i], err = r.i32(); err != nil {
				return nil, err
			}
		}

		// imported_packages is not stored directly; each entry is the
		// package-id of the corresponding imported-package-name/number
		// pair (§3, §4.G step 3).
		importedPackages = make([]uint64, len(importedPackageNames))
		for i, n := range importedPackageNames {
			path := n.Value + renderSuffixZeroPadded(importedPackageNumbers[i])
			importedPackages[i] = PackageID(path)
		}
	}

	// Initial summaries store no header_size. WriteZen puts the payload
	// directly at graph_data_offset for that version, so everything from
	// there on is read as payload.
	payloadStart := int(summary.HeaderSize)
	if version == ContainerVersionInitial {
		payloadStart = int(summary.GraphDataOffset)
	}
	if err := r.seek(payloadStart); err != nil {
		return nil, err
	}
	payload, err := r.bytes(r.remaining())
	if err != nil {
		return nil, err
	}

	return &ZenPackage{
		Summary:                    summary,
		Names:                      names,
		BulkEntries:                bulkEntries,
		ImportedPublicExportHashes: importedHashes,
		Imports:                    imports,
		Exports:                    exports,
		ExportBundleEntries:        bundles,
		DependencyBundleHeaders:    depHeaders,
		DependencyBundleEntries:    depEntries,
		ImportedPackages:           importedPackages,
		ImportedPackageNames:       importedPackageNames,
		ImportedPackageNumbers:     importedPackageNumbers,
		Payload:                    payload,
	}, nil
}

func readZenSummary(r *byteReader, version ContainerVersion) (ZenSummary, error) {
	var s ZenSummary
	s.Version = version
	var err error

	if version > ContainerVersionInitial {
		v, err := r.u32()
		if err != nil {
			return s, err
		}
		s.HasVersioningInfo = v != 0
		if s.HeaderSize, err = r.u32(); err != nil {
			return s, err
		}
	}

	if s.Name, err = readMappedName(r); err != nil {
		return s, err
	}
	if s.PackageFlags, err = r.u32(); err != nil {
		return s, err
	}
	if s.CookedHeaderSize, err = r.u32(); err != nil {
		return s, err
	}

	if version > ContainerVersionInitial {
		if s.ImportedPublicExportHashesOffset, err = r.i32(); err != nil {
			return s, err
		}
	}
	if s.ImportMapOffset, err = r.i32(); err != nil {
		return s, err
	}
	if s.ExportMapOffset, err = r.i32(); err != nil {
		return s, err
	}
	if s.ExportBundleEntriesOffset, err = r.i32(); err != nil {
		return s, err
	}

	if version >= ContainerVersionNoExportInfo {
		if s.DependencyBundleHeadersOffset, err = r.i32(); err != nil {
			return s, err
		}
		if s.DependencyBundleEntriesOffset, err = r.i32(); err != nil {
			return s, err
		}
		if s.ImportedPackageNamesOffset, err = r.i32(); err != nil {
			return s, err
		}
	} else {
		if s.GraphDataOffset, err = r.i32(); err != nil {
			return s, err
		}
	}

	return s, nil
}

// readBulkDataMap reads the i64-length-prefixed bulk-data side table. A
// declared length of 0 means no bulk data (§4.F step 3).
func readBulkDataMap(r *byteReader) ([]BulkDataEntry, error) {
	sizeBytes, err := r.i64()
	if err != nil {
		return nil, err
	}
	if sizeBytes == 0 {
		return nil, nil
	}
	count := sizeBytes / zenBulkDataEntrySize
	entries := make([]BulkDataEntry, count)
	for i := range entries {
		if entries[i], err = readBulkDataEntry(r); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func readZenExport(r *byteReader) (ZenExport, error) {
	var e ZenExport
	var err error
	if e.CookedSerialOffset, err = r.u64(); err != nil {
		return e, err
	}
	if e.CookedSerialSize, err = r.u64(); err != nil {
		return e, err
	}
	if e.ObjectName, err = readMappedName(r); err != nil {
		return e, err
	}
	outer, err := r.u64()
	if err != nil {
		return e, err
	}
	e.OuterIndex = ObjectIndex(outer)
	class, err := r.u64()
	if err != nil {
		return e, err
	}
	e.ClassIndex = ObjectIndex(class)
	super, err := r.u64()
	if err != nil {
		return e, err
	}
	e.SuperIndex = ObjectIndex(super)
	template, err := r.u64()
	if err != nil {
		return e, err
	}
	e.TemplateIndex = ObjectIndex(template)
	if e.PublicExportHash, err = r.u64(); err != nil {
		return e, err
	}
	flags, err := r.u32()
	if err != nil {
		return e, err
	}
	e.ObjectFlags = ObjectFlags(flags)
	filter, err := r.u8()
	if err != nil {
		return e, err
	}
	e.FilterFlags = FilterFlags(filter)
	if _, err := r.bytes(3); err != nil {
		return e, err
	}
	return e, nil
}

func readExportBundleEntry(r *byteReader) (ExportBundleEntry, error) {
	var b ExportBundleEntry
	var err error
	if b.LocalExportIndex, err = r.u32(); err != nil {
		return b, err
	}
	cmd, err := r.u32()
	if err != nil {
		return b, err
	}
	b.Command = BundleCommand(cmd)
	return b, nil
}

func readDependencyBundleHeader(r *byteReader) (DependencyBundleHeader, error) {
	var h DependencyBundleHeader
	var err error
	if h.FirstEntryIndex, err = r.u32(); err != nil {
		return h, err
	}
	if h.CreateBeforeCreate, err = r.u32(); err != nil {
		return h, err
	}
	if h.SerializeBeforeCreate, err = r.u32(); err != nil {
		return h, err
	}
	if h.CreateBeforeSerialize, err = r.u32(); err != nil {
		return h, err
	}
	if h.SerializeBeforeSerialize, err = r.u32(); err != nil {
		return h, err
	}
	return h, nil
}
