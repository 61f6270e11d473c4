// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// ObjectFlags is the bitset carried by both Legacy and Zen export entries.
type ObjectFlags uint32

// ObjectFlagPublic marks an object addressable from other packages.
const ObjectFlagPublic ObjectFlags = 1 << 0

// HasPublic reports whether the Public bit is set.
func (f ObjectFlags) HasPublic() bool { return f&ObjectFlagPublic != 0 }

// FilterFlags narrows which runtime targets load an export.
type FilterFlags uint8

const (
	FilterNone FilterFlags = iota
	FilterNotForClient
	FilterNotForServer
)

// BundleCommand is one phase of an export's load schedule.
type BundleCommand uint32

const (
	BundleCreate BundleCommand = iota
	BundleSerialize
)

// ExportBundleEntry is one (local-export-index, command) record in the
// linearized load-time schedule (§3, §6).
type ExportBundleEntry struct {
	LocalExportIndex uint32
	Command          BundleCommand
}

// DependencyBundleHeader gives the start offset and four list lengths for
// one export's preload-dependency entries (§3, §6).
type DependencyBundleHeader struct {
	FirstEntryIndex        uint32
	CreateBeforeCreate     uint32
	SerializeBeforeCreate  uint32
	CreateBeforeSerialize  uint32
	SerializeBeforeSerialize uint32
}

func (h DependencyBundleHeader) entryCount() uint32 {
	return h.CreateBeforeCreate + h.SerializeBeforeCreate + h.CreateBeforeSerialize + h.SerializeBeforeSerialize
}

// BulkDataEntry describes one bulk-data side-file range associated with a
// package, 32 bytes on disk: offset, duplicate offset, size, flags, then
// 4 reserved bytes written as zero (§3, §6, §9 open question on validation
// policy). Shared verbatim between the Legacy and Zen bulk-data maps.
type BulkDataEntry struct {
	Offset          int64
	DuplicateOffset int64
	Size            int64
	Flags           uint32
}

// ContainerVersion gates which summary fields and trailing sections a Zen
// header carries (§4.F, §6).
type ContainerVersion int

const (
	// ContainerVersionInitial is the oldest supported layout: no
	// has-versioning-info/header-size fields, no imported-public-export
	// hashes, graph data instead of dependency bundles.
	ContainerVersionInitial ContainerVersion = iota

	// ContainerVersionExportDependencies adds has-versioning-info,
	// header-size, and imported-public-export hashes, but still carries
	// graph data rather than dependency bundles.
	ContainerVersionExportDependencies

	// ContainerVersionNoExportInfo replaces graph data with explicit
	// dependency bundles (headers + entries) and an imported-package-names
	// batch.
	ContainerVersionNoExportInfo
)

// PreloadDependencies holds an export's four ordered dependency lists, in
// the fixed order the spec packs them (§3, §4.G step 7).
type PreloadDependencies struct {
	CreateBeforeCreate      []int32
	SerializeBeforeCreate   []int32
	CreateBeforeSerialize   []int32
	SerializeBeforeSerialize []int32
}

func (p PreloadDependencies) isEmpty() bool {
	return len(p.CreateBeforeCreate) == 0 && len(p.SerializeBeforeCreate) == 0 &&
		len(p.CreateBeforeSerialize) == 0 && len(p.SerializeBeforeSerialize) == 0
}

// --- Legacy model ---------------------------------------------------------

// LegacySummary carries the Legacy header's offsets and the metadata the
// codec preserves verbatim without semantically inspecting (§3).
type LegacySummary struct {
	HeaderSize    uint32
	PackageFlags  uint32
	PackageGUID   [16]byte
	EngineVersion uint32
	Unversioned   bool

	NameCount      uint32
	NameOffset     uint32
	ImportCount    uint32
	ImportOffset   uint32
	ExportCount    uint32
	ExportOffset   uint32
	BulkDataCount  uint32
	BulkDataOffset uint32
}

// LegacyImport is one Legacy import-table entry (§3).
type LegacyImport struct {
	ClassPackageName MappedName
	ClassName        MappedName
	OuterIndex       int32
	ObjectName       MappedName
}

// LegacyExport is one Legacy export-table entry (§3).
type LegacyExport struct {
	ClassIndex    int32
	SuperIndex    int32
	TemplateIndex int32
	OuterIndex    int32
	ObjectName    MappedName
	ObjectFlags   ObjectFlags

	SerialOffset int64
	SerialSize   int64

	NotForClient bool
	NotForServer bool

	Preload PreloadDependencies

	// Payload is this export's raw serialized bytes, sliced from the body
	// stream at read time (serial_offset-header_size, serial_size) and
	// concatenated back in order at write time.
	Payload []byte
}

// LegacyModel is the full in-memory Legacy package: header tables plus each
// export's payload bytes (originally the companion body stream) (§3, §4.D).
type LegacyModel struct {
	Summary     LegacySummary
	Names       []Name
	Imports     []LegacyImport
	Exports     []LegacyExport
	BulkData    []byte
	BulkEntries []BulkDataEntry
}

// legacyRef is a signed Legacy package index (0=null, positive N=export
// N-1, negative N=import -N-1) decoded by decodeLegacyIndex into a
// zero-based slot and a discriminator, per §3.
type legacyRef struct {
	IsNull   bool
	IsImport bool
	Index    int
}

func decodeLegacyIndex(v int32) legacyRef {
	switch {
	case v == 0:
		return legacyRef{IsNull: true}
	case v > 0:
		return legacyRef{Index: int(v - 1)}
	default:
		return legacyRef{IsImport: true, Index: int(-v - 1)}
	}
}

func encodeLegacyExportIndex(exportIdx int) int32  { return int32(exportIdx + 1) }
func encodeLegacyImportIndex(importIdx int) int32  { return int32(-(importIdx + 1)) }

// --- Zen model -------------------------------------------------------------

// ZenSummary is the fixed, version-gated Zen header prelude (§3, §6).
type ZenSummary struct {
	Version ContainerVersion

	HasVersioningInfo bool
	HeaderSize        uint32

	Name             MappedName
	PackageFlags     uint32
	CookedHeaderSize uint32

	ImportedPublicExportHashesOffset int32
	ImportMapOffset                  int32
	ExportMapOffset                  int32
	ExportBundleEntriesOffset        int32
	DependencyBundleHeadersOffset    int32
	DependencyBundleEntriesOffset    int32
	ImportedPackageNamesOffset       int32
	GraphDataOffset                  int32
}

// ZenExport is one Zen export-map entry, 72 bytes on disk (§3, §6).
type ZenExport struct {
	CookedSerialOffset uint64
	CookedSerialSize   uint64
	ObjectName         MappedName
	OuterIndex         ObjectIndex
	ClassIndex         ObjectIndex
	SuperIndex         ObjectIndex
	TemplateIndex      ObjectIndex
	PublicExportHash   uint64
	ObjectFlags        ObjectFlags
	FilterFlags        FilterFlags
}

// ZenPackage is the full in-memory Zen package (§3, §4.D).
type ZenPackage struct {
	Summary ZenSummary
	Names   []Name

	BulkData    []byte
	BulkEntries []BulkDataEntry

	ImportedPublicExportHashes []uint64
	Imports                    []ObjectIndex
	Exports                    []ZenExport
	ExportBundleEntries        []ExportBundleEntry
	DependencyBundleHeaders    []DependencyBundleHeader
	DependencyBundleEntries    []int32

	ImportedPackages       []uint64
	ImportedPackageNames   []Name
	ImportedPackageNumbers []int32

	Payload []byte
}
