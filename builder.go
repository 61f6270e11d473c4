// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"strings"
)

// buildContext carries the working state the builder steps thread
// through: the source Legacy model, the script-object database consulted
// for script imports, and the Zen tables accumulated so far (§4.G).
type buildContext struct {
	legacy   *LegacyModel
	scriptDB *ScriptObjectDatabase
	warnings *Warnings
	version  ContainerVersion

	packagePath string
	names       *NameTable

	importIndices              []ObjectIndex
	importedPackages           []uint64
	importedPackageNames       []Name
	importedPackageNumbers     []int32
	importedPackageSlot        map[uint64]uint32
	importedPublicExportHashes []uint64
	publicHashSlot             map[uint64]uint32
}

// BuildZen converts a parsed Legacy model into a Zen package, the
// direction §4.G calls the hardest subsystem. packagePath is the cooked
// content path this asset was loaded from (e.g. "/Game/Sub/Asset"),
// already known to the caller from the file it read the Legacy pair
// from — the Legacy header carries no such field of its own.
func BuildZen(legacy *LegacyModel, version ContainerVersion, scriptDB *ScriptObjectDatabase, packagePath string, warnings *Warnings) (*ZenPackage, error) {
	if warnings == nil {
		warnings = NewWarnings()
	}
	bc := &buildContext{
		legacy:              legacy,
		scriptDB:            scriptDB,
		warnings:            warnings,
		version:             version,
		packagePath:         normalizePackagePath(packagePath),
		importedPackageSlot: make(map[uint64]uint32),
		publicHashSlot:      make(map[uint64]uint32),
	}

	// Step 2: name map. Existing name-references from export payload
	// bytes remain valid because order is preserved exactly.
	bc.names = FromNames(legacy.Names)
	packageNameIdx := bc.names.Intern(bc.packagePath)

	// Step 3: import map.
	if err := bc.buildImportMap(); err != nil {
		return nil, err
	}

	// Step 4: export map.
	exports, err := bc.buildExportMap()
	if err != nil {
		return nil, err
	}

	// Step 6: class-specific payload adjustments, before bundle sizing
	// locks in cooked_serial_size deltas.
	payload, exports, err := bc.applyClassSpecificRewrites(exports)
	if err != nil {
		return nil, err
	}

	// Step 5: export bundles.
	bundles := bc.buildExportBundles(exports)

	// Step 7: dependency bundles.
	depHeaders, depEntries := bc.buildDependencyBundles()

	summary := ZenSummary{
		Version:          version,
		HasVersioningInfo: version > ContainerVersionInitial,
		Name:             MappedName{Index: packageNameIdx},
		PackageFlags:     bc.derivePackageFlags(),
		CookedHeaderSize: legacy.Summary.HeaderSize,
	}

	pkg := &ZenPackage{
		Summary:                    summary,
		Names:                      bc.names.Names(),
		BulkEntries:                legacy.BulkEntries,
		ImportedPublicExportHashes: bc.importedPublicExportHashes,
		Imports:                    bc.importIndices,
		Exports:                    exports,
		ExportBundleEntries:        bundles,
		DependencyBundleHeaders:    depHeaders,
		DependencyBundleEntries:    depEntries,
		ImportedPackages:           bc.importedPackages,
		ImportedPackageNames:       bc.importedPackageNames,
		ImportedPackageNumbers:     bc.importedPackageNumbers,
		Payload:                    payload,
	}
	return pkg, nil
}

// normalizePackagePath collapses "." and ".." segments and reprojects the
// result onto the canonical "/Game/..." form. Path cleanup has no
// domain-specific library anywhere in the retrieval pack, so it is done
// with plain string splitting rather than stdlib path.Clean, which
// assumes OS path semantics this engine-content path does not carry.
func normalizePackagePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	segments := strings.Split(p, "/")
	var cleaned []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(cleaned) > 0 {
				cleaned = cleaned[:len(cleaned)-1]
			}
		default:
			cleaned = append(cleaned, seg)
		}
	}
	if len(cleaned) == 0 {
		return "/Game"
	}
	if cleaned[0] != "Game" && !strings.HasPrefix(cleaned[0], "Script") && !strings.HasPrefix(cleaned[0], "Engine") {
		cleaned = append([]string{"Game"}, cleaned...)
	}
	return "/" + strings.Join(cleaned, "/")
}

// derivePackageFlags combines the engine's cooked/editor-filter flags with
// whatever the Legacy summary already carried, plus the unversioned bit
// (§4.G step 8).
func (bc *buildContext) derivePackageFlags() uint32 {
	const (
		pkgFilterEditorOnly     = 1 << 0
		pkgCooked               = 1 << 1
		pkgUnversionedProperties = 1 << 2
	)
	flags := bc.legacy.Summary.PackageFlags | pkgFilterEditorOnly | pkgCooked
	if bc.legacy.Summary.Unversioned {
		flags |= pkgUnversionedProperties
	}
	return flags
}

// legacyImportChain walks up an import's outer references, returning the
// chain from the root package-reference import down to (and including)
// idx itself. The walk stops the moment an outer reference is null or
// points at something other than another import.
func (bc *buildContext) legacyImportChain(idx int) []int {
	chain := []int{idx}
	current := idx
	for {
		ref := decodeLegacyIndex(bc.legacy.Imports[current].OuterIndex)
		if ref.IsNull || !ref.IsImport || ref.Index >= len(bc.legacy.Imports) {
			break
		}
		current = ref.Index
		chain = append([]int{current}, chain...)
	}
	return chain
}

func (bc *buildContext) importRawNameAndNumber(idx int) (string, int32, error) {
	imp := bc.legacy.Imports[idx]
	n, err := bc.legacy.nameAt(imp.ObjectName.Index)
	if err != nil {
		return "", 0, err
	}
	return n.Value, imp.ObjectName.Number, nil
}

// importObjectName renders an import's name using the general "_N-1"
// mapped-name suffix convention (§4.A). Used for script-import path
// construction and for the root package-reference/self-reference checks
// in buildImportMap, neither of which is the package-import-path
// synthesis §9 carves the zero-padded convention out for.
func (bc *buildContext) importObjectName(idx int) (string, error) {
	v, num, err := bc.importRawNameAndNumber(idx)
	if err != nil {
		return "", err
	}
	return v + renderSuffix(num), nil
}

// importPackagePathName renders an import's name using the zero-padded
// "_NN" suffix convention, scoped to resolvePackageImport's object-path
// and source-package-path construction (§4.G step 3, §9 name-number
// convention note).
func (bc *buildContext) importPackagePathName(idx int) (string, error) {
	v, num, err := bc.importRawNameAndNumber(idx)
	if err != nil {
		return "", err
	}
	return v + renderSuffixZeroPadded(num), nil
}

// buildImportMap implements §4.G step 3.
func (bc *buildContext) buildImportMap() error {
	bc.importIndices = make([]ObjectIndex, len(bc.legacy.Imports))

	for i, imp := range bc.legacy.Imports {
		outerRef := decodeLegacyIndex(imp.OuterIndex)
		if outerRef.IsNull {
			// This import IS the root package reference: Zen encodes
			// package references implicitly.
			bc.importIndices[i] = NullObjectIndex()
			continue
		}

		chain := bc.legacyImportChain(i)
		rootName, err := bc.importObjectName(chain[0])
		if err != nil {
			return err
		}

		if strings.HasPrefix(rootName, "/Script/") {
			idx, err := bc.resolveScriptImport(chain)
			if err != nil {
				return err
			}
			bc.importIndices[i] = idx
			continue
		}

		if rootName == bc.packagePath {
			bc.importIndices[i] = NullObjectIndex()
			continue
		}

		rootValue, rootNumber, err := bc.importRawNameAndNumber(chain[0])
		if err != nil {
			return err
		}
		idx, err := bc.resolvePackageImport(chain, rootValue, rootNumber)
		if err != nil {
			return err
		}
		bc.importIndices[i] = idx
	}
	return nil
}

// resolveScriptImport builds the object's "/Script/Module/Object/Sub"
// path from the chain and resolves it against the script-object
// database, per the exact-path -> simple-name -> hash fallback order of
// §4.G step 3. Every level joins with "/", matching
// ScriptObjectDatabase.fullPath's recursive outer-chain join exactly, so
// the exact-path lookup actually has a chance of hitting (§9 test
// vector 3: "/Script/Engine/StaticMesh").
func (bc *buildContext) resolveScriptImport(chain []int) (ObjectIndex, error) {
	parts := make([]string, len(chain))
	for i, idx := range chain {
		name, err := bc.importObjectName(idx)
		if err != nil {
			return 0, err
		}
		parts[i] = name
	}
	fullPath := strings.Join(parts, "/")

	if target, ok := bc.scriptDB.ByFullPath(fullPath); ok {
		return NewScriptImportObjectIndex(uint64(target) & scriptImportPayloadMask), nil
	}

	simple := parts[len(parts)-1]
	if target, ok := bc.scriptDB.BySimpleName(simple); ok {
		return NewScriptImportObjectIndex(uint64(target) & scriptImportPayloadMask), nil
	}

	bc.warnings.Warn("unresolved script import %q, falling back to path hash", fullPath)
	return NewScriptImportObjectIndex(ScriptImportHash(fullPath)), nil
}

// resolvePackageImport computes the source package id and the
// within-package object path, deduplicating both into the builder's
// imported-packages and imported-public-export-hashes tables. rootValue is
// the root import's bare interned name (no suffix applied); rootNumber is
// its raw mapped-name number. Both the package path and the object-path
// sub-parts render with the zero-padded convention (§4.G step 3, §9
// name-number convention note) -- ReadZen re-derives imported_packages by
// applying that same rendering to the stored bare name and number
// (zen_reader.go), so rootValue must stay unrendered here or the suffix
// would be applied twice.
func (bc *buildContext) resolvePackageImport(chain []int, rootValue string, rootNumber int32) (ObjectIndex, error) {
	parts := make([]string, len(chain)-1)
	for i, idx := range chain[1:] {
		name, err := bc.importPackagePathName(idx)
		if err != nil {
			return 0, err
		}
		parts[i] = name
	}
	objectPath := strings.Join(parts, ".")

	packageID := PackageID(rootValue + renderSuffixZeroPadded(rootNumber))
	pkgSlot, ok := bc.importedPackageSlot[packageID]
	if !ok {
		pkgSlot = uint32(len(bc.importedPackages))
		bc.importedPackageSlot[packageID] = pkgSlot
		bc.importedPackages = append(bc.importedPackages, packageID)
		bc.importedPackageNames = append(bc.importedPackageNames, NewName(rootValue))
		bc.importedPackageNumbers = append(bc.importedPackageNumbers, rootNumber)
	}

	hash := PublicExportHash(objectPath)
	hashSlot, ok := bc.publicHashSlot[hash]
	if !ok {
		hashSlot = uint32(len(bc.importedPublicExportHashes))
		bc.publicHashSlot[hash] = hashSlot
		bc.importedPublicExportHashes = append(bc.importedPublicExportHashes, hash)
	}

	return NewPackageImportObjectIndex(pkgSlot, hashSlot), nil
}

func (m *LegacyModel) nameAt(idx int32) (Name, error) {
	if idx < 0 || int(idx) >= len(m.Names) {
		return Name{}, newError(KindMalformedInput, ErrTableOutOfBounds, "legacy name index %d out of bounds", idx)
	}
	return m.Names[idx], nil
}

// remapLegacyIndex converts a Legacy package index (0=null, positive
// N=export N-1, negative N=import -N-1) into the Zen object index for
// that slot, per §4.G step 4's "legacy -> Zen index remap".
func (bc *buildContext) remapLegacyIndex(v int32) ObjectIndex {
	ref := decodeLegacyIndex(v)
	if ref.IsNull {
		return NullObjectIndex()
	}
	if ref.IsImport {
		if ref.Index < 0 || ref.Index >= len(bc.importIndices) {
			return NullObjectIndex()
		}
		return bc.importIndices[ref.Index]
	}
	return NewExportObjectIndex(uint32(ref.Index))
}

// buildExportMap implements §4.G step 4, except cooked_serial_offset
// (left 0; the writer fills it in) and the payload-rewrite size delta
// (left to applyClassSpecificRewrites).
func (bc *buildContext) buildExportMap() ([]ZenExport, error) {
	exports := make([]ZenExport, len(bc.legacy.Exports))

	for i, le := range bc.legacy.Exports {
		ze := ZenExport{
			ObjectName:       le.ObjectName,
			OuterIndex:       bc.remapLegacyIndex(le.OuterIndex),
			ClassIndex:       bc.remapLegacyIndex(le.ClassIndex),
			SuperIndex:       bc.remapLegacyIndex(le.SuperIndex),
			TemplateIndex:    bc.remapLegacyIndex(le.TemplateIndex),
			ObjectFlags:      le.ObjectFlags,
			FilterFlags:      deriveFilterFlags(le.NotForClient, le.NotForServer),
			CookedSerialSize: uint64(len(le.Payload)),
		}
		if le.ObjectFlags.HasPublic() {
			path, err := bc.exportPathWithinPackage(i)
			if err != nil {
				return nil, err
			}
			ze.PublicExportHash = PublicExportHash(path)
		}
		exports[i] = ze
	}
	return exports, nil
}

func deriveFilterFlags(notForClient, notForServer bool) FilterFlags {
	if notForClient {
		return FilterNotForClient
	}
	if notForServer {
		return FilterNotForServer
	}
	return FilterNone
}

// exportPathWithinPackage walks export i's outer chain of other exports
// (never imports) to build its dot-joined path within the package, used
// as the input to public_export_hash.
func (bc *buildContext) exportPathWithinPackage(i int) (string, error) {
	var parts []string
	current := i
	for {
		e := bc.legacy.Exports[current]
		n, err := bc.legacy.nameAt(e.ObjectName.Index)
		if err != nil {
			return "", err
		}
		parts = append([]string{n.Value + renderSuffix(e.ObjectName.Number)}, parts...)

		ref := decodeLegacyIndex(e.OuterIndex)
		if ref.IsNull || ref.IsImport {
			break
		}
		current = ref.Index
	}
	return strings.Join(parts, "."), nil
}
