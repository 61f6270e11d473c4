// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "fmt"

// rebuildContext threads the working state of a Zen->Legacy rebuild: the
// source Zen package, the resolvers it consults, and the Legacy tables
// being assembled (§4.H).
type rebuildContext struct {
	zen      *ZenPackage
	ctx      *PackageContext
	scriptDB *ScriptObjectDatabase
	warnings *Warnings

	names   *NameTable
	imports []LegacyImport
	// importSlot maps a Zen import index to its Legacy import slot, or -1
	// if that import was Null and carries no Legacy slot.
	importSlot map[int]int
	cache      map[string]int // object path -> legacy import slot, for outer-chain memoization
}

// RebuildLegacy converts a Zen package back into a Legacy model, using
// ctx to resolve PackageImports and scriptDB to resolve ScriptImports
// (§4.H).
func RebuildLegacy(zen *ZenPackage, ctx *PackageContext, scriptDB *ScriptObjectDatabase, warnings *Warnings) (*LegacyModel, error) {
	if warnings == nil {
		warnings = NewWarnings()
	}
	rc := &rebuildContext{
		zen:        zen,
		ctx:        ctx,
		scriptDB:   scriptDB,
		warnings:   warnings,
		names:      FromNames(zen.Names),
		importSlot: make(map[int]int),
		cache:      make(map[string]int),
	}

	rc.seedCoreUObjectImport()

	for i := range zen.Imports {
		if err := rc.materializeImport(i); err != nil {
			return nil, err
		}
	}

	exports, err := rc.buildExports()
	if err != nil {
		return nil, err
	}

	model := &LegacyModel{
		Summary: LegacySummary{
			PackageFlags:  zen.Summary.PackageFlags,
			EngineVersion: 0,
			Unversioned:   zen.Summary.PackageFlags&(1<<2) != 0,
		},
		Names:       rc.names.Names(),
		Imports:     rc.imports,
		Exports:     exports,
		BulkEntries: zen.BulkEntries,
	}
	return model, nil
}

// seedCoreUObjectImport creates the synthetic "/Script/CoreUObject"
// package import every rebuilt Legacy asset is expected to carry (§4.H
// step 2).
func (rc *rebuildContext) seedCoreUObjectImport() {
	rootIdx := rc.internImport(LegacyImport{
		ObjectName: MappedName{Index: rc.names.Intern("/Script/CoreUObject")},
	})
	rc.cache["/Script/CoreUObject"] = rootIdx
}

func (rc *rebuildContext) internImport(imp LegacyImport) int {
	rc.imports = append(rc.imports, imp)
	return len(rc.imports) - 1
}

// materializeImport resolves zen import i into zero or more Legacy
// imports (the chain of outer objects plus the leaf itself), recording
// the leaf's Legacy slot in importSlot[i].
func (rc *rebuildContext) materializeImport(i int) error {
	idx := rc.zen.Imports[i]
	switch idx.Classify() {
	case ObjectIndexNull:
		rc.importSlot[i] = -1
		return nil
	case ObjectIndexScriptImport:
		slot, err := rc.materializeScriptImport(idx)
		if err != nil {
			return err
		}
		rc.importSlot[i] = slot
		return nil
	case ObjectIndexPackageImport:
		slot, err := rc.materializePackageImport(idx)
		if err != nil {
			return err
		}
		rc.importSlot[i] = slot
		return nil
	default:
		rc.importSlot[i] = rc.placeholderImport("UnresolvedImportKind")
		return nil
	}
}

func (rc *rebuildContext) placeholderImport(reason string) int {
	name := fmt.Sprintf("__UnresolvedImport_%x__", len(rc.imports))
	rc.warnings.Warn("creating placeholder legacy import %s: %s", name, reason)
	return rc.internImport(LegacyImport{ObjectName: MappedName{Index: rc.names.Intern(name)}})
}

// materializeScriptImport walks a script-object entry's outer chain,
// recursively materializing each ancestor as its own Legacy import, then
// returns the leaf's slot.
func (rc *rebuildContext) materializeScriptImport(idx ObjectIndex) (int, error) {
	payload, err := idx.ScriptImportPayload()
	if err != nil {
		return -1, err
	}
	entry, ok := rc.scriptDB.ByGlobalIndex(ObjectIndex(uint64(ObjectIndexScriptImport)<<62 | payload))
	if !ok {
		return rc.placeholderImport(fmt.Sprintf("script import hash %x not found", payload)), nil
	}
	return rc.materializeScriptEntry(entry)
}

func (rc *rebuildContext) materializeScriptEntry(entry ScriptObjectEntry) (int, error) {
	name, err := rc.scriptDB.nameValue(entry.ObjectName)
	if err != nil {
		return -1, err
	}
	if slot, ok := rc.cache[name]; ok {
		return slot, nil
	}

	outerSlot := -1
	if entry.OuterIndex.Classify() != ObjectIndexNull {
		if outerEntry, ok := rc.scriptDB.ByGlobalIndex(entry.OuterIndex); ok {
			outerSlot, err = rc.materializeScriptEntry(outerEntry)
			if err != nil {
				return -1, err
			}
		}
	}

	className := "Object"
	if rc.scriptDB.IsClass(entry.GlobalIndex) {
		className = "Class"
	}

	imp := LegacyImport{
		ClassPackageName: MappedName{Index: rc.names.Intern("/Script/CoreUObject")},
		ClassName:        MappedName{Index: rc.names.Intern(className)},
		ObjectName:       MappedName{Index: rc.names.Intern(name)},
	}
	if outerSlot >= 0 {
		imp.OuterIndex = encodeLegacyImportIndex(outerSlot)
	}
	slot := rc.internImport(imp)
	rc.cache[name] = slot
	return slot, nil
}

// materializePackageImport decodes a PackageImport, resolves it through
// the package context, and materializes the target package and the target
// export as Legacy imports (§4.H step 2). The export's class is not
// materialized as an import of its own: the export import's ClassName is
// "Class" when the target export has a non-null class index and "Object"
// otherwise.
func (rc *rebuildContext) materializePackageImport(idx ObjectIndex) (int, error) {
	pkgSlot, hashSlot, err := idx.PackageImportPayload()
	if err != nil {
		return -1, err
	}
	if rc.ctx == nil || int(pkgSlot) >= len(rc.zen.ImportedPackages) || int(hashSlot) >= len(rc.zen.ImportedPublicExportHashes) {
		return rc.placeholderImport("no package context available to resolve PackageImport"), nil
	}

	packageID := rc.zen.ImportedPackages[pkgSlot]
	targetPkg, err := rc.ctx.Get(packageID)
	if err != nil {
		return rc.placeholderImport(err.Error()), nil
	}

	targetHash := rc.zen.ImportedPublicExportHashes[hashSlot]
	var targetExport *ZenExport
	for i := range targetPkg.Exports {
		if targetPkg.Exports[i].PublicExportHash == targetHash {
			targetExport = &targetPkg.Exports[i]
			break
		}
	}
	if targetExport == nil {
		return rc.placeholderImport(fmt.Sprintf("no export with hash %x in package %x", targetHash, packageID)), nil
	}

	packagePath, err := targetPkg.nameValue(targetPkg.Summary.Name)
	if err != nil {
		return -1, err
	}
	packageSlot, ok := rc.cache[packagePath]
	if !ok {
		packageSlot = rc.internImport(LegacyImport{ObjectName: MappedName{Index: rc.names.Intern(packagePath)}})
		rc.cache[packagePath] = packageSlot
	}

	objName, err := targetPkg.nameValue(targetExport.ObjectName)
	if err != nil {
		return -1, err
	}
	className := "Object"
	if targetExport.ClassIndex.Classify() != ObjectIndexNull {
		className = "Class"
	}

	exportKey := packagePath + "/" + objName
	if slot, ok := rc.cache[exportKey]; ok {
		return slot, nil
	}
	imp := LegacyImport{
		ClassPackageName: MappedName{Index: rc.names.Intern(packagePath)},
		ClassName:        MappedName{Index: rc.names.Intern(className)},
		ObjectName:       MappedName{Index: rc.names.Intern(objName)},
		OuterIndex:       encodeLegacyImportIndex(packageSlot),
	}
	slot := rc.internImport(imp)
	rc.cache[exportKey] = slot
	return slot, nil
}

// nameValue resolves a ZenPackage's own mapped name against its name
// table, mirroring ScriptObjectDatabase.nameValue.
func (p *ZenPackage) nameValue(m MappedName) (string, error) {
	if int(m.Index) < 0 || int(m.Index) >= len(p.Names) {
		return "", newError(KindMalformedInput, ErrTableOutOfBounds, "zen name index %d out of bounds", m.Index)
	}
	return p.Names[m.Index].Value + renderSuffix(m.Number), nil
}

// buildExports implements §4.H step 3: remap class/outer/super/template
// by the inverse of the builder's remap, copy payload bytes verbatim from
// the cooked payload region.
func (rc *rebuildContext) buildExports() ([]LegacyExport, error) {
	exports := make([]LegacyExport, len(rc.zen.Exports))
	for i, ze := range rc.zen.Exports {
		start := ze.CookedSerialOffset
		end := start + ze.CookedSerialSize
		if end > uint64(len(rc.zen.Payload)) {
			return nil, newError(KindMalformedInput, ErrTableOutOfBounds,
				"export %d payload window [%d,%d) outside payload of length %d", i, start, end, len(rc.zen.Payload))
		}

		exports[i] = LegacyExport{
			ClassIndex:    rc.inverseRemap(ze.ClassIndex),
			SuperIndex:    rc.inverseRemap(ze.SuperIndex),
			TemplateIndex: rc.inverseRemap(ze.TemplateIndex),
			OuterIndex:    rc.inverseRemap(ze.OuterIndex),
			ObjectName:    ze.ObjectName,
			ObjectFlags:   ze.ObjectFlags,
			NotForClient:  ze.FilterFlags == FilterNotForClient,
			NotForServer:  ze.FilterFlags == FilterNotForServer,
			Payload:       rc.zen.Payload[start:end],
		}
	}
	return exports, nil
}

// inverseRemap is the inverse of buildContext.remapLegacyIndex: a Zen
// Export object index becomes a Legacy export reference; a ScriptImport
// or PackageImport becomes the Legacy import slot materializeImport
// already recorded for it; Null stays null.
func (rc *rebuildContext) inverseRemap(idx ObjectIndex) int32 {
	switch idx.Classify() {
	case ObjectIndexExport:
		slot, err := idx.ExportIndex()
		if err != nil {
			return 0
		}
		return encodeLegacyExportIndex(int(slot))
	case ObjectIndexNull:
		return 0
	default:
		for i, zi := range rc.zen.Imports {
			if zi == idx {
				if slot, ok := rc.importSlot[i]; ok && slot >= 0 {
					return encodeLegacyImportIndex(slot)
				}
			}
		}
		return 0
	}
}
