// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"bytes"
	"testing"
)

func simpleSelfContainedLegacyModel() *LegacyModel {
	return &LegacyModel{
		Names: []Name{NewName("Root"), NewName("Child")},
		Exports: []LegacyExport{
			{ObjectName: MappedName{Index: 0}, ObjectFlags: ObjectFlagPublic, Payload: []byte("root payload")},
			{ObjectName: MappedName{Index: 1}, OuterIndex: encodeLegacyExportIndex(0), Payload: []byte("child payload, longer")},
		},
	}
}

func TestBuildZenThenRebuildLegacyRoundTrip(t *testing.T) {
	legacy := simpleSelfContainedLegacyModel()

	zenPkg, err := BuildZen(legacy, ContainerVersionNoExportInfo, nil, "/Game/Test/Asset", nil)
	if err != nil {
		t.Fatalf("BuildZen: %v", err)
	}

	buf, err := WriteZen(zenPkg)
	if err != nil {
		t.Fatalf("WriteZen: %v", err)
	}

	reparsed, err := ReadZen(ContainerVersionNoExportInfo, buf)
	if err != nil {
		t.Fatalf("ReadZen: %v", err)
	}
	if len(reparsed.Exports) != len(legacy.Exports) {
		t.Fatalf("got %d zen exports, want %d", len(reparsed.Exports), len(legacy.Exports))
	}

	rebuilt, err := RebuildLegacy(reparsed, nil, nil, nil)
	if err != nil {
		t.Fatalf("RebuildLegacy: %v", err)
	}
	if len(rebuilt.Exports) != len(legacy.Exports) {
		t.Fatalf("got %d rebuilt exports, want %d", len(rebuilt.Exports), len(legacy.Exports))
	}
	for i := range legacy.Exports {
		if !bytes.Equal(rebuilt.Exports[i].Payload, legacy.Exports[i].Payload) {
			t.Errorf("export %d payload = %q, want %q", i, rebuilt.Exports[i].Payload, legacy.Exports[i].Payload)
		}
	}

	// The child export's outer reference should still point back at export 0
	// after going Legacy -> Zen -> Legacy.
	if rebuilt.Exports[1].OuterIndex != encodeLegacyExportIndex(0) {
		t.Errorf("child OuterIndex = %d, want %d", rebuilt.Exports[1].OuterIndex, encodeLegacyExportIndex(0))
	}
}

func TestBuildZenSelfReferenceBecomesNull(t *testing.T) {
	legacy := &LegacyModel{
		Names: []Name{NewName("/Game/Test/Asset"), NewName("Thing")},
		Imports: []LegacyImport{
			{ObjectName: MappedName{Index: 0}}, // root reference to this asset's own package
			{ObjectName: MappedName{Index: 1}, OuterIndex: encodeLegacyImportIndex(0)},
		},
		Exports: []LegacyExport{
			{ObjectName: MappedName{Index: 1}, ClassIndex: encodeLegacyImportIndex(1), Payload: []byte("x")},
		},
	}

	zenPkg, err := BuildZen(legacy, ContainerVersionNoExportInfo, nil, "/Game/Test/Asset", nil)
	if err != nil {
		t.Fatalf("BuildZen: %v", err)
	}
	if !zenPkg.Imports[0].IsNull() {
		t.Errorf("root package-reference import should map to Null, got %v", zenPkg.Imports[0].Classify())
	}
	if !zenPkg.Imports[1].IsNull() {
		t.Errorf("import chain rooted at this asset's own package should map to Null, got %v", zenPkg.Imports[1].Classify())
	}
}

func TestBuildZenDeduplicatesImportedPackages(t *testing.T) {
	legacy := &LegacyModel{
		Names: []Name{NewName("/Game/Other/Package"), NewName("SomeClass"), NewName("AnotherClass"), NewName("Thing")},
		Imports: []LegacyImport{
			{ObjectName: MappedName{Index: 0}}, // root reference to a different package
			{ObjectName: MappedName{Index: 1}, OuterIndex: encodeLegacyImportIndex(0)},
			{ObjectName: MappedName{Index: 2}, OuterIndex: encodeLegacyImportIndex(0)},
		},
		Exports: []LegacyExport{
			{
				ObjectName:    MappedName{Index: 3},
				ClassIndex:    encodeLegacyImportIndex(1),
				TemplateIndex: encodeLegacyImportIndex(2),
				Payload:       []byte("x"),
			},
		},
	}

	zenPkg, err := BuildZen(legacy, ContainerVersionNoExportInfo, nil, "/Game/Test/Asset", nil)
	if err != nil {
		t.Fatalf("BuildZen: %v", err)
	}

	if len(zenPkg.ImportedPackages) != 1 {
		t.Fatalf("got %d imported packages, want 1 (both imports share the same root package)", len(zenPkg.ImportedPackages))
	}
	if len(zenPkg.ImportedPublicExportHashes) != 2 {
		t.Fatalf("got %d imported public export hashes, want 2 (distinct object paths)", len(zenPkg.ImportedPublicExportHashes))
	}

	classPkgSlot, classHashSlot, err := zenPkg.Imports[1].PackageImportPayload()
	if err != nil {
		t.Fatalf("PackageImportPayload(class import): %v", err)
	}
	templatePkgSlot, templateHashSlot, err := zenPkg.Imports[2].PackageImportPayload()
	if err != nil {
		t.Fatalf("PackageImportPayload(template import): %v", err)
	}
	if classPkgSlot != templatePkgSlot {
		t.Errorf("expected both imports to share package slot, got %d and %d", classPkgSlot, templatePkgSlot)
	}
	if classHashSlot == templateHashSlot {
		t.Errorf("expected distinct hash slots for distinct object paths, both got %d", classHashSlot)
	}
}
