// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"bytes"
	"testing"
)

func sampleLegacyModel() *LegacyModel {
	return &LegacyModel{
		Summary: LegacySummary{
			PackageFlags:  0x1,
			PackageGUID:   [16]byte{1, 2, 3, 4},
			EngineVersion: 42,
			Unversioned:   true,
		},
		Names: []Name{NewName("/Game/Foo/Bar"), NewName("Engine"), NewName("StaticMesh"), NewName("MyMesh")},
		Imports: []LegacyImport{
			{ClassPackageName: MappedName{Index: 1}, ClassName: MappedName{Index: 2}, ObjectName: MappedName{Index: 1}},
		},
		Exports: []LegacyExport{
			{
				ClassIndex: encodeLegacyImportIndex(0),
				ObjectName: MappedName{Index: 3},
				ObjectFlags: ObjectFlagPublic,
				Payload:    []byte("hello export payload"),
			},
			{
				ClassIndex:    encodeLegacyImportIndex(0),
				OuterIndex:    encodeLegacyExportIndex(0),
				ObjectName:    MappedName{Index: 3, Number: 1},
				Payload:       []byte("second export, a bit longer payload"),
				Preload:       PreloadDependencies{CreateBeforeCreate: []int32{encodeLegacyExportIndex(0)}},
			},
		},
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	model := sampleLegacyModel()

	header, body, err := WriteLegacy(model)
	if err != nil {
		t.Fatalf("WriteLegacy: %v", err)
	}

	got, err := ReadLegacy(header, body)
	if err != nil {
		t.Fatalf("ReadLegacy: %v", err)
	}

	if len(got.Exports) != len(model.Exports) {
		t.Fatalf("got %d exports, want %d", len(got.Exports), len(model.Exports))
	}
	for i := range model.Exports {
		if !bytes.Equal(got.Exports[i].Payload, model.Exports[i].Payload) {
			t.Errorf("export %d payload = %q, want %q", i, got.Exports[i].Payload, model.Exports[i].Payload)
		}
		if got.Exports[i].ObjectFlags != model.Exports[i].ObjectFlags {
			t.Errorf("export %d flags = %v, want %v", i, got.Exports[i].ObjectFlags, model.Exports[i].ObjectFlags)
		}
	}
	if len(got.Names) != len(model.Names) {
		t.Fatalf("got %d names, want %d", len(got.Names), len(model.Names))
	}
	if len(got.Imports) != len(model.Imports) {
		t.Fatalf("got %d imports, want %d", len(got.Imports), len(model.Imports))
	}
}

func TestLegacyWriterAppendsPackageFileTag(t *testing.T) {
	model := sampleLegacyModel()
	_, body, err := WriteLegacy(model)
	if err != nil {
		t.Fatalf("WriteLegacy: %v", err)
	}
	r := newByteReader(body[len(body)-4:])
	tag, err := r.u32()
	if err != nil {
		t.Fatalf("reading tag: %v", err)
	}
	if tag != legacyPackageFileTag {
		t.Errorf("trailing tag = %#x, want %#x", tag, legacyPackageFileTag)
	}
}

func TestLegacyReaderRejectsMissingPackageFileTag(t *testing.T) {
	model := sampleLegacyModel()
	header, body, err := WriteLegacy(model)
	if err != nil {
		t.Fatalf("WriteLegacy: %v", err)
	}
	corrupted := body[:len(body)-4]
	if _, err := ReadLegacy(header, corrupted); err == nil {
		t.Fatal("expected error reading a body stream with the trailing tag stripped off twice")
	}
}

func TestLegacySingleExportPackage(t *testing.T) {
	model := &LegacyModel{
		Names:   []Name{NewName("Solo")},
		Exports: []LegacyExport{{ObjectName: MappedName{Index: 0}, Payload: []byte("x")}},
	}
	header, body, err := WriteLegacy(model)
	if err != nil {
		t.Fatalf("WriteLegacy: %v", err)
	}
	got, err := ReadLegacy(header, body)
	if err != nil {
		t.Fatalf("ReadLegacy: %v", err)
	}
	if len(got.Exports) != 1 || string(got.Exports[0].Payload) != "x" {
		t.Fatalf("unexpected result: %+v", got.Exports)
	}
}
