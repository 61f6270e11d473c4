// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"bytes"
	"testing"
)

func sampleZenPackage(version ContainerVersion) *ZenPackage {
	pkg := &ZenPackage{
		Summary: ZenSummary{
			Version:      version,
			Name:         MappedName{Index: 0},
			PackageFlags: 0x1,
		},
		Names: []Name{NewName("/Game/Foo/Bar"), NewName("StaticMesh"), NewName("MyMesh")},
		Imports: []ObjectIndex{
			NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine.StaticMesh")),
		},
		Exports: []ZenExport{
			{
				ObjectName:       MappedName{Index: 1},
				ClassIndex:       NewPackageImportObjectIndex(0, 0),
				OuterIndex:       NullObjectIndex(),
				SuperIndex:       NullObjectIndex(),
				TemplateIndex:    NullObjectIndex(),
				ObjectFlags:      ObjectFlagPublic,
				PublicExportHash: PublicExportHash("MyMesh"),
				CookedSerialSize: uint64(len("first export payload")),
			},
			{
				ObjectName:       MappedName{Index: 1, Number: 1},
				ClassIndex:       NewPackageImportObjectIndex(0, 0),
				OuterIndex:       NewExportObjectIndex(0),
				SuperIndex:       NullObjectIndex(),
				TemplateIndex:    NullObjectIndex(),
				CookedSerialSize: uint64(len("second export")),
			},
		},
		ExportBundleEntries: []ExportBundleEntry{
			{LocalExportIndex: 0, Command: BundleCreate},
			{LocalExportIndex: 1, Command: BundleCreate},
			{LocalExportIndex: 0, Command: BundleSerialize},
			{LocalExportIndex: 1, Command: BundleSerialize},
		},
		ImportedPackages:       []uint64{PackageID("/Script/Engine")},
		ImportedPackageNames:   []Name{NewName("/Script/Engine")},
		ImportedPackageNumbers: []int32{0},
		ImportedPublicExportHashes: []uint64{
			PublicExportHash("MyMesh"),
		},
		Payload: []byte("first export payloadsecond export"),
	}
	if version >= ContainerVersionNoExportInfo {
		pkg.DependencyBundleHeaders = []DependencyBundleHeader{
			{CreateBeforeCreate: 1},
			{FirstEntryIndex: 1},
		}
		pkg.DependencyBundleEntries = []int32{encodeLegacyExportIndex(0)}
	}
	return pkg
}

func TestZenRoundTripAllVersions(t *testing.T) {
	versions := []ContainerVersion{
		ContainerVersionInitial,
		ContainerVersionExportDependencies,
		ContainerVersionNoExportInfo,
	}
	names := map[ContainerVersion]string{
		ContainerVersionInitial:            "Initial",
		ContainerVersionExportDependencies: "ExportDependencies",
		ContainerVersionNoExportInfo:       "NoExportInfo",
	}
	for _, version := range versions {
		version := version
		t.Run(names[version], func(t *testing.T) {
			pkg := sampleZenPackage(version)

			buf, err := WriteZen(pkg)
			if err != nil {
				t.Fatalf("WriteZen: %v", err)
			}

			got, err := ReadZen(version, buf)
			if err != nil {
				t.Fatalf("ReadZen: %v", err)
			}

			if len(got.Exports) != len(pkg.Exports) {
				t.Fatalf("got %d exports, want %d", len(got.Exports), len(pkg.Exports))
			}
			for i := range pkg.Exports {
				if got.Exports[i].CookedSerialSize != pkg.Exports[i].CookedSerialSize {
					t.Errorf("export %d CookedSerialSize = %d, want %d", i, got.Exports[i].CookedSerialSize, pkg.Exports[i].CookedSerialSize)
				}
				if got.Exports[i].ObjectFlags != pkg.Exports[i].ObjectFlags {
					t.Errorf("export %d ObjectFlags = %v, want %v", i, got.Exports[i].ObjectFlags, pkg.Exports[i].ObjectFlags)
				}
			}
			if !bytes.Equal(got.Payload, pkg.Payload) {
				t.Errorf("payload = %q, want %q", got.Payload, pkg.Payload)
			}
			if len(got.ExportBundleEntries) != len(pkg.ExportBundleEntries) {
				t.Fatalf("got %d bundle entries, want %d", len(got.ExportBundleEntries), len(pkg.ExportBundleEntries))
			}
			if len(got.Imports) != len(pkg.Imports) {
				t.Fatalf("got %d imports, want %d", len(got.Imports), len(pkg.Imports))
			}
			if got.Imports[0] != pkg.Imports[0] {
				t.Errorf("import 0 = %#x, want %#x", got.Imports[0], pkg.Imports[0])
			}

			if version >= ContainerVersionNoExportInfo {
				if len(got.ImportedPackages) != len(pkg.ImportedPackages) {
					t.Fatalf("got %d imported packages, want %d", len(got.ImportedPackages), len(pkg.ImportedPackages))
				}
				if got.ImportedPackages[0] != pkg.ImportedPackages[0] {
					t.Errorf("imported package 0 = %#x, want %#x", got.ImportedPackages[0], pkg.ImportedPackages[0])
				}
				if len(got.DependencyBundleHeaders) != len(pkg.DependencyBundleHeaders) {
					t.Fatalf("got %d dependency bundle headers, want %d", len(got.DependencyBundleHeaders), len(pkg.DependencyBundleHeaders))
				}
			}
			if version > ContainerVersionInitial {
				if len(got.ImportedPublicExportHashes) != len(pkg.ImportedPublicExportHashes) {
					t.Fatalf("got %d imported public export hashes, want %d", len(got.ImportedPublicExportHashes), len(pkg.ImportedPublicExportHashes))
				}
			}
		})
	}
}

func TestExportBundleEveryExportCreatedAndSerializedOnce(t *testing.T) {
	pkg := sampleZenPackage(ContainerVersionNoExportInfo)
	created := make(map[uint32]int)
	serialized := make(map[uint32]int)
	for _, e := range pkg.ExportBundleEntries {
		switch e.Command {
		case BundleCreate:
			created[e.LocalExportIndex]++
		case BundleSerialize:
			serialized[e.LocalExportIndex]++
		}
	}
	for i := range pkg.Exports {
		idx := uint32(i)
		if created[idx] != 1 {
			t.Errorf("export %d created %d times, want exactly 1", i, created[idx])
		}
		if serialized[idx] != 1 {
			t.Errorf("export %d serialized %d times, want exactly 1", i, serialized[idx])
		}
	}
}

func TestDependencyBundleHeadersAreContiguous(t *testing.T) {
	pkg := sampleZenPackage(ContainerVersionNoExportInfo)
	want := uint32(0)
	for i, h := range pkg.DependencyBundleHeaders {
		if h.FirstEntryIndex != want {
			t.Errorf("header %d FirstEntryIndex = %d, want %d", i, h.FirstEntryIndex, want)
		}
		want += h.entryCount()
	}
	if want != uint32(len(pkg.DependencyBundleEntries)) {
		t.Errorf("total dependency entry count %d does not match headers' sum %d", len(pkg.DependencyBundleEntries), want)
	}
}
