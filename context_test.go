// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"testing"

	"github.com/zenconv/zenpkg/container"
)

// fakeContainer is a minimal in-memory container.Container for exercising
// PackageContext without touching the filesystem.
type fakeContainer struct {
	ids    []container.ChunkID
	chunks map[container.ChunkID][]byte
}

func newFakeContainer() *fakeContainer {
	return &fakeContainer{chunks: make(map[container.ChunkID][]byte)}
}

func (f *fakeContainer) add(id container.ChunkID, data []byte) {
	f.ids = append(f.ids, id)
	f.chunks[id] = data
}

func (f *fakeContainer) ChunkIDs() []container.ChunkID { return f.ids }

func (f *fakeContainer) ChunkByID(id container.ChunkID) ([]byte, bool, error) {
	data, ok := f.chunks[id]
	return data, ok, nil
}

func (f *fakeContainer) CompressionKey() []byte { return nil }

func TestPackageContextGetCachesAfterFirstLoad(t *testing.T) {
	version := ContainerVersionNoExportInfo
	pkg := sampleZenPackage(version)
	buf, err := WriteZen(pkg)
	if err != nil {
		t.Fatalf("WriteZen: %v", err)
	}

	packageID := PackageID("/Game/Foo/Bar")
	c := newFakeContainer()
	c.add(container.ChunkID{ID: packageID, Kind: container.ChunkExportBundleData}, buf)

	pc := NewPackageContext(version)
	pc.Load(c, false)

	got, err := pc.Get(packageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Exports) != len(pkg.Exports) {
		t.Fatalf("got %d exports, want %d", len(got.Exports), len(pkg.Exports))
	}

	again, err := pc.Get(packageID)
	if err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if again != got {
		t.Error("expected the second Get to return the identical cached *ZenPackage")
	}
}

func TestPackageContextGetUnknownPackage(t *testing.T) {
	pc := NewPackageContext(ContainerVersionNoExportInfo)
	pc.Load(newFakeContainer(), false)

	if _, err := pc.Get(0xDEADBEEF); err == nil {
		t.Fatal("expected an error resolving a package id no container carries")
	}
}

func TestPackageContextReadBulkOrdersBySecondaryIndex(t *testing.T) {
	packageID := uint64(0x1234)
	c := newFakeContainer()
	c.add(container.ChunkID{ID: packageID, Kind: container.ChunkBulkData, Index: 1}, []byte("second"))
	c.add(container.ChunkID{ID: packageID, Kind: container.ChunkBulkData, Index: 0}, []byte("first-"))

	pc := NewPackageContext(ContainerVersionNoExportInfo)
	pc.Load(c, false)

	got, err := pc.ReadBulk(packageID)
	if err != nil {
		t.Fatalf("ReadBulk: %v", err)
	}
	if string(got) != "first-second" {
		t.Errorf("ReadBulk = %q, want %q", got, "first-second")
	}
}

func TestPackageContextResolveImport(t *testing.T) {
	version := ContainerVersionNoExportInfo

	targetPkg := sampleZenPackage(version)
	targetBuf, err := WriteZen(targetPkg)
	if err != nil {
		t.Fatalf("WriteZen(target): %v", err)
	}
	targetID := targetPkg.ImportedPackages[0]

	sourcePkg := sampleZenPackage(version)
	hashSlot := uint32(0)
	sourcePkg.Imports = []ObjectIndex{NewPackageImportObjectIndex(0, hashSlot)}
	sourceBuf, err := WriteZen(sourcePkg)
	if err != nil {
		t.Fatalf("WriteZen(source): %v", err)
	}
	source, err := ReadZen(version, sourceBuf)
	if err != nil {
		t.Fatalf("ReadZen(source): %v", err)
	}

	c := newFakeContainer()
	c.add(container.ChunkID{ID: targetID, Kind: container.ChunkExportBundleData}, targetBuf)
	pc := NewPackageContext(version)
	pc.Load(c, false)

	target, export, err := pc.ResolveImport(source, 0)
	if err != nil {
		t.Fatalf("ResolveImport: %v", err)
	}
	if export.PublicExportHash != PublicExportHash("MyMesh") {
		t.Errorf("resolved wrong export: %+v", export)
	}
	if len(target.Exports) != len(targetPkg.Exports) {
		t.Errorf("resolved package has %d exports, want %d", len(target.Exports), len(targetPkg.Exports))
	}
}
