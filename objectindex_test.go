// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "testing"

func TestObjectIndexClassifyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		idx  ObjectIndex
		kind ObjectIndexKind
	}{
		{"null", NullObjectIndex(), ObjectIndexNull},
		{"all-ones sentinel", ObjectIndex(^uint64(0)), ObjectIndexNull},
		{"export", NewExportObjectIndex(42), ObjectIndexExport},
		{"script import", NewScriptImportObjectIndex(0x1234), ObjectIndexScriptImport},
		{"package import", NewPackageImportObjectIndex(3, 7), ObjectIndexPackageImport},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.idx.Classify(); got != c.kind {
				t.Errorf("Classify() = %v, want %v", got, c.kind)
			}
		})
	}
}

func TestObjectIndexExportPayload(t *testing.T) {
	idx := NewExportObjectIndex(17)
	got, err := idx.ExportIndex()
	if err != nil {
		t.Fatalf("ExportIndex: %v", err)
	}
	if got != 17 {
		t.Errorf("ExportIndex() = %d, want 17", got)
	}

	if _, err := idx.ScriptImportPayload(); !Is(err, KindWrongIndexKind) {
		t.Errorf("ScriptImportPayload on an Export index should fail with KindWrongIndexKind, got %v", err)
	}
}

func TestObjectIndexPackageImportPayload(t *testing.T) {
	idx := NewPackageImportObjectIndex(5, 99)
	pkgSlot, hashSlot, err := idx.PackageImportPayload()
	if err != nil {
		t.Fatalf("PackageImportPayload: %v", err)
	}
	if pkgSlot != 5 || hashSlot != 99 {
		t.Errorf("PackageImportPayload() = (%d, %d), want (5, 99)", pkgSlot, hashSlot)
	}
}

func TestObjectIndexScriptImportHashClearsTagBits(t *testing.T) {
	hash := ScriptImportHash("/Script/Engine.StaticMesh")
	idx := NewScriptImportObjectIndex(hash)
	payload, err := idx.ScriptImportPayload()
	if err != nil {
		t.Fatalf("ScriptImportPayload: %v", err)
	}
	if payload != hash&scriptImportPayloadMask {
		t.Errorf("payload = %#x, want %#x", payload, hash&scriptImportPayloadMask)
	}
}
