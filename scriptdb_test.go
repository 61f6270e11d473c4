// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "testing"

// writeScriptObjectEntry is a test-only mirror of readScriptObjectEntry,
// since the production code only ever reads these entries (the database is
// engine-provided, never authored by this codec).
func writeScriptObjectEntry(sink Sink, e ScriptObjectEntry) error {
	if err := writeMappedName(sink, e.ObjectName); err != nil {
		return err
	}
	if err := writeU64(sink, uint64(e.GlobalIndex)); err != nil {
		return err
	}
	if err := writeU64(sink, uint64(e.OuterIndex)); err != nil {
		return err
	}
	return writeU64(sink, uint64(e.CDOClassIndex))
}

func buildScriptObjectDatabase(t *testing.T) *ScriptObjectDatabase {
	t.Helper()
	names := []Name{NewName("Engine"), NewName("StaticMesh"), NewName("GetName")}

	sink := NewBufferSink()
	if err := writeNameBatch(sink, names); err != nil {
		t.Fatalf("writeNameBatch: %v", err)
	}

	moduleIdx := NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine"))
	classIdx := NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine.StaticMesh"))
	methodIdx := NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine.StaticMesh.GetName"))

	entries := []ScriptObjectEntry{
		{ObjectName: MappedName{Index: 0}, GlobalIndex: moduleIdx, OuterIndex: NullObjectIndex()},
		{ObjectName: MappedName{Index: 1}, GlobalIndex: classIdx, OuterIndex: moduleIdx, CDOClassIndex: classIdx},
		{ObjectName: MappedName{Index: 2}, GlobalIndex: methodIdx, OuterIndex: classIdx},
	}
	for _, e := range entries {
		if err := writeScriptObjectEntry(sink, e); err != nil {
			t.Fatalf("writeScriptObjectEntry: %v", err)
		}
	}

	db, err := LoadScriptObjectDatabase(sink.Bytes())
	if err != nil {
		t.Fatalf("LoadScriptObjectDatabase: %v", err)
	}
	return db
}

func TestScriptObjectDatabaseByFullPath(t *testing.T) {
	db := buildScriptObjectDatabase(t)

	idx, ok := db.ByFullPath("Engine/StaticMesh")
	if !ok {
		t.Fatal("expected Engine/StaticMesh to resolve")
	}
	if got, ok := db.ByGlobalIndex(idx); !ok || got.ObjectName.Index != 1 {
		t.Errorf("ByGlobalIndex(%v) = %+v, %v", idx, got, ok)
	}
}

func TestScriptObjectDatabaseBySimpleName(t *testing.T) {
	db := buildScriptObjectDatabase(t)

	idx, ok := db.BySimpleName("GetName")
	if !ok {
		t.Fatal("expected simple-name fallback to resolve GetName")
	}
	entry, ok := db.ByGlobalIndex(idx)
	if !ok || entry.ObjectName.Index != 2 {
		t.Errorf("resolved wrong entry: %+v", entry)
	}
}

func TestScriptObjectDatabaseIsClass(t *testing.T) {
	db := buildScriptObjectDatabase(t)

	classIdx := NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine.StaticMesh"))
	if !db.IsClass(classIdx) {
		t.Error("StaticMesh should be recognized as a class (it's referenced as a CDO class)")
	}

	moduleIdx := NewScriptImportObjectIndex(ScriptImportHash("/Script/Engine"))
	if db.IsClass(moduleIdx) {
		t.Error("the Engine module entry should not be recognized as a class")
	}
}

func TestScriptObjectDatabaseUnknownPathMisses(t *testing.T) {
	db := buildScriptObjectDatabase(t)
	if _, ok := db.ByFullPath("/Script/Nope"); ok {
		t.Error("expected unknown path to miss")
	}
	if _, ok := db.BySimpleName("Nope"); ok {
		t.Error("expected unknown simple name to miss")
	}
}
