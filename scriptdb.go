// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "strings"

// scriptObjectEntrySize is the fixed on-disk size of one script-object
// database entry: a mapped name plus three object indices (global, outer,
// cdo-class) (§4.I).
const scriptObjectEntrySize = 8 + 8 + 8 + 8

// ScriptObjectEntry is one record of the engine-provided script-object
// database: a class, function, or package known at compile time rather
// than cooked into any specific asset.
type ScriptObjectEntry struct {
	ObjectName   MappedName
	GlobalIndex  ObjectIndex
	OuterIndex   ObjectIndex
	CDOClassIndex ObjectIndex
}

// ScriptObjectDatabase is the immutable, read-only index over engine
// script objects the builder and rebuilder consult to resolve
// `/Script/...` references (§4.I, §5 shared-resource policy).
type ScriptObjectDatabase struct {
	names   []Name
	entries []ScriptObjectEntry

	byGlobalIndex map[uint64]int
	byFullPath    map[string]uint64
	bySimpleName  map[string][]uint64
	classIndices  map[uint64]bool
}

// LoadScriptObjectDatabase parses a script-object database blob: a name
// batch followed by fixed-size entries, then builds the lookup indices.
// Grounded on saferwall-pe's table-then-directory loading shape
// (ntheader.go's data-directory walk) generalized from a single table to
// a name batch plus record array.
func LoadScriptObjectDatabase(buf []byte) (*ScriptObjectDatabase, error) {
	r := newByteReader(buf)

	names, err := readNameBatch(r)
	if err != nil {
		return nil, err
	}

	var entries []ScriptObjectEntry
	for r.remaining() >= scriptObjectEntrySize {
		e, err := readScriptObjectEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	db := &ScriptObjectDatabase{
		names:         names,
		entries:       entries,
		byGlobalIndex: make(map[uint64]int, len(entries)),
		byFullPath:    make(map[string]uint64, len(entries)),
		bySimpleName:  make(map[string][]uint64, len(entries)),
		classIndices:  make(map[uint64]bool),
	}

	for i, e := range entries {
		db.byGlobalIndex[uint64(e.GlobalIndex)] = i
		if e.CDOClassIndex.Classify() != ObjectIndexNull {
			db.classIndices[uint64(e.CDOClassIndex)] = true
		}
	}

	for i, e := range entries {
		path, err := db.fullPath(e)
		if err != nil {
			continue
		}
		db.byFullPath[path] = uint64(e.GlobalIndex)
		simple := path
		if slash := strings.LastIndex(path, "/"); slash >= 0 {
			simple = path[slash+1:]
		}
		db.bySimpleName[simple] = append(db.bySimpleName[simple], uint64(e.GlobalIndex))
		_ = i
	}

	return db, nil
}

func readScriptObjectEntry(r *byteReader) (ScriptObjectEntry, error) {
	var e ScriptObjectEntry
	var err error
	if e.ObjectName, err = readMappedName(r); err != nil {
		return e, err
	}
	g, err := r.u64()
	if err != nil {
		return e, err
	}
	e.GlobalIndex = ObjectIndex(g)
	o, err := r.u64()
	if err != nil {
		return e, err
	}
	e.OuterIndex = ObjectIndex(o)
	c, err := r.u64()
	if err != nil {
		return e, err
	}
	e.CDOClassIndex = ObjectIndex(c)
	return e, nil
}

func (db *ScriptObjectDatabase) nameValue(m MappedName) (string, error) {
	if int(m.Index) < 0 || int(m.Index) >= len(db.names) {
		return "", newError(KindMalformedInput, ErrTableOutOfBounds, "script-object name index %d out of bounds", m.Index)
	}
	return db.names[m.Index].Value + renderSuffix(m.Number), nil
}

// fullPath walks the outer chain of a script-object entry to build its
// "/Script/Module/Object/Sub" style path, joining every level with "/".
func (db *ScriptObjectDatabase) fullPath(e ScriptObjectEntry) (string, error) {
	name, err := db.nameValue(e.ObjectName)
	if err != nil {
		return "", err
	}
	if e.OuterIndex.Classify() == ObjectIndexNull {
		return name, nil
	}
	outerIdx, ok := db.byGlobalIndex[uint64(e.OuterIndex)]
	if !ok {
		return name, nil
	}
	outerPath, err := db.fullPath(db.entries[outerIdx])
	if err != nil {
		return name, nil
	}
	return outerPath + "/" + name, nil
}

// ByGlobalIndex returns the entry addressed by a ScriptImport or Export
// CDO-class global object index.
func (db *ScriptObjectDatabase) ByGlobalIndex(index ObjectIndex) (ScriptObjectEntry, bool) {
	i, ok := db.byGlobalIndex[uint64(index)]
	if !ok {
		return ScriptObjectEntry{}, false
	}
	return db.entries[i], true
}

// ByFullPath resolves an exact "/Script/..." path to its global object
// index.
func (db *ScriptObjectDatabase) ByFullPath(path string) (ObjectIndex, bool) {
	idx, ok := db.byFullPath[path]
	return ObjectIndex(idx), ok
}

// BySimpleName falls back to matching on the trailing path component when
// an exact path lookup misses. Ambiguous matches (more than one candidate)
// return the first recorded one rather than failing, per §4.G step 3's
// "fall back to simple-name lookup" without a further tie-break rule.
func (db *ScriptObjectDatabase) BySimpleName(name string) (ObjectIndex, bool) {
	candidates, ok := db.bySimpleName[name]
	if !ok || len(candidates) == 0 {
		return 0, false
	}
	return ObjectIndex(candidates[0]), true
}

// IsClass reports whether index appears as some entry's CDO-class
// reference, i.e. it names a UClass rather than a plain object.
func (db *ScriptObjectDatabase) IsClass(index ObjectIndex) bool {
	return db.classIndices[uint64(index)]
}
