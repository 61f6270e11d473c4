// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"sort"
	"sync"

	"github.com/zenconv/zenpkg/container"
)

// PackageContext owns a sorted list of container handles and the lazily
// populated Zen-header cache layered over them, resolving PackageImports
// and bulk-data reads across package boundaries (§4.J).
//
// Cache semantics follow §5: one slot per package id, won by first
// writer; readers holding a snapshot never block later insertions.
type PackageContext struct {
	mu         sync.Mutex
	containers []containerEntry
	cache      sync.Map // package id -> *ZenPackage
	version    ContainerVersion
}

type containerEntry struct {
	c        container.Container
	priority int
	order    int
}

// NewPackageContext returns an empty context that will parse loaded
// packages as the given container version.
func NewPackageContext(version ContainerVersion) *PackageContext {
	return &PackageContext{version: version}
}

// Load appends c to the context's container list. If overridePriority is
// set, packages found in c win over earlier containers on a duplicate
// package id; otherwise the first container to resolve an id keeps it.
func (pc *PackageContext) Load(c container.Container, overridePriority bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	priority := 0
	if overridePriority {
		priority = 1
	}
	pc.containers = append(pc.containers, containerEntry{c: c, priority: priority, order: len(pc.containers)})

	sort.SliceStable(pc.containers, func(i, j int) bool {
		if pc.containers[i].priority != pc.containers[j].priority {
			return pc.containers[i].priority > pc.containers[j].priority
		}
		if pc.containers[i].priority > 0 {
			return pc.containers[i].order > pc.containers[j].order
		}
		return pc.containers[i].order < pc.containers[j].order
	})
}

// Get returns the parsed Zen header for packageID, loading and caching it
// on first access. Subsequent calls return the cached value without
// re-reading any container.
func (pc *PackageContext) Get(packageID uint64) (*ZenPackage, error) {
	if cached, ok := pc.cache.Load(packageID); ok {
		return cached.(*ZenPackage), nil
	}

	pc.mu.Lock()
	containers := append([]containerEntry(nil), pc.containers...)
	pc.mu.Unlock()

	for _, entry := range containers {
		for _, id := range entry.c.ChunkIDs() {
			if id.Kind != container.ChunkExportBundleData || id.ID != packageID {
				continue
			}
			data, ok, err := entry.c.ChunkByID(id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			pkg, err := ReadZen(pc.version, data)
			if err != nil {
				return nil, err
			}
			actual, _ := pc.cache.LoadOrStore(packageID, pkg)
			return actual.(*ZenPackage), nil
		}
	}

	return nil, newError(KindUnresolvedReference, ErrTableOutOfBounds, "package id %x not found in any loaded container", packageID)
}

// ResolveImport resolves a PackageImport object index from within source
// against this context, returning the target package's header and the
// matching export entry (§4.J).
func (pc *PackageContext) ResolveImport(source *ZenPackage, importIndex int) (*ZenPackage, *ZenExport, error) {
	if importIndex < 0 || importIndex >= len(source.Imports) {
		return nil, nil, newError(KindMalformedInput, ErrTableOutOfBounds, "import index %d out of bounds", importIndex)
	}
	idx := source.Imports[importIndex]
	pkgSlot, hashSlot, err := idx.PackageImportPayload()
	if err != nil {
		return nil, nil, err
	}
	if int(pkgSlot) >= len(source.ImportedPackages) || int(hashSlot) >= len(source.ImportedPublicExportHashes) {
		return nil, nil, newError(KindMalformedInput, ErrTableOutOfBounds, "package/hash slot out of bounds")
	}

	packageID := source.ImportedPackages[pkgSlot]
	targetHash := source.ImportedPublicExportHashes[hashSlot]

	target, err := pc.Get(packageID)
	if err != nil {
		return nil, nil, err
	}

	for i := range target.Exports {
		if target.Exports[i].PublicExportHash == targetHash {
			return target, &target.Exports[i], nil
		}
	}

	return nil, nil, newError(KindUnresolvedReference, ErrTableOutOfBounds,
		"package %x has no export with public hash %x", packageID, targetHash)
}

// ReadBulk concatenates every BulkData chunk sharing packageID, ordered by
// the chunk's secondary index, across all loaded containers.
func (pc *PackageContext) ReadBulk(packageID uint64) ([]byte, error) {
	pc.mu.Lock()
	containers := append([]containerEntry(nil), pc.containers...)
	pc.mu.Unlock()

	var matches []container.ChunkID
	owner := make(map[container.ChunkID]containerEntry)
	for _, entry := range containers {
		for _, id := range entry.c.ChunkIDs() {
			if id.Kind == container.ChunkBulkData && id.ID == packageID {
				matches = append(matches, id)
				owner[id] = entry
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Index < matches[j].Index })

	var out []byte
	for _, id := range matches {
		data, ok, err := owner[id].c.ChunkByID(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, data...)
	}
	return out, nil
}
