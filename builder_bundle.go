// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"strings"

	"github.com/dominikbraun/graph"
)

// buildExportBundles implements §4.G step 5: exactly two bundle entries
// per export (Create then Serialize), ordered by dependency, with the
// hard-coded AnimBlueprint schedule taking precedence when it applies.
func (bc *buildContext) buildExportBundles(exports []ZenExport) []ExportBundleEntry {
	if schedule, ok := animBlueprintSchedule(bc.legacy); ok {
		return schedule
	}

	order := bc.topoSortExports()
	bundles := make([]ExportBundleEntry, 0, 2*len(order))
	for _, idx := range order {
		bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(idx), Command: BundleCreate})
	}
	for _, idx := range order {
		bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(idx), Command: BundleSerialize})
	}
	return bundles
}

// topoSortExports orders legacy export indices by the union of their four
// preload-dependency lists plus the outer-of-this-export relationship,
// via a dependency graph built with github.com/dominikbraun/graph.
// Real cooked content can carry dependency cycles the engine tolerates at
// load time, so ties and cycles both break deterministically by ascending
// source order rather than surfacing an error.
func (bc *buildContext) topoSortExports() []int {
	n := len(bc.legacy.Exports)
	g := graph.New(graph.IntHash, graph.Directed())
	for i := 0; i < n; i++ {
		_ = g.AddVertex(i)
	}

	addEdge := func(from, to int) {
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return
		}
		_ = g.AddEdge(from, to)
	}

	for i, e := range bc.legacy.Exports {
		for _, dep := range e.Preload.CreateBeforeCreate {
			addEdge(decodeLegacyExportOnly(dep), i)
		}
		for _, dep := range e.Preload.SerializeBeforeCreate {
			addEdge(decodeLegacyExportOnly(dep), i)
		}
		for _, dep := range e.Preload.CreateBeforeSerialize {
			addEdge(decodeLegacyExportOnly(dep), i)
		}
		for _, dep := range e.Preload.SerializeBeforeSerialize {
			addEdge(decodeLegacyExportOnly(dep), i)
		}
		ref := decodeLegacyIndex(e.OuterIndex)
		if !ref.IsNull && !ref.IsImport {
			addEdge(ref.Index, i)
		}
	}

	return deterministicTopoOrder(g, n)
}

// decodeLegacyExportOnly maps a legacy package index to an export slot,
// or -1 if it names an import or null (dependency edges only run between
// exports of the same package).
func decodeLegacyExportOnly(v int32) int {
	ref := decodeLegacyIndex(v)
	if ref.IsNull || ref.IsImport {
		return -1
	}
	return ref.Index
}

// deterministicTopoOrder runs Kahn's algorithm over g by hand rather than
// graph.TopologicalSort, since that call fails outright on a cycle and
// this builder must always produce a total order. Among any set of
// currently-ready vertices (including cycle-broken ones) the
// lowest-numbered export is picked next, keeping output deterministic.
func deterministicTopoOrder(g graph.Graph[int, int], n int) []int {
	predecessors, _ := g.PredecessorMap()
	remaining := make(map[int]int, n)
	for v, preds := range predecessors {
		remaining[v] = len(preds)
	}

	placed := make([]bool, n)
	order := make([]int, 0, n)

	for len(order) < n {
		next := -1
		for v := 0; v < n; v++ {
			if placed[v] {
				continue
			}
			if remaining[v] == 0 {
				next = v
				break
			}
		}
		if next == -1 {
			// Every remaining vertex still has an unmet dependency: a
			// cycle. Break it by taking the lowest-numbered remaining
			// vertex.
			for v := 0; v < n; v++ {
				if !placed[v] {
					next = v
					break
				}
			}
		}

		placed[next] = true
		order = append(order, next)

		successors, _ := g.AdjacencyMap()
		for to := range successors[next] {
			remaining[to]--
		}
	}

	return order
}

// animBlueprintSchedule implements the byte-for-byte hard-coded schedule
// of §6: for a 6-export package where export C is the CDO (object name
// starting with "Default__"), the load order is fixed regardless of the
// generic dependency graph. Any other shape falls back to the topological
// schedule.
func animBlueprintSchedule(legacy *LegacyModel) ([]ExportBundleEntry, bool) {
	exports := legacy.Exports
	if len(exports) != 6 {
		return nil, false
	}

	cdo := -1
	for i := range exports {
		n, err := legacy.nameAt(exports[i].ObjectName.Index)
		if err != nil {
			continue
		}
		if strings.HasPrefix(n.Value, "Default__") {
			cdo = i
			break
		}
	}
	if cdo == -1 {
		return nil, false
	}

	var createOrder []int
	for i := 0; i < 6; i++ {
		if i != cdo {
			createOrder = append(createOrder, i)
		}
	}

	bundles := make([]ExportBundleEntry, 0, 12)
	for _, i := range createOrder {
		bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(i), Command: BundleCreate})
	}
	for _, i := range []int{1, 2, 4, 0} {
		bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(i), Command: BundleSerialize})
	}
	bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(cdo), Command: BundleCreate})
	bundles = append(bundles, ExportBundleEntry{LocalExportIndex: 5, Command: BundleSerialize})
	bundles = append(bundles, ExportBundleEntry{LocalExportIndex: uint32(cdo), Command: BundleSerialize})

	return bundles, true
}

// buildDependencyBundles implements §4.G step 7: a header per export with
// a running first_entry_index, and entries packed in the fixed
// Create/Serialize-before-Create/Serialize order. An export with no
// preload dependencies gets a minimal fallback: a single
// CreateBeforeCreate entry pointing at its outer, if the outer is another
// export.
func (bc *buildContext) buildDependencyBundles() ([]DependencyBundleHeader, []int32) {
	headers := make([]DependencyBundleHeader, len(bc.legacy.Exports))
	var entries []int32
	cursor := uint32(0)

	for i, e := range bc.legacy.Exports {
		h := DependencyBundleHeader{FirstEntryIndex: cursor}

		if e.Preload.isEmpty() {
			ref := decodeLegacyIndex(e.OuterIndex)
			if !ref.IsNull && !ref.IsImport {
				entries = append(entries, encodeLegacyExportIndex(ref.Index))
				h.CreateBeforeCreate = 1
				cursor++
			}
			headers[i] = h
			continue
		}

		h.CreateBeforeCreate = uint32(len(e.Preload.CreateBeforeCreate))
		h.SerializeBeforeCreate = uint32(len(e.Preload.SerializeBeforeCreate))
		h.CreateBeforeSerialize = uint32(len(e.Preload.CreateBeforeSerialize))
		h.SerializeBeforeSerialize = uint32(len(e.Preload.SerializeBeforeSerialize))

		entries = append(entries, e.Preload.CreateBeforeCreate...)
		entries = append(entries, e.Preload.SerializeBeforeCreate...)
		entries = append(entries, e.Preload.CreateBeforeSerialize...)
		entries = append(entries, e.Preload.SerializeBeforeSerialize...)
		cursor += h.entryCount()

		headers[i] = h
	}

	return headers, entries
}
