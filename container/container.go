// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package container abstracts the on-disk container chunks a package
// context reads from, minimally: enumerate chunk ids, fetch a chunk's
// bytes, and (optionally) report its AES key if the container is
// encrypted. Payload decompression/decryption primitives themselves are
// out of scope; a Container just hands back bytes.
package container

// ChunkKind classifies the four chunk types a package context consumes
// (spec §6 "Container-chunk kinds consumed").
type ChunkKind uint8

const (
	ChunkExportBundleData ChunkKind = iota
	ChunkBulkData
	ChunkContainerHeader
	ChunkScriptObjects
)

// ChunkID addresses one chunk within a container: a 64-bit package or
// content identifier, its kind, and (for BulkData) a 16-bit secondary
// index distinguishing multiple bulk chunks for the same package.
type ChunkID struct {
	ID    uint64
	Kind  ChunkKind
	Index uint16
}

// Container is a read-only source of chunk bytes, the minimal surface a
// package context needs. A concrete implementation (e.g. a single .ucas
// file, or a directory of loose chunk files) backs this with whatever
// storage it likes.
type Container interface {
	// ChunkIDs returns every chunk this container holds, in container
	// order.
	ChunkIDs() []ChunkID

	// ChunkByID returns the raw bytes of one chunk, or ok=false if this
	// container does not carry it.
	ChunkByID(id ChunkID) (data []byte, ok bool, err error)

	// CompressionKey returns the AES key for this container's encrypted
	// chunks, if any. A nil key means chunks are stored uncompressed or
	// unencrypted from this container's perspective; AES primitives
	// themselves are the caller's concern, not this package's.
	CompressionKey() []byte
}
