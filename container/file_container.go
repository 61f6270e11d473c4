// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package container

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// chunkTableEntrySize is the on-disk size of one FileContainer directory
// entry: id (8), kind (1), index (2), offset (8), length (8), padded to
// 32 bytes.
const chunkTableEntrySize = 32

// FileContainer is a minimal, memory-mapped reference Container backed by
// a single file: a directory of (id, kind, index, offset, length) records
// followed by the concatenated chunk bytes they point into. Grounded on
// saferwall-pe's use of github.com/edsrzf/mmap-go to back random-access
// reads over a PE image without copying the whole file into the heap.
type FileContainer struct {
	data mmap.MMap
	file *os.File

	ids     []ChunkID
	offsets map[ChunkID][2]int64 // offset, length
	key     []byte
}

// OpenFileContainer mmaps path read-only and parses its leading chunk
// directory. The directory format is this codec's own minimal convention,
// not an engine on-disk format — real container readers (.ucas/.utoc
// pairs) are out of scope (§1 Non-goals); this exists so PackageContext
// has a concrete, testable Container to drive against.
func OpenFileContainer(path string) (*FileContainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	c := &FileContainer{data: data, file: f, offsets: make(map[ChunkID][2]int64)}
	if len(data) < 4 {
		return nil, fmt.Errorf("container %s too short for a directory count", path)
	}
	count := binary.LittleEndian.Uint32(data[:4])
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+chunkTableEntrySize > len(data) {
			return nil, fmt.Errorf("container %s: directory entry %d out of bounds", path, i)
		}
		id := ChunkID{
			ID:    binary.LittleEndian.Uint64(data[pos:]),
			Kind:  ChunkKind(data[pos+8]),
			Index: binary.LittleEndian.Uint16(data[pos+9:]),
		}
		offset := int64(binary.LittleEndian.Uint64(data[pos+16:]))
		length := int64(binary.LittleEndian.Uint64(data[pos+24:]))
		c.ids = append(c.ids, id)
		c.offsets[id] = [2]int64{offset, length}
		pos += chunkTableEntrySize
	}

	return c, nil
}

// Close unmaps the file and releases its descriptor.
func (c *FileContainer) Close() error {
	if err := c.data.Unmap(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

func (c *FileContainer) ChunkIDs() []ChunkID { return c.ids }

func (c *FileContainer) ChunkByID(id ChunkID) ([]byte, bool, error) {
	span, ok := c.offsets[id]
	if !ok {
		return nil, false, nil
	}
	offset, length := span[0], span[1]
	if offset < 0 || length < 0 || offset+length > int64(len(c.data)) {
		return nil, false, fmt.Errorf("chunk %+v span [%d,%d) outside container of length %d", id, offset, offset+length, len(c.data))
	}
	return c.data[offset : offset+length], true, nil
}

// CompressionKey always returns nil; FileContainer never carries an
// encryption key (Oodle/AES primitives are out of scope, §1 Non-goals).
func (c *FileContainer) CompressionKey() []byte { return nil }
