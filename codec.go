// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import (
	"io"

	"github.com/zenconv/zenpkg/log"
)

// Config is the codec's ambient configuration: everything that varies
// across deployments but never across a single conversion job (§5).
type Config struct {
	// ContainerVersion gates which Zen summary fields and trailing
	// sections a conversion targets or expects (§4.F, §6).
	ContainerVersion ContainerVersion

	// StrictBulkValidation controls what happens when a bulk-data entry's
	// declared range exceeds its side-file's actual length: strict mode
	// fails the conversion, lenient mode clamps to a single
	// whole-file entry (§9 open question).
	StrictBulkValidation bool

	// Logger receives structured diagnostic output in the teacher's
	// kratos-shaped logging idiom. A nil Logger discards output.
	Logger log.Logger
}

// Codec is the top-level entry point bundling a Config with the
// script-object database and package context a conversion consults.
type Codec struct {
	Config   Config
	ScriptDB *ScriptObjectDatabase
	Context  *PackageContext

	logger *log.Helper
}

// NewCodec returns a Codec ready to convert, logging through cfg.Logger
// (or discarding output if nil).
func NewCodec(cfg Config, scriptDB *ScriptObjectDatabase, pkgCtx *PackageContext) *Codec {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewFilter(log.NewStdLogger(io.Discard), log.FilterLevel(log.LevelError+1))
	}
	return &Codec{Config: cfg, ScriptDB: scriptDB, Context: pkgCtx, logger: log.NewHelper(logger)}
}

// ToZen converts a Legacy (header, body) pair into a Zen package, given
// the cooked content path it was loaded from. Non-fatal issues
// (unresolved script imports, bulk-data range mismatches under lenient
// policy) are aggregated onto the returned Warnings rather than failing
// the conversion.
func (c *Codec) ToZen(header, body []byte, packagePath string) (*ZenPackage, *Warnings, error) {
	legacy, err := ReadLegacy(header, body)
	if err != nil {
		return nil, nil, err
	}

	warnings := NewWarnings()
	if len(legacy.BulkEntries) > 0 {
		entries, err := validateBulkEntries(legacy.BulkEntries, int64(len(legacy.BulkData)), c.Config.StrictBulkValidation)
		if err != nil {
			return nil, nil, err
		}
		if len(entries) != len(legacy.BulkEntries) || entries[0] != legacy.BulkEntries[0] {
			warnings.Warn("bulk-data entries exceed side-file length %d, replaced by one whole-file entry", len(legacy.BulkData))
		}
		legacy.BulkEntries = entries
	}

	c.logger.Infof("building zen package for %s", packagePath)
	pkg, err := BuildZen(legacy, c.Config.ContainerVersion, c.ScriptDB, packagePath, warnings)
	if err != nil {
		return nil, warnings, err
	}
	return pkg, warnings, nil
}

// ToLegacy converts a Zen package byte stream back into a Legacy
// (header, body) pair, resolving cross-package references through the
// codec's PackageContext.
func (c *Codec) ToLegacy(zenBytes []byte) (header, body []byte, warnings *Warnings, err error) {
	zen, err := ReadZen(c.Config.ContainerVersion, zenBytes)
	if err != nil {
		return nil, nil, nil, err
	}

	warnings = NewWarnings()
	c.logger.Infof("rebuilding legacy package")
	legacy, err := RebuildLegacy(zen, c.Context, c.ScriptDB, warnings)
	if err != nil {
		return nil, nil, warnings, err
	}

	header, body, err = WriteLegacy(legacy)
	return header, body, warnings, err
}
