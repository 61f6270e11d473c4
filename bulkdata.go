// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// BulkDataSizeOverhead is a heuristic padding constant associated with the
// last export's serial size when a bulk side-file exists. Its origin predates
// this codec and is not otherwise documented (§9 open question); preserved
// verbatim rather than re-derived. The constant is exported only: no code
// in this module adds it to any export's size.
const BulkDataSizeOverhead = 432

// validateBulkEntries checks declared bulk-data entry ranges against the
// actual side-file length. Whether a mismatch is fatal or tolerated is a
// policy decision left to the caller via Config.StrictBulkValidation
// (§9): strict mode fails closed, lenient mode clamps to a single entry
// covering the whole file.
func validateBulkEntries(entries []BulkDataEntry, sideFileLen int64, strict bool) ([]BulkDataEntry, error) {
	for i, e := range entries {
		if e.Offset < 0 || e.Size < 0 || e.Offset+e.Size > sideFileLen {
			if strict {
				return nil, newError(KindMalformedInput, ErrTableOutOfBounds,
					"bulk entry %d span [%d,%d) exceeds side-file length %d", i, e.Offset, e.Offset+e.Size, sideFileLen)
			}
			return []BulkDataEntry{{Offset: 0, Size: sideFileLen}}, nil
		}
	}
	return entries, nil
}
