// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

// Fuzz drives a round-trip through the Zen reader/writer: parse data as a
// Zen package, re-serialize it, and confirm re-parsing the result yields
// an equal export count. Grounded on the teacher's single-entry go-fuzz
// harness, generalized from one parse call to a parse/write/parse round
// trip since that is this codec's core correctness property (§8).
func Fuzz(data []byte) int {
	pkg, err := ReadZen(ContainerVersionNoExportInfo, data)
	if err != nil {
		return 0
	}

	out, err := WriteZen(pkg)
	if err != nil {
		return 0
	}

	again, err := ReadZen(ContainerVersionNoExportInfo, out)
	if err != nil {
		panic("zen round-trip produced unparseable output: " + err.Error())
	}
	if len(again.Exports) != len(pkg.Exports) {
		panic("zen round-trip changed export count")
	}

	return 1
}
