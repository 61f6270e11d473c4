// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "testing"

func TestNameTableInternDeduplicates(t *testing.T) {
	tbl := NewNameTable()
	a := tbl.Intern("Foo")
	b := tbl.Intern("Bar")
	c := tbl.Intern("Foo")

	if a != c {
		t.Fatalf("Intern(\"Foo\") returned %d then %d, want equal", a, c)
	}
	if a == b {
		t.Fatalf("distinct names got the same index")
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
}

func TestNameTableCaseSensitive(t *testing.T) {
	tbl := NewNameTable()
	a := tbl.Intern("Foo")
	b := tbl.Intern("foo")
	if a == b {
		t.Fatalf("Intern should be case sensitive: got same index for %q and %q", "Foo", "foo")
	}
}

func TestNameBatchRoundTripASCII(t *testing.T) {
	names := []Name{NewName("Engine"), NewName("/Game/Foo/Bar"), NewName("Default__BP_Thing")}

	sink := NewBufferSink()
	if err := writeNameBatch(sink, names); err != nil {
		t.Fatalf("writeNameBatch: %v", err)
	}

	r := newByteReader(sink.Bytes())
	got, err := readNameBatch(r)
	if err != nil {
		t.Fatalf("readNameBatch: %v", err)
	}

	if len(got) != len(names) {
		t.Fatalf("got %d names, want %d", len(got), len(names))
	}
	for i := range names {
		if got[i] != names[i] {
			t.Errorf("name %d = %+v, want %+v", i, got[i], names[i])
		}
	}
}

func TestNameBatchRoundTripWide(t *testing.T) {
	names := []Name{NewName("Café"), NewName("日本語")}

	sink := NewBufferSink()
	if err := writeNameBatch(sink, names); err != nil {
		t.Fatalf("writeNameBatch: %v", err)
	}

	got, err := readNameBatch(newByteReader(sink.Bytes()))
	if err != nil {
		t.Fatalf("readNameBatch: %v", err)
	}
	for i := range names {
		if !got[i].Wide {
			t.Errorf("name %d (%q) expected wide encoding", i, names[i].Value)
		}
		if got[i].Value != names[i].Value {
			t.Errorf("name %d = %q, want %q", i, got[i].Value, names[i].Value)
		}
	}
}

func TestNameBatchEmpty(t *testing.T) {
	sink := NewBufferSink()
	if err := writeNameBatch(sink, nil); err != nil {
		t.Fatalf("writeNameBatch(nil): %v", err)
	}
	if sink.Len() != 4 {
		t.Fatalf("empty batch wrote %d bytes, want 4 (just the count)", sink.Len())
	}
	got, err := readNameBatch(newByteReader(sink.Bytes()))
	if err != nil {
		t.Fatalf("readNameBatch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d names, want 0", len(got))
	}
}

func TestNameBatchRejectsBadAlgorithmTag(t *testing.T) {
	sink := NewBufferSink()
	writeNameBatch(sink, []Name{NewName("X")})
	buf := sink.Bytes()

	// algorithm tag starts right after the u32 count and u32 total bytes.
	buf[8] ^= 0xFF

	_, err := readNameBatch(newByteReader(buf))
	if err == nil {
		t.Fatal("expected error for corrupted algorithm tag")
	}
	if !Is(err, KindMalformedInput) {
		t.Errorf("got error kind %v, want KindMalformedInput", err)
	}
}

func TestRenderSuffixConventions(t *testing.T) {
	if got := renderSuffix(0); got != "" {
		t.Errorf("renderSuffix(0) = %q, want empty", got)
	}
	if got := renderSuffix(1); got != "_0" {
		t.Errorf("renderSuffix(1) = %q, want _0", got)
	}
	if got := renderSuffixZeroPadded(2); got != "_01" {
		t.Errorf("renderSuffixZeroPadded(2) = %q, want _01", got)
	}
}
