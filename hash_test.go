// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zenpkg

import "testing"

func TestCity64IsDeterministic(t *testing.T) {
	got := City64([]byte("/game/a/b"))
	again := City64([]byte("/game/a/b"))
	if got != again {
		t.Fatalf("City64 is not deterministic: %#x vs %#x", got, again)
	}
	if got == 0 {
		t.Fatalf("City64 of a non-empty input should not be zero")
	}
}

func TestAsciiFoldLowerOnlyAffectsASCII(t *testing.T) {
	got := asciiFoldLower("Café_ABC")
	want := "café_abc"
	if got != want {
		t.Errorf("asciiFoldLower(%q) = %q, want %q", "Café_ABC", got, want)
	}
}

func TestPackageIDCaseInsensitive(t *testing.T) {
	a := PackageID("/Game/Foo/Bar")
	b := PackageID("/game/foo/bar")
	if a != b {
		t.Errorf("PackageID should be case-insensitive: %#x != %#x", a, b)
	}
}

func TestPublicExportHashUsesWideEncoding(t *testing.T) {
	h1 := PublicExportHash("Object")
	h2 := City64([]byte("Object"))
	if h1 == h2 {
		t.Errorf("PublicExportHash should hash the UTF-16LE form, not raw UTF-8 bytes")
	}
}

func TestScriptImportHashNormalizesSeparators(t *testing.T) {
	a := ScriptImportHash("/Script/Engine.StaticMesh")
	b := ScriptImportHash("/Script/Engine:StaticMesh")
	if a != b {
		t.Errorf("normalize should treat ':' and '.' identically: %#x != %#x", a, b)
	}
}

func TestNameHashASCIIvsWide(t *testing.T) {
	asciiHash, err := NameHash("Engine", false)
	if err != nil {
		t.Fatalf("NameHash: %v", err)
	}
	wideHash, err := NameHash("Engine", true)
	if err != nil {
		t.Fatalf("NameHash: %v", err)
	}
	if asciiHash == wideHash {
		t.Errorf("ASCII and wide hashing of the same value should differ (different byte encodings)")
	}
}

func TestUTF16LERoundTrip(t *testing.T) {
	for _, s := range []string{"hello", "日本語", ""} {
		b, err := encodeUTF16LE(s)
		if err != nil {
			t.Fatalf("encodeUTF16LE(%q): %v", s, err)
		}
		got, err := decodeUTF16LE(b)
		if err != nil {
			t.Fatalf("decodeUTF16LE: %v", err)
		}
		if got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}
