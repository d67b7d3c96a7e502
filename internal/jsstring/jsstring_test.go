package jsstring

import "testing"

func TestLatin1FastPath(t *testing.T) {
	s := New("hello")
	if s.Length() != 5 || s.CharCodeAt(1) != 'e' {
		t.Fatalf("basic code-unit access broken")
	}
	u := New("héllo☃")
	if u.Length() != 6 {
		t.Fatalf("non-Latin1 length = %d, want 6", u.Length())
	}
	if u.CharCodeAt(5) != 0x2603 {
		t.Fatalf("UTF-16 unit read broken")
	}
}

func TestSurrogatePairCodePoint(t *testing.T) {
	// U+1F600 encodes as the pair D83D DE00.
	s := FromUTF16([]uint16{0xD83D, 0xDE00})
	if s.Length() != 2 {
		t.Fatalf("length counts code units, got %d", s.Length())
	}
	cp, width := s.CodePointAt(0)
	if cp != 0x1F600 || width != 2 {
		t.Fatalf("CodePointAt must pair surrogates: %x %d", cp, width)
	}
	cp, width = s.CodePointAt(1)
	if cp != 0xDE00 || width != 1 {
		t.Fatalf("a bare trailing surrogate reads as itself: %x %d", cp, width)
	}
}

func TestUnpairedSurrogatesPreserved(t *testing.T) {
	lone := FromUTF16([]uint16{0xD800, 'x'})
	if lone.IsWellFormed() {
		t.Fatalf("a lone surrogate is not well-formed")
	}
	if lone.CharCodeAt(0) != 0xD800 {
		t.Fatalf("lone surrogate must be preserved, got %x", lone.CharCodeAt(0))
	}
	if !New("plain").IsWellFormed() {
		t.Fatalf("ordinary text is well-formed")
	}
}

func TestConcatAndSlice(t *testing.T) {
	s := New("abc").Concat(New("def"))
	if s.GoString() != "abcdef" {
		t.Fatalf("concat = %q", s.GoString())
	}
	if s.Slice(2, 4).GoString() != "cd" {
		t.Fatalf("slice = %q", s.Slice(2, 4).GoString())
	}
	// Mixed representations widen to UTF-16.
	mixed := New("ab").Concat(FromUTF16([]uint16{0x2603}))
	if mixed.Length() != 3 || mixed.CharCodeAt(2) != 0x2603 {
		t.Fatalf("mixed-rep concat broken")
	}
}

func TestCompareIsCodeUnitWise(t *testing.T) {
	if New("a").Compare(New("b")) >= 0 || New("b").Compare(New("a")) <= 0 {
		t.Fatalf("basic ordering broken")
	}
	if New("ab").Compare(New("abc")) >= 0 {
		t.Fatalf("prefix sorts first")
	}
	if New("x").Compare(New("x")) != 0 {
		t.Fatalf("equal strings compare 0")
	}
}

func TestEqualAcrossRepresentations(t *testing.T) {
	a := New("abc")
	b := FromUTF16([]uint16{'a', 'b', 'c'})
	if !a.Equal(b) {
		t.Fatalf("equal code units must compare equal regardless of representation")
	}
}
