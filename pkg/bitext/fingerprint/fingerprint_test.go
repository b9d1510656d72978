package fingerprint

import "testing"

func TestTextDeterministic(t *testing.T) {
	a := Text("hello world")
	b := Text("hello world")
	if a != b {
		t.Errorf("same input hashed differently: %x vs %x", a, b)
	}
	if Text("hello world") == Text("hello world!") {
		t.Error("different inputs should not collide")
	}
}

func TestKnownVector(t *testing.T) {
	// XXH3-64 of the empty input with seed 0.
	const want uint64 = 0x2d06800538d394c2
	if got := Text(""); got != want {
		t.Errorf("Text(\"\") = %#x, want %#x", got, want)
	}
}

func TestPairUsesTabSeparator(t *testing.T) {
	if Pair("hello", "bonjour") != Text("hello\tbonjour") {
		t.Error("pair key should hash src, tab, tgt")
	}
	// Moving the boundary changes the key.
	if Pair("ab", "c") == Pair("a", "bc") {
		t.Error("pair boundary should be part of the key")
	}
	if Pair("hello", "bonjour") == Pair("bonjour", "hello") {
		t.Error("pair key should be ordered")
	}
}
