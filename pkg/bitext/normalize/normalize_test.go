package normalize

import (
	"testing"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

func TestForDedup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t \n ", ""},
		{"case and trailing period", "Hello.", "hello"},
		{"collapse whitespace", "  a   b\t\tc  ", "a b c"},
		{"digits canonical", "Room 42, floor 7", "room 00 floor 0"},
		{"arabic-indic digits", "عدد ٣٤", "عدد 00"},
		{"full-width one is a digit", "１", "0"},
		{"diacritics", "Café Ñandú", "cafe nandu"},
		{"smart quotes", "“Quoted” «text»", "quoted text"},
		{"em dash spacing", "yes—no", "yes no"},
		{"ellipsis", "wait…", "wait"},
		{"full-width punctuation", "你好，世界。", "你好世界"},
		{"control characters", "a\x01b\x7fc\u0085d", "abc d"},
		{"tab inside line", "left\tright", "left right"},
		{"symbols kept", "5 € ~", "0 € ~"},
		{"jamo joined after punctuation", "\u1100.\u1161", "\uac00"},
		{"jamo joined after control", "\u1100\x01\u1161", "\uac00"},
		{"greek question mark", "τι\u037e", "τι"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForDedup(tt.in); got != tt.want {
				t.Errorf("ForDedup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestForDedupIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello.",
		"  Привет,   мир!  ",
		"Ελληνικά; ερώτηση;",
		"ŞİMDİ İSTANBUL'DA",
		"Ǆungla — x",
		"a . b , c",
		"१२३ हिन्दी वाक्य।",
		"ｆｕｌｌｗｉｄｔｈ　ｔｅｘｔ！",
		"한국어 문장입니다.",
		"tab\there\x00 and null",
		"Å Ω K",
		"á̂ ẹ",
		"“nested ‘quotes’”",
		"1,000.50 $",
		"\u1100.\u1161",
		"\u1100\x01\u1161",
		"\u1100\u1161.\u11a8",
		"e.\u0301x",
		"\u0387\u037e",
	}

	for _, in := range inputs {
		once := ForDedup(in)
		twice := ForDedup(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func FuzzForDedup(f *testing.F) {
	for _, seed := range []string{"Hello.", "\u1100.\u1161", "Café, 42!", "ﬁ\x01\u0301", "한국어 문장입니다."} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		if !utf8.ValidString(in) {
			t.Skip()
		}
		once := ForDedup(in)
		if twice := ForDedup(once); once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
		if !norm.NFC.IsNormalString(once) {
			t.Errorf("ForDedup(%q) = %q is not NFC", in, once)
		}
	})
}

func TestForDedupMergesNearDuplicates(t *testing.T) {
	pairs := [][2]string{
		{"Hello.", "hello"},
		{"I have 3 cats", "I have 7 cats"},
		{"résumé", "resume"},
		{"“Hi”, she said…", "hi she said"},
	}
	for _, p := range pairs {
		if ForDedup(p[0]) != ForDedup(p[1]) {
			t.Errorf("expected %q and %q to normalize identically: %q vs %q",
				p[0], p[1], ForDedup(p[0]), ForDedup(p[1]))
		}
	}
}

func TestForLID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello World", "hello world"},
		{"url removed", "see https://example.com/a?b=1 now", "see now"},
		{"www removed", "visit www.example.org today", "visit today"},
		{"ip removed", "server 192.168.0.1 down", "server down"},
		{"digits removed", "page 12 of 30", "page of"},
		{"markup stripped", "<b>bold</b> &amp; <i>italic</i>", "bold italic"},
		{"self closing url tag", "link <http://x.org/> here", "link here"},
		{"diacritics kept", "Čaj je vruć.", "čaj je vruć"},
		{"punctuation removed", "Wait, what?!", "wait what"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForLID(tt.in); got != tt.want {
				t.Errorf("ForLID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
