package answer

import (
	"testing"
	"unicode"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Eiffel Tower", "eiffel tower"},
		{"  trimmed\t\n", "trimmed"},
		{"ALREADY lower", "already lower"},
		{"", ""},
		{"   ", ""},
		{"ΣΟΦΙΑ", "σοφια"},
		{"Caf\u00e9", "caf\u00e9"},
		{"Cafe\u0301", "cafe\u0301"},
		{"Hello, World!", "hello, world!"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  Mixed CASE  ",
		"ÀÉÎÕÜ",
		"İstanbul",
		"straße",
		"Café ",
		"ΟΔΟΣ",
		"tab\tinside",
		"\U00010041\u0301",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// Every code point, alone, after a letter and followed by a combining acute.
func TestNormalize_IdempotentOverCodeSpace(t *testing.T) {
	if testing.Short() {
		t.Skip("full code space sweep")
	}
	failures := 0
	for r := rune(0); r <= unicode.MaxRune; r++ {
		c := string(r)
		for _, in := range []string{c, "A" + c, c + "\u0301", "X" + c + "\u0301"} {
			once := Normalize(in)
			if twice := Normalize(once); twice != once {
				failures++
				if failures <= 10 {
					t.Errorf("Normalize(%+q) = %+q, then %+q", in, once, twice)
				}
			}
		}
	}
	if failures > 0 {
		t.Fatalf("%d inputs are not a fixed point", failures)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		submitted, canonical string
		want                 bool
	}{
		{"  the CLOCK tower ", "The Clock Tower", true},
		{"clock tower", "the clock tower", false},
		{"clocktower", "clock tower", false},
		{"clock tower.", "clock tower", false},
		{"caf\u00e9", "CAF\u00c9", true},
		{"caf\u00e9", "CAFE\u0301", false},
		{"\U00010041\u0301", "\u00c1", false},
		{"\U00010041\u0301", "\u00e1", false},
		{"\U00010041\u0301", "\U00010041\u0301", true},
	}
	for _, tt := range tests {
		if got := Match(tt.submitted, tt.canonical); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.submitted, tt.canonical, got, tt.want)
		}
	}
}
