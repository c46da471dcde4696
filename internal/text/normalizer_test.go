package text

import "testing"

func TestNormalizeLowercasesAndRewritesYo(t *testing.T) {
	cases := map[string]string{
		"Ёжик":     "ежик",
		"ВСЁ":      "все",
		"Кошки":    "кошки",
		"  слово ": "слово",
		"Moscow":   "moscow",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"ежик", "кошка", "7", "x86"} {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeEmptySignalsSkip(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		if got := Normalize(in); got != "" {
			t.Fatalf("Normalize(%q) = %q, want empty", in, got)
		}
	}
}
