package text

import "testing"

func TestTokenizeOffsetsMatchSource(t *testing.T) {
	in := "Кошки сидят, а кот №7 спит."
	tokens := Tokenize(in)
	if len(tokens) == 0 {
		t.Fatal("expected tokens")
	}
	prevEnd := 0
	for _, tok := range tokens {
		if tok.Start < prevEnd {
			t.Fatalf("overlapping offsets: %+v", tok)
		}
		if tok.Start >= tok.End {
			t.Fatalf("empty span: %+v", tok)
		}
		if in[tok.Start:tok.End] != tok.Text {
			t.Fatalf("text mismatch at [%d:%d]: %q != %q", tok.Start, tok.End, in[tok.Start:tok.End], tok.Text)
		}
		prevEnd = tok.End
	}
}

func TestTokenizeDropsSeparators(t *testing.T) {
	tokens := Tokenize("Кошки сидят.")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(tokens), tokens)
	}
	if tokens[0].Text != "Кошки" || tokens[1].Text != "сидят" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestTokenizePreservesCase(t *testing.T) {
	tokens := Tokenize("Москва ABC 42")
	want := []string{"Москва", "ABC", "42"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Fatalf("token %d: got %q want %q", i, tokens[i].Text, w)
		}
	}
}

func TestTokenizeEmptyAndPunctOnly(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens, got %+v", got)
	}
	if got := Tokenize("... !!! ---"); len(got) != 0 {
		t.Fatalf("expected no tokens, got %+v", got)
	}
}

func TestTokenizeTrailingWordHasFullSpan(t *testing.T) {
	in := "а кот"
	tokens := Tokenize(in)
	last := tokens[len(tokens)-1]
	if last.End != len(in) || in[last.Start:last.End] != "кот" {
		t.Fatalf("unexpected trailing token: %+v", last)
	}
}
