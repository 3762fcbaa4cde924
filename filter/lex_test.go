package filter

import (
	"errors"
	"testing"
)

func TestLexTokens(t *testing.T) {
	tokens, err := Lex(`species.name >= "x\"y" and nsites != 3.5e2`)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}

	want := []Token{
		{Kind: TokenIdentifier, Text: "species", Offset: 0},
		{Kind: TokenPunctuation, Text: ".", Offset: 7},
		{Kind: TokenIdentifier, Text: "name", Offset: 8},
		{Kind: TokenOperator, Text: ">=", Offset: 13},
		{Kind: TokenString, Text: `x"y`, Offset: 16},
		{Kind: TokenKeyword, Text: "AND", Offset: 23},
		{Kind: TokenIdentifier, Text: "nsites", Offset: 27},
		{Kind: TokenOperator, Text: "!=", Offset: 34},
		{Kind: TokenNumber, Text: "3.5e2", Offset: 37},
		{Kind: TokenEOF, Offset: 42},
	}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %+v, got %+v", i, want[i], tokens[i])
		}
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []string{"0", "42", "-3", "+7", "1.5", ".5", "-.5", "1e10", "2.5E-3"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			tokens, err := Lex(src)
			if err != nil {
				t.Fatalf("Lex(%q) failed: %v", src, err)
			}
			if tokens[0].Kind != TokenNumber || tokens[0].Text != src {
				t.Errorf("expected number %q, got %+v", src, tokens[0])
			}
		})
	}
}

func TestLexBackslash(t *testing.T) {
	tokens, err := Lex(`"a\\b\nc"`)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if tokens[0].Text != `a\b\nc` {
		t.Errorf("expected %q, got %q", `a\b\nc`, tokens[0].Text)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{`a = "abc`, 4},
		{`a = "abc\"`, 4},
		{`a ! 3`, 2},
		{`a = 3 # 4`, 6},
		{`a = 1e`, 5},
		{`a = 12abc`, 6},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Lex(tt.src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if se.Offset != tt.offset {
				t.Errorf("expected offset %d, got %d (%s)", tt.offset, se.Offset, se.Message)
			}
		})
	}
}

func TestIsKeyword(t *testing.T) {
	for _, w := range []string{"and", "Has", "LENGTH", "with"} {
		if !IsKeyword(w) {
			t.Errorf("expected %q to be a keyword", w)
		}
	}
	for _, w := range []string{"elements", "id", "andx"} {
		if IsKeyword(w) {
			t.Errorf("expected %q not to be a keyword", w)
		}
	}
}
