package lexer

import "testing"

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	l := New(src, "t.shannon")
	var types []TokenType
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		types = append(types, tok.Type)
		if tok.Type == TokEOF {
			return types
		}
	}
}

func TestScansKeywordsAndPunctuation(t *testing.T) {
	got := tokenTypes(t, "state Counter { self count: int = 0 }")
	want := []TokenType{
		TokState, TokIdent, TokLBrace, TokSelf, TokIdent, TokColon, TokIdent,
		TokAssign, TokInt, TokRBrace, TokEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScansTwoCharOperators(t *testing.T) {
	got := tokenTypes(t, "a == b != c <= d >= e += 1")
	want := []TokenType{
		TokIdent, TokEq, TokIdent, TokNe, TokIdent, TokLe, TokIdent, TokGe,
		TokIdent, TokPlusAssign, TokInt, TokEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSkipsLineAndBlockComments(t *testing.T) {
	got := tokenTypes(t, "1 // trailing comment\n/* block\ncomment */ 2")
	want := []TokenType{TokInt, TokInt, TokEOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb"`, "t.shannon")
	tok, err := l.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Type != TokStr || tok.Text != "a\nb" {
		t.Fatalf("got %q (%v), want %q", tok.Text, tok.Type, "a\nb")
	}
}

func TestUnterminatedStringIsALexError(t *testing.T) {
	l := New(`"unterminated`, "t.shannon")
	if _, err := l.Next(); err == nil {
		t.Fatal("expected a lex error for an unterminated string literal")
	}
}
