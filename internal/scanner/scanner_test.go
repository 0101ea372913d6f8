package scanner

import "testing"

func scanAll(src string) []Token {
	s := New(src)
	var toks []Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestPunctuationAndOperators(t *testing.T) {
	toks := scanAll("(){};,.-+/*?:!= = == < <= > >=")
	want := []Type{
		LeftParen, RightParen, LeftBrace, RightBrace, Semicolon, Comma, Dot,
		Minus, Plus, Slash, Star, Question, Colon, BangEqual, Equal,
		EqualEqual, Less, LessEqual, Greater, GreaterEqual, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v want %v (%q)", i, toks[i].Type, w, toks[i].Lexeme)
		}
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll("class fun if while myVar _x1")
	want := []Type{Class, Fun, If, While, Identifier, Identifier, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %v want %v", i, toks[i].Type, w)
		}
	}
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"123", "123"},
		{"3.14", "3.14"},
		{"0x1F", "0x1F"},
		{"0X0a", "0X0a"},
	}
	for _, c := range cases {
		toks := scanAll(c.src)
		if toks[0].Type != Number || toks[0].Lexeme != c.want {
			t.Errorf("scan(%q) = %+v, want Number %q", c.src, toks[0], c.want)
		}
	}
}

func TestBareHexPrefixIsUnspecifiedButDoesNotCrash(t *testing.T) {
	toks := scanAll("0x")
	if toks[0].Type != Number || toks[0].Lexeme != "0x" {
		t.Errorf("scan(\"0x\") = %+v, want Number \"0x\" (preserved quirk)", toks[0])
	}
}

func TestStringLiteralWithEmbeddedNewline(t *testing.T) {
	toks := scanAll("\"hi\nthere\"")
	if toks[0].Type != String {
		t.Fatalf("expected String token, got %v", toks[0].Type)
	}
	if toks[0].Lexeme != "\"hi\nthere\"" {
		t.Errorf("lexeme = %q", toks[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll("\"oops")
	if toks[0].Type != Error || toks[0].Lexeme != "Unterminated string." {
		t.Errorf("got %+v", toks[0])
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := scanAll("@")
	if toks[0].Type != Error || toks[0].Lexeme != "Unexpected character." {
		t.Errorf("got %+v", toks[0])
	}
}

func TestLineCommentsAndWhitespaceSkipped(t *testing.T) {
	toks := scanAll("// a comment\nvar x;")
	want := []Type{Var, Identifier, Semicolon, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	if toks[0].Line != 2 {
		t.Errorf("first real token should be on line 2, got %d", toks[0].Line)
	}
}

func TestEOFIsRepeatable(t *testing.T) {
	s := New("")
	a := s.ScanToken()
	b := s.ScanToken()
	if a.Type != EOF || b.Type != EOF {
		t.Fatalf("expected EOF repeatedly, got %v then %v", a.Type, b.Type)
	}
}

func TestLexemeIsSliceOfSource(t *testing.T) {
	src := "var greeting;"
	toks := scanAll(src)
	if toks[1].Lexeme != "greeting" {
		t.Errorf("lexeme = %q", toks[1].Lexeme)
	}
}
