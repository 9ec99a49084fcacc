package def

import "testing"

func TestLexerBasics(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []TokenKind
	}{
		{
			name:  "keyword and identifier",
			src:   "NAME foo.dll",
			kinds: []TokenKind{TokName, TokIdentifier, TokEOF},
		},
		{
			name:  "equal vs equalequal",
			src:   "a = b == c",
			kinds: []TokenKind{TokIdentifier, TokEqual, TokIdentifier, TokEqualEqual, TokIdentifier, TokEOF},
		},
		{
			name:  "comment to end of line",
			src:   "; comment\nEXPORTS foo",
			kinds: []TokenKind{TokExports, TokIdentifier, TokEOF},
		},
		{
			name:  "quoted identifier",
			src:   `"hello world"`,
			kinds: []TokenKind{TokIdentifier, TokEOF},
		},
		{
			name:  "comma",
			src:   "HEAPSIZE 1, 2",
			kinds: []TokenKind{TokHeapsize, TokIdentifier, TokComma, TokIdentifier, TokEOF},
		},
		{
			name:  "empty input is immediate eof",
			src:   "",
			kinds: []TokenKind{TokEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer([]byte(tt.src))
			for i, want := range tt.kinds {
				got := l.Next()
				if got.Kind != want {
					t.Fatalf("token %d: kind = %v, want %v", i, got.Kind, want)
				}
			}
		})
	}
}

func TestLexerQuotedIdentifierValue(t *testing.T) {
	l := NewLexer([]byte(`"my dll.dll"`))
	tok := l.Next()
	if tok.Kind != TokIdentifier || tok.Value != "my dll.dll" {
		t.Fatalf("token = %+v, want Identifier %q", tok, "my dll.dll")
	}
}

func TestLexerPushback(t *testing.T) {
	l := NewLexer([]byte("a b"))
	first := l.Next()
	l.Pushback(first)
	again := l.Next()
	if again != first {
		t.Fatalf("Next() after Pushback() = %+v, want %+v", again, first)
	}
	second := l.Next()
	if second.Value != "b" {
		t.Fatalf("Next() = %+v, want Identifier b", second)
	}
}
