package tokenize

import (
	"reflect"
	"testing"
)

const (
	kindWord Kind = iota
	kindNumber
	kindAssign
	kindSpace
	kindOther
)

func testTokenizer() *Tokenizer {
	return New([]Def{
		{Kind: kindAssign, Name: "ASSIGN", Pattern: `(?P<key>[a-z]+)=(?P<val>[a-z]+)`},
		{Kind: kindWord, Name: "WORD", Pattern: `[a-z]+`},
		{Kind: kindNumber, Name: "NUMBER", Pattern: `[0-9]+`},
		{Kind: kindSpace, Name: "SPACE", Pattern: `\s+`},
		{Kind: kindOther, Name: "OTHER", Pattern: `.`},
	})
}

func TestTokenizeOrder(t *testing.T) {
	tests := []struct {
		input string
		kinds []Kind
	}{
		{"abc", []Kind{kindWord}},
		{"abc 123", []Kind{kindWord, kindSpace, kindNumber}},
		{"a=b", []Kind{kindAssign}},
		{"a=b c", []Kind{kindAssign, kindSpace, kindWord}},
		{"!?", []Kind{kindOther, kindOther}},
		{"", nil},
	}

	tk := testTokenizer()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var kinds []Kind
			for _, tok := range tk.Tokenize(tt.input) {
				kinds = append(kinds, tok.Kind)
			}
			if !reflect.DeepEqual(kinds, tt.kinds) {
				t.Errorf("kinds = %v, want %v", kinds, tt.kinds)
			}
		})
	}
}

func TestTokenizeOffsets(t *testing.T) {
	tokens := testTokenizer().Tokenize("ab 12")
	want := []Token{
		{Kind: kindWord, Value: "ab", Start: 0, End: 2},
		{Kind: kindSpace, Value: " ", Start: 2, End: 3},
		{Kind: kindNumber, Value: "12", Start: 3, End: 5},
	}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %v, want %v", tokens, want)
	}
}

func TestTokenizeSubvalues(t *testing.T) {
	tokens := testTokenizer().Tokenize("foo=bar")
	if len(tokens) != 1 {
		t.Fatalf("len(tokens) = %d, want 1", len(tokens))
	}
	want := map[string]string{"key": "foo", "val": "bar"}
	if !reflect.DeepEqual(tokens[0].Subvalues, want) {
		t.Errorf("Subvalues = %v, want %v", tokens[0].Subvalues, want)
	}
}

func TestTokenizeNoSubvaluesIsNil(t *testing.T) {
	tokens := testTokenizer().Tokenize("foo")
	if tokens[0].Subvalues != nil {
		t.Errorf("Subvalues = %v, want nil", tokens[0].Subvalues)
	}
}

func TestTokenizeTrim(t *testing.T) {
	// keep a number out of a word when the rest starts with "!"
	tk := New([]Def{
		{Kind: kindWord, Name: "WORD", Pattern: `[a-z]+[0-9]*`, Trim: func(value, rest string) int {
			if rest == "!" {
				for i := 0; i < len(value); i++ {
					if value[i] >= '0' && value[i] <= '9' {
						return i
					}
				}
			}
			return 0
		}},
		{Kind: kindNumber, Name: "NUMBER", Pattern: `[0-9]+`},
		{Kind: kindOther, Name: "OTHER", Pattern: `.`},
	})

	var got []string
	for _, tok := range tk.Tokenize("abc12!") {
		got = append(got, tok.Value)
	}
	want := []string{"abc", "12", "!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("values = %v, want %v", got, want)
	}
}

func TestScannerRestarts(t *testing.T) {
	tk := testTokenizer()
	sc := tk.Scan("ab cd")
	first, ok := sc.Next()
	if !ok || first.Value != "ab" {
		t.Fatalf("Next() = %v, %v; want ab, true", first, ok)
	}

	fresh := tk.Scan("ab cd")
	again, ok := fresh.Next()
	if !ok || again.Value != "ab" {
		t.Errorf("fresh Next() = %v, %v; want ab, true", again, ok)
	}
}

func TestName(t *testing.T) {
	tk := testTokenizer()
	if got := tk.Name(kindWord); got != "WORD" {
		t.Errorf("Name(kindWord) = %q, want %q", got, "WORD")
	}
}
