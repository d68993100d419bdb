package lexer

import "testing"

func TestAllBasicTokens(t *testing.T) {
	toks, err := All(`groups fluid { select type fluid; }`)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	want := []string{"groups", "fluid", "{", "select", "type"}
	for i, w := range want {
		if toks[i].Text != w {
			t.Errorf("tok[%d] = %q, want %q", i, toks[i].Text, w)
		}
	}
}

func TestMaxAssignOperatorLexedAsOneToken(t *testing.T) {
	toks, err := All("a max= b")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if toks[1].Text != "max=" || toks[1].Kind != Punct {
		t.Errorf("tok[1] = %+v, want max= punct", toks[1])
	}
}

func TestLineCommentSkipped(t *testing.T) {
	toks, err := All("a // comment\nb")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if toks[0].Text != "a" || toks[1].Text != "b" {
		t.Fatalf("toks = %+v", toks)
	}
}

func TestNumberToken(t *testing.T) {
	toks, err := All("1.5")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if toks[0].Kind != Number || toks[0].Text != "1.5" {
		t.Errorf("tok = %+v", toks[0])
	}
}

func TestUnexpectedCharacterErrors(t *testing.T) {
	_, err := All("a $ b")
	if err == nil {
		t.Fatal("expected lexer error for '$'")
	}
}
