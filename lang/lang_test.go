package lang

import "testing"

func TestParseName(t *testing.T) {
	cases := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"javascript", JavaScript, true},
		{"js", JavaScript, true},
		{"TypeScript", TypeScript, true},
		{"ts", TypeScript, true},
		{"tsx", TSX, true},
		{"python", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := Parse(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestByExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".js", JavaScript, true},
		{"jsx", JavaScript, true},
		{".mjs", JavaScript, true},
		{".ts", TypeScript, true},
		{".tsx", TSX, true},
		{".go", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ByExtension(c.ext)
		if got != c.want || ok != c.ok {
			t.Errorf("ByExtension(%q) = (%v, %v), want (%v, %v)", c.ext, got, ok, c.want, c.ok)
		}
	}
}

func TestSitterGrammars(t *testing.T) {
	for _, l := range []Language{JavaScript, TypeScript, TSX} {
		if l.Sitter() == nil {
			t.Errorf("%s grammar missing", l)
		}
	}
	if Language(0).Sitter() != nil {
		t.Error("invalid tag should have no grammar")
	}
}

func TestParserPoolParse(t *testing.T) {
	pool := &ParserPool{}
	defer pool.Close()

	tree, err := pool.Parse(JavaScript, []byte("const x = 1;"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.Type() != "program" {
		t.Errorf("root kind %q, want program", root.Type())
	}

	// Second parse reuses the cached parser.
	tree2, err := pool.Parse(JavaScript, []byte("let y = 2;"))
	if err != nil {
		t.Fatalf("second parse failed: %v", err)
	}
	tree2.Close()
}

func TestParserPoolTSX(t *testing.T) {
	pool := &ParserPool{}
	defer pool.Close()

	tree, err := pool.Parse(TSX, []byte("const el = <div id={x} />;"))
	if err != nil {
		t.Fatalf("tsx parse failed: %v", err)
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		t.Error("tsx source should parse cleanly")
	}
}

func TestParserPoolRejectsInvalidLanguage(t *testing.T) {
	pool := &ParserPool{}
	if _, err := pool.Parse(Language(9), []byte("x")); err == nil {
		t.Error("expected error for unknown language tag")
	}
}

func TestDescendantForByteRange(t *testing.T) {
	pool := &ParserPool{}
	defer pool.Close()

	src := []byte("const x = eval(input);")
	tree, err := pool.Parse(JavaScript, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	defer tree.Close()

	// eval(input) spans bytes 10..21.
	node := ExactNodeForByteRange(tree.RootNode(), 10, 21)
	if node == nil {
		t.Fatal("exact lookup returned nothing")
	}
	if node.Type() != "call_expression" {
		t.Errorf("kind %q, want call_expression", node.Type())
	}

	// A span with no exactly-covering node falls back to nil.
	if ExactNodeForByteRange(tree.RootNode(), 11, 21) != nil {
		t.Error("inexact span should return nil")
	}
}
