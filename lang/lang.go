package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported grammar. The numeric values are part of
// the ruleset bytecode wire format.
type Language uint8

const (
	JavaScript Language = 1
	TypeScript Language = 2
	TSX        Language = 3
)

// Valid reports whether l is a known language tag.
func (l Language) Valid() bool {
	return l >= JavaScript && l <= TSX
}

// String returns the canonical language identifier.
func (l Language) String() string {
	switch l {
	case JavaScript:
		return "javascript"
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	}
	return "unknown"
}

// Sitter returns the tree-sitter grammar for the language. TSX uses the
// TypeScript grammar's TSX dialect, which also accepts JSX.
func (l Language) Sitter() *sitter.Language {
	switch l {
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	}
	return nil
}

// Extensions returns the file extensions handled by the language.
func (l Language) Extensions() []string {
	switch l {
	case JavaScript:
		return []string{".js", ".jsx", ".mjs", ".cjs"}
	case TypeScript:
		return []string{".ts", ".mts", ".cts"}
	case TSX:
		return []string{".tsx"}
	}
	return nil
}

// Parse maps a language identifier to its tag.
func Parse(name string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "javascript", "js":
		return JavaScript, true
	case "typescript", "ts":
		return TypeScript, true
	case "tsx":
		return TSX, true
	}
	return 0, false
}

// ByExtension resolves a file extension (with or without the leading dot)
// to its language.
func ByExtension(ext string) (Language, bool) {
	normalized := strings.ToLower(strings.TrimSpace(ext))
	if normalized == "" {
		return 0, false
	}
	if !strings.HasPrefix(normalized, ".") {
		normalized = "." + normalized
	}
	for _, l := range []Language{JavaScript, TypeScript, TSX} {
		for _, e := range l.Extensions() {
			if e == normalized {
				return l, true
			}
		}
	}
	return 0, false
}
