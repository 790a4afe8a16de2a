package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/rules"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestDiscoverByExtension(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.js":                "var a = 1;",
		"lib/b.ts":            "let b = 2;",
		"lib/c.tsx":           "const c = <div/>;",
		"readme.md":           "nope",
		"node_modules/d.js":   "skipped",
		".hidden/e.js":        "skipped",
	})

	files, err := Discover(context.Background(), Scope{Root: root})
	require.NoError(t, err)
	require.Len(t, files, 3)

	langs := map[string]lang.Language{}
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		langs[filepath.ToSlash(rel)] = f.Language
	}
	assert.Equal(t, lang.JavaScript, langs["a.js"])
	assert.Equal(t, lang.TypeScript, langs["lib/b.ts"])
	assert.Equal(t, lang.TSX, langs["lib/c.tsx"])
}

func TestDiscoverGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.js":      "var a = 1;",
		"src/a.spec.js": "var t = 1;",
		"vendor/b.js":   "var b = 1;",
	})

	files, err := Discover(context.Background(), Scope{
		Root:    root,
		Include: []string{"src/**"},
		Exclude: []string{"*.spec.js"},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Path, "a.js")
}

func TestDiscoverSingleFile(t *testing.T) {
	root := writeTree(t, map[string]string{"only.ts": "let x = 1;"})
	files, err := Discover(context.Background(), Scope{Root: filepath.Join(root, "only.ts")})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, lang.TypeScript, files[0].Language)
}

const scanRules = `{"rules":[{
  "id": "no-eval",
  "severity": "error",
  "message": "do not eval",
  "language": "javascript",
  "rule": {"pattern": "eval($X)"}
}]}`

func TestScannerRun(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.js":   "var a = eval(x);",
		"clean.js": "var a = parse(x);",
		"also.js":  "var b = eval(y); var c = eval(z);",
	})

	bytecode, err := rules.Compile([]byte(scanRules))
	require.NoError(t, err)

	files, err := Discover(context.Background(), Scope{Root: root})
	require.NoError(t, err)

	results, err := NewScanner(bytecode, 2).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := map[string]FileResult{}
	for _, r := range results {
		require.NoError(t, r.Err)
		byName[filepath.Base(r.File)] = r
	}

	assert.Len(t, byName["clean.js"].Findings, 0)

	require.Len(t, byName["bad.js"].Findings, 1)
	assert.Equal(t, 1, byName["bad.js"].Findings[0].Matches.Len())

	require.Len(t, byName["also.js"].Findings, 1)
	assert.Equal(t, 2, byName["also.js"].Findings[0].Matches.Len())
}

func TestScannerRunDeterministicOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.js": "var a = eval(x);",
		"b.js": "var b = eval(y);",
		"c.js": "var c = eval(z);",
	})

	bytecode, err := rules.Compile([]byte(scanRules))
	require.NoError(t, err)
	files, err := Discover(context.Background(), Scope{Root: root})
	require.NoError(t, err)

	first, err := NewScanner(bytecode, 3).Run(context.Background(), files)
	require.NoError(t, err)
	second, err := NewScanner(bytecode, 1).Run(context.Background(), files)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].File, second[i].File)
	}
}

func TestScannerRejectsBadBytecode(t *testing.T) {
	_, err := NewScanner([]byte{0x00}, 1).Run(context.Background(), nil)
	require.Error(t, err)
}
