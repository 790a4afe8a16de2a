package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamchong/codesift/lang"
)

func decodeInfo(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func decodeInfos(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestNodeRootAndInfo(t *testing.T) {
	e := newEngine(t)
	src := e.CompileSource([]byte("var x = 1;"), lang.JavaScript)

	n := e.NodeRoot(src)
	require.Greater(t, n, 0)
	info := decodeInfo(t, e.Result())
	assert.Equal(t, "program", info["kind"])
	assert.Equal(t, float64(0), info["sb"])
	assert.Equal(t, float64(10), info["eb"])

	e.NodeInfo(src, 0, 10, false)
	info = decodeInfo(t, e.Result())
	// Root and its sole statement share the span; without the root flag
	// the deepest exact-covering node wins.
	assert.Equal(t, "variable_declaration", info["kind"])

	e.NodeInfo(src, 0, 10, true)
	info = decodeInfo(t, e.Result())
	assert.Equal(t, "program", info["kind"])
}

func TestNodeInfoNoSuchNode(t *testing.T) {
	e := newEngine(t)
	src := e.CompileSource([]byte("var x = 1;"), lang.JavaScript)

	e.NodeInfo(src, 1, 9, false)
	assert.Equal(t, "null", string(e.Result()))
}

func TestNodeChildren(t *testing.T) {
	e := newEngine(t)
	src := e.CompileSource([]byte("var a = 1; var b = 2;"), lang.JavaScript)

	e.NodeNamedChildren(src, 0, 21, true)
	infos := decodeInfos(t, e.Result())
	require.Len(t, infos, 2)
	assert.Equal(t, "variable_declaration", infos[0]["kind"])
	assert.Equal(t, float64(11), infos[1]["sb"])

	// Total children of a declaration include the keyword and semicolon.
	e.NodeChildren(src, 0, 10, false)
	all := decodeInfos(t, e.Result())
	named := 0
	for _, info := range all {
		if info["named"].(bool) {
			named++
		}
	}
	assert.Greater(t, len(all), named)
}

func TestNodeNavigation(t *testing.T) {
	e := newEngine(t)
	src := e.CompileSource([]byte("var a = 1; var b = 2;"), lang.JavaScript)

	e.NodeNext(src, 0, 10, false)
	next := decodeInfo(t, e.Result())
	assert.Equal(t, float64(11), next["sb"])

	e.NodePrev(src, 11, 21, false)
	prev := decodeInfo(t, e.Result())
	assert.Equal(t, float64(0), prev["sb"])

	e.NodePrev(src, 0, 10, false)
	assert.Equal(t, "null", string(e.Result()))

	e.NodeParent(src, 0, 10, false)
	parent := decodeInfo(t, e.Result())
	assert.Equal(t, "program", parent["kind"])

	e.NodeParent(src, 0, 21, true)
	assert.Equal(t, "null", string(e.Result()))
}

func TestNodeFieldChild(t *testing.T) {
	e := newEngine(t)
	source := "function greet(name) { return name; }"
	src := e.CompileSource([]byte(source), lang.JavaScript)

	e.NodeFieldChild(src, 0, uint32(len(source)), false, "name")
	info := decodeInfo(t, e.Result())
	require.NotNil(t, info)
	assert.Equal(t, "identifier", info["kind"])
	assert.Equal(t, float64(9), info["sb"])

	e.NodeFieldChild(src, 0, uint32(len(source)), false, "no_such_field")
	assert.Equal(t, "null", string(e.Result()))
}

func TestFindAllScoping(t *testing.T) {
	e := newEngine(t)
	source := "function foo(){let r=eval(a);} function bar(){let r=eval(b);}"
	src := e.CompileSource([]byte(source), lang.JavaScript)

	// Whole tree: both call sites.
	e.FindAll(src, 0, uint32(len(source)), true, "eval($X)")
	infos := decodeInfos(t, e.Result())
	require.Len(t, infos, 2)
	first := source[int(infos[0]["sb"].(float64)):int(infos[0]["eb"].(float64))]
	second := source[int(infos[1]["sb"].(float64)):int(infos[1]["eb"].(float64))]
	assert.Equal(t, "eval(a)", first)
	assert.Equal(t, "eval(b)", second)

	// Scoped to the first function: only eval(a).
	e.NodeNamedChildren(src, 0, uint32(len(source)), true)
	children := decodeInfos(t, e.Result())
	require.Len(t, children, 2)
	fnStart := uint32(children[0]["sb"].(float64))
	fnEnd := uint32(children[0]["eb"].(float64))

	e.Find(src, fnStart, fnEnd, false, "eval($X)")
	found := decodeInfo(t, e.Result())
	require.NotNil(t, found)
	got := source[int(found["sb"].(float64)):int(found["eb"].(float64))]
	assert.Equal(t, "eval(a)", got)
}

func TestFindNoMatchIsNull(t *testing.T) {
	e := newEngine(t)
	source := "var x = 1;"
	src := e.CompileSource([]byte(source), lang.JavaScript)

	e.Find(src, 0, uint32(len(source)), true, "eval($X)")
	assert.Equal(t, "null", string(e.Result()))
}

func TestFindReusesCompiledPattern(t *testing.T) {
	e := newEngine(t)
	source := "var a = eval(x);"
	src := e.CompileSource([]byte(source), lang.JavaScript)

	e.FindAll(src, 0, uint32(len(source)), true, "eval($X)")
	e.FindAll(src, 0, uint32(len(source)), true, "eval($X)")

	slots := 0
	for i := range e.compiled {
		if e.compiled[i] != nil {
			slots++
		}
	}
	assert.Equal(t, 1, slots, "identical pattern should reuse its slot")
}

func TestNodeMatches(t *testing.T) {
	e := newEngine(t)
	source := "var a = eval(x);"
	src := e.CompileSource([]byte(source), lang.JavaScript)

	// The call node's own range: eval(x) spans bytes 8..15.
	assert.True(t, e.NodeMatches(src, 8, 15, false, "eval($X)"))
	// The whole program does not itself match the pattern.
	assert.False(t, e.NodeMatches(src, 0, uint32(len(source)), true, "eval($X)"))
}
