// Package engine owns the slot tables, staging buffers, and host-facing
// entry points. One Engine is single-threaded; hosts wanting parallelism
// create one Engine per worker.
package engine

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/matcher"
	"github.com/teamchong/codesift/rulevm"
)

// Slot table capacities. Handles are 1-based; 0 denotes error.
const (
	MaxCompiled     = 64
	MaxSources      = 16
	MaxMatchSlots   = 4
	MaxRulesetSlots = 2
)

// CompiledPattern holds an owned copy of pattern bytes plus its parsed
// tree, alive until the slot is freed.
type CompiledPattern struct {
	language lang.Language
	source   []byte
	tree     *sitter.Tree
	body     *sitter.Node
}

// CompiledSource holds an owned copy of source bytes plus its parsed tree.
type CompiledSource struct {
	language lang.Language
	source   []byte
	tree     *sitter.Tree
}

// Root returns the tree root.
func (s *CompiledSource) Root() *sitter.Node { return s.tree.RootNode() }

// Source returns the owned source bytes.
func (s *CompiledSource) Source() []byte { return s.source }

// Language returns the language the source was parsed as.
func (s *CompiledSource) Language() lang.Language { return s.language }

type loadedRuleset struct {
	rs           *rulevm.Ruleset
	patternSlots []uint32
}

// Engine is one core instance: parser pool, slot tables, the staging match
// list, and the two fixed output buffers.
type Engine struct {
	pool lang.ParserPool

	compiled [MaxCompiled]*CompiledPattern
	sources  [MaxSources]*CompiledSource
	matches  [MaxMatchSlots]*core.MatchList
	rulesets [MaxRulesetSlots]*loadedRuleset

	last core.MatchList

	result      [codec.MaxOutput]byte
	resultLen   int
	rsResult    [codec.MaxOutput]byte
	rsResultLen int
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{}
}

// Close releases every slot and the parser pool.
func (e *Engine) Close() {
	for h := uint32(1); h <= MaxCompiled; h++ {
		e.FreePattern(h)
	}
	for h := uint32(1); h <= MaxSources; h++ {
		e.FreeSource(h)
	}
	for h := uint32(1); h <= MaxMatchSlots; h++ {
		e.FreeMatches(h)
	}
	for h := uint32(1); h <= MaxRulesetSlots; h++ {
		e.FreeRuleset(h)
	}
	e.pool.Close()
}

// Result returns the last binary or node-info result.
func (e *Engine) Result() []byte { return e.result[:e.resultLen] }

// ResultLen returns the length of the last result.
func (e *Engine) ResultLen() int { return e.resultLen }

// RulesetResult returns the last findings JSON.
func (e *Engine) RulesetResult() []byte { return e.rsResult[:e.rsResultLen] }

// RulesetResultLen returns the length of the last findings JSON.
func (e *Engine) RulesetResultLen() int { return e.rsResultLen }

// LastMatches exposes the staging match list; the next operation
// overwrites it.
func (e *Engine) LastMatches() *core.MatchList { return &e.last }

// Pattern implements rulevm.PatternSource over the compiled-pattern slots.
func (e *Engine) Pattern(handle uint32) (*sitter.Node, []byte, bool) {
	p := e.pattern(handle)
	if p == nil {
		return nil, nil, false
	}
	return p.body, p.source, true
}

func (e *Engine) pattern(handle uint32) *CompiledPattern {
	if handle == 0 || handle > MaxCompiled {
		return nil
	}
	return e.compiled[handle-1]
}

func (e *Engine) compiledSource(handle uint32) *CompiledSource {
	if handle == 0 || handle > MaxSources {
		return nil
	}
	return e.sources[handle-1]
}

func (e *Engine) matchSlot(handle uint32) *core.MatchList {
	if handle == 0 || handle > MaxMatchSlots {
		return nil
	}
	return e.matches[handle-1]
}

func (e *Engine) ruleset(handle uint32) *loadedRuleset {
	if handle == 0 || handle > MaxRulesetSlots {
		return nil
	}
	return e.rulesets[handle-1]
}

// CompilePattern parses pattern bytes into a fresh slot. Returns the
// 1-based handle, 0 on failure or slot exhaustion.
func (e *Engine) CompilePattern(pattern []byte, l lang.Language) uint32 {
	slot := -1
	for i := range e.compiled {
		if e.compiled[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0
	}

	owned := make([]byte, len(pattern))
	copy(owned, pattern)
	tree, err := e.pool.Parse(l, owned)
	if err != nil {
		return 0
	}
	e.compiled[slot] = &CompiledPattern{
		language: l,
		source:   owned,
		tree:     tree,
		body:     matcher.PatternBody(tree.RootNode()),
	}
	return uint32(slot + 1)
}

// FindPattern returns the handle of an already-compiled pattern with the
// same bytes and language, or 0.
func (e *Engine) FindPattern(pattern []byte, l lang.Language) uint32 {
	for i, p := range e.compiled {
		if p != nil && p.language == l && string(p.source) == string(pattern) {
			return uint32(i + 1)
		}
	}
	return 0
}

// FreePattern releases a pattern slot. Freeing handle 0 or an empty slot
// is a no-op.
func (e *Engine) FreePattern(handle uint32) {
	p := e.pattern(handle)
	if p == nil {
		return
	}
	p.tree.Close()
	e.compiled[handle-1] = nil
}

// CompileSource parses source bytes into a fresh slot.
func (e *Engine) CompileSource(source []byte, l lang.Language) uint32 {
	slot := -1
	for i := range e.sources {
		if e.sources[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0
	}

	owned := make([]byte, len(source))
	copy(owned, source)
	tree, err := e.pool.Parse(l, owned)
	if err != nil {
		return 0
	}
	e.sources[slot] = &CompiledSource{language: l, source: owned, tree: tree}
	return uint32(slot + 1)
}

// FreeSource releases a source slot; invalid handles are no-ops.
func (e *Engine) FreeSource(handle uint32) {
	s := e.compiledSource(handle)
	if s == nil {
		return
	}
	s.tree.Close()
	e.sources[handle-1] = nil
}

// FreeMatches releases a stored match slot; invalid handles are no-ops.
func (e *Engine) FreeMatches(handle uint32) {
	if e.matchSlot(handle) == nil {
		return
	}
	e.matches[handle-1] = nil
}

// FreeRuleset releases a ruleset slot along with the compiled-pattern
// slots its load created.
func (e *Engine) FreeRuleset(handle uint32) {
	lr := e.ruleset(handle)
	if lr == nil {
		return
	}
	for _, slot := range lr.patternSlots {
		e.FreePattern(slot)
	}
	e.rulesets[handle-1] = nil
}
