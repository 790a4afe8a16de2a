package codec

import (
	"bytes"
	"encoding/json"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teamchong/codesift/core"
	"github.com/teamchong/codesift/rulevm"
)

// MatchJSON is the wire shape of one match inside a finding.
type MatchJSON struct {
	StartRow  uint32            `json:"start_row"`
	StartCol  uint32            `json:"start_col"`
	EndRow    uint32            `json:"end_row"`
	EndCol    uint32            `json:"end_col"`
	StartByte uint32            `json:"start_byte"`
	EndByte   uint32            `json:"end_byte"`
	Bindings  map[string]string `json:"bindings"`
}

// FindingJSON is the wire shape of one rule's surviving result.
type FindingJSON struct {
	RuleID   string      `json:"ruleId"`
	Severity string      `json:"severity"`
	Message  string      `json:"message"`
	Matches  []MatchJSON `json:"matches"`
	Fix      *string     `json:"fix,omitempty"`
}

// MatchToJSON converts a match for finding output.
func MatchToJSON(m *core.Match) MatchJSON {
	bindings := make(map[string]string, m.Bindings.Len())
	for i := 0; i < m.Bindings.Len(); i++ {
		b := m.Bindings.At(i)
		bindings[b.Name] = b.Text
	}
	return MatchJSON{
		StartRow:  m.Range.Start.Row,
		StartCol:  m.Range.Start.Col,
		EndRow:    m.Range.End.Row,
		EndCol:    m.Range.End.Col,
		StartByte: m.Range.StartByte,
		EndByte:   m.Range.EndByte,
		Bindings:  bindings,
	}
}

// FindingToJSON converts one rule's surviving matches.
func FindingToJSON(f *rulevm.Finding) FindingJSON {
	out := FindingJSON{
		RuleID:   f.Rule.ID,
		Severity: f.Rule.Severity.String(),
		Message:  f.Rule.Message,
		Matches:  make([]MatchJSON, 0, f.Matches.Len()),
	}
	for i := 0; i < f.Matches.Len(); i++ {
		out.Matches = append(out.Matches, MatchToJSON(f.Matches.At(i)))
	}
	if f.Rule.HasFix {
		fix := f.Rule.Fix
		out.Fix = &fix
	}
	return out
}

// WriteFindings serializes findings as a JSON array into buf. Returns bytes
// written, or 0 when the encoding does not fit.
func WriteFindings(buf []byte, findings []rulevm.Finding) int {
	out := make([]FindingJSON, 0, len(findings))
	for i := range findings {
		out = append(out, FindingToJSON(&findings[i]))
	}
	return writeJSON(buf, out)
}

// NodeInfo is the compact node description used by the tree-walk API.
type NodeInfo struct {
	Kind  string `json:"kind"`
	SB    uint32 `json:"sb"`
	EB    uint32 `json:"eb"`
	SR    uint32 `json:"sr"`
	SC    uint32 `json:"sc"`
	ER    uint32 `json:"er"`
	EC    uint32 `json:"ec"`
	Named bool   `json:"named"`
	CC    uint32 `json:"cc"`
	NCC   uint32 `json:"ncc"`
}

// NodeInfoFrom captures a node's description; nil stays nil and serializes
// as JSON null.
func NodeInfoFrom(n *sitter.Node) *NodeInfo {
	if n == nil {
		return nil
	}
	return &NodeInfo{
		Kind:  n.Type(),
		SB:    n.StartByte(),
		EB:    n.EndByte(),
		SR:    n.StartPoint().Row,
		SC:    n.StartPoint().Column,
		ER:    n.EndPoint().Row,
		EC:    n.EndPoint().Column,
		Named: n.IsNamed(),
		CC:    n.ChildCount(),
		NCC:   n.NamedChildCount(),
	}
}

// WriteNodeInfo serializes one node info (or null) into buf.
func WriteNodeInfo(buf []byte, info *NodeInfo) int {
	return writeJSON(buf, info)
}

// WriteNodeInfos serializes a node info array into buf.
func WriteNodeInfos(buf []byte, infos []*NodeInfo) int {
	if infos == nil {
		infos = []*NodeInfo{}
	}
	return writeJSON(buf, infos)
}

func writeJSON(buf []byte, v any) int {
	var staging bytes.Buffer
	enc := json.NewEncoder(&staging)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0
	}
	encoded := bytes.TrimRight(staging.Bytes(), "\n")
	if len(encoded) > len(buf) {
		return 0
	}
	copy(buf, encoded)
	return len(encoded)
}
