// Package rules loads JSON rule files and compiles them into the ruleset
// bytecode the engine consumes.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/teamchong/codesift/lang"
	"github.com/teamchong/codesift/rulevm"
)

// File is the parsed shape of a rule file.
type File struct {
	Version int        `json:"version"`
	Rules   []RuleJSON `json:"rules"`
}

// RuleJSON is one rule entry.
type RuleJSON struct {
	ID          string                    `json:"id"`
	Severity    string                    `json:"severity"`
	Message     string                    `json:"message"`
	Language    string                    `json:"language"`
	Rule        NodeJSON                  `json:"rule"`
	Constraints map[string]ConstraintJSON `json:"constraints"`
	Transforms  []TransformJSON           `json:"transforms"`
	Fix         *string                   `json:"fix"`
}

// NodeJSON is a single-operator rule body node.
type NodeJSON struct {
	Pattern  *string    `json:"pattern"`
	Kind     *string    `json:"kind"`
	Regex    *string    `json:"regex"`
	NthChild *uint32    `json:"nthChild"`
	All      []NodeJSON `json:"all"`
	Any      []NodeJSON `json:"any"`
	Not      *NodeJSON  `json:"not"`
	Inside   *NodeJSON  `json:"inside"`
	Has      *NodeJSON  `json:"has"`
	Follows  *NodeJSON  `json:"follows"`
	Precedes *NodeJSON  `json:"precedes"`
	Matches  *string    `json:"matches"`

	StopBy *json.RawMessage `json:"stopBy"`
}

// ConstraintJSON carries exactly one of regex / notRegex.
type ConstraintJSON struct {
	Regex    *string `json:"regex"`
	NotRegex *string `json:"notRegex"`
}

// TransformJSON is one decoded transform entry.
type TransformJSON struct {
	Source string `json:"source"`
	Op     string `json:"op"`
	Arg    string `json:"arg"`
}

// Validate checks a rule document against the embedded schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(ruleFileSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid rule file: %s", strings.Join(msgs, "; "))
}

// Load validates and parses a rule document into encoder specs.
func Load(data []byte) ([]rulevm.RuleSpec, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	index := make(map[string]uint32, len(file.Rules))
	for i, r := range file.Rules {
		if _, dup := index[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		index[r.ID] = uint32(i)
	}

	specs := make([]rulevm.RuleSpec, 0, len(file.Rules))
	for i := range file.Rules {
		spec, err := buildRule(&file.Rules[i], index)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", file.Rules[i].ID, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Compile loads a rule document and encodes it to bytecode.
func Compile(data []byte) ([]byte, error) {
	specs, err := Load(data)
	if err != nil {
		return nil, err
	}
	var file File
	_ = json.Unmarshal(data, &file)
	return rulevm.Encode(uint16(file.Version), specs)
}

func buildRule(r *RuleJSON, index map[string]uint32) (rulevm.RuleSpec, error) {
	spec := rulevm.RuleSpec{
		ID:      r.ID,
		Message: r.Message,
		Fix:     r.Fix,
	}

	switch r.Severity {
	case "", "error":
		spec.Severity = rulevm.SeverityError
	case "warning":
		spec.Severity = rulevm.SeverityWarning
	case "info":
		spec.Severity = rulevm.SeverityInfo
	case "hint":
		spec.Severity = rulevm.SeverityHint
	default:
		return spec, fmt.Errorf("unknown severity %q", r.Severity)
	}

	language := r.Language
	if language == "" {
		language = "javascript"
	}
	l, ok := lang.Parse(language)
	if !ok {
		return spec, fmt.Errorf("unknown language %q", r.Language)
	}
	spec.Language = l

	names := make([]string, 0, len(r.Constraints))
	for name := range r.Constraints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := r.Constraints[name]
		cs := rulevm.ConstraintSpec{Metavar: name}
		switch {
		case c.Regex != nil:
			cs.Kind = rulevm.ConstraintRegex
			cs.Pattern = *c.Regex
		case c.NotRegex != nil:
			cs.Kind = rulevm.ConstraintNotRegex
			cs.Pattern = *c.NotRegex
		default:
			return spec, fmt.Errorf("constraint %q needs regex or notRegex", name)
		}
		spec.Constraints = append(spec.Constraints, cs)
	}

	for _, tr := range r.Transforms {
		ts := rulevm.TransformSpec{Source: tr.Source, Arg: tr.Arg}
		switch tr.Op {
		case "substring":
			ts.Op = rulevm.TransformSubstring
		case "replace":
			ts.Op = rulevm.TransformReplace
		case "convert":
			ts.Op = rulevm.TransformConvert
		default:
			return spec, fmt.Errorf("unknown transform op %q", tr.Op)
		}
		spec.Transforms = append(spec.Transforms, ts)
	}

	body, err := buildNode(&r.Rule, index)
	if err != nil {
		return spec, err
	}
	spec.Body = *body
	return spec, nil
}

func buildNode(n *NodeJSON, index map[string]uint32) (*rulevm.NodeSpec, error) {
	switch {
	case n.Pattern != nil:
		return &rulevm.NodeSpec{Tag: rulevm.TagPattern, Str: *n.Pattern}, nil
	case n.Kind != nil:
		return &rulevm.NodeSpec{Tag: rulevm.TagKind, Str: *n.Kind}, nil
	case n.Regex != nil:
		return &rulevm.NodeSpec{Tag: rulevm.TagRegex, Str: *n.Regex}, nil
	case n.NthChild != nil:
		return &rulevm.NodeSpec{Tag: rulevm.TagNthChild, Num: *n.NthChild}, nil

	case n.All != nil:
		children, err := buildNodes(n.All, index)
		if err != nil {
			return nil, err
		}
		return &rulevm.NodeSpec{Tag: rulevm.TagAll, Children: children}, nil
	case n.Any != nil:
		children, err := buildNodes(n.Any, index)
		if err != nil {
			return nil, err
		}
		return &rulevm.NodeSpec{Tag: rulevm.TagAny, Children: children}, nil

	case n.Not != nil:
		child, err := buildNode(n.Not, index)
		if err != nil {
			return nil, err
		}
		return &rulevm.NodeSpec{Tag: rulevm.TagNot, Child: child}, nil

	case n.Inside != nil:
		return buildRelational(rulevm.TagInside, n.Inside, n.StopBy, index)
	case n.Has != nil:
		return buildRelational(rulevm.TagHas, n.Has, n.StopBy, index)
	case n.Follows != nil:
		return buildRelational(rulevm.TagFollows, n.Follows, n.StopBy, index)
	case n.Precedes != nil:
		return buildRelational(rulevm.TagPrecedes, n.Precedes, n.StopBy, index)

	case n.Matches != nil:
		ref, ok := index[*n.Matches]
		if !ok {
			return nil, fmt.Errorf("matches references unknown rule %q", *n.Matches)
		}
		return &rulevm.NodeSpec{Tag: rulevm.TagMatches, Num: ref}, nil
	}
	return nil, fmt.Errorf("rule node needs exactly one operator")
}

func buildNodes(ns []NodeJSON, index map[string]uint32) ([]rulevm.NodeSpec, error) {
	out := make([]rulevm.NodeSpec, 0, len(ns))
	for i := range ns {
		child, err := buildNode(&ns[i], index)
		if err != nil {
			return nil, err
		}
		out = append(out, *child)
	}
	return out, nil
}

func buildRelational(tag rulevm.Tag, inner *NodeJSON, stopBy *json.RawMessage, index map[string]uint32) (*rulevm.NodeSpec, error) {
	child, err := buildNode(inner, index)
	if err != nil {
		return nil, err
	}
	node := &rulevm.NodeSpec{Tag: tag, Child: child, StopBy: rulevm.StopByNeighbor}

	if stopBy != nil {
		var name string
		if err := json.Unmarshal(*stopBy, &name); err == nil {
			switch name {
			case "neighbor":
				node.StopBy = rulevm.StopByNeighbor
			case "end":
				node.StopBy = rulevm.StopByEnd
			default:
				return nil, fmt.Errorf("unknown stopBy %q", name)
			}
			return node, nil
		}
		var boundary NodeJSON
		if err := json.Unmarshal(*stopBy, &boundary); err != nil {
			return nil, fmt.Errorf("invalid stopBy: %w", err)
		}
		bn, err := buildNode(&boundary, index)
		if err != nil {
			return nil, err
		}
		node.StopBy = rulevm.StopByRule
		node.StopByRule = bn
	}
	return node, nil
}
