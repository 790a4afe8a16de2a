package format

import (
	"encoding/json"
	"io"

	"github.com/teamchong/codesift/rulevm"
	"github.com/teamchong/codesift/scan"
)

// SARIF 2.1.0 output, one run with one result per match.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
}

func sarifLevel(s rulevm.Severity) string {
	switch s {
	case rulevm.SeverityError:
		return "error"
	case rulevm.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// SARIF writes results as a SARIF 2.1.0 log.
func SARIF(w io.Writer, results []scan.FileResult) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "codesift", Rules: []sarifRule{}}},
		Results: []sarifResult{},
	}

	seenRules := map[string]bool{}
	for _, res := range results {
		for fi := range res.Findings {
			f := &res.Findings[fi]
			if !seenRules[f.Rule.ID] {
				seenRules[f.Rule.ID] = true
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               f.Rule.ID,
					ShortDescription: sarifMessage{Text: f.Rule.Message},
				})
			}
			for mi := 0; mi < f.Matches.Len(); mi++ {
				m := f.Matches.At(mi)
				run.Results = append(run.Results, sarifResult{
					RuleID:  f.Rule.ID,
					Level:   sarifLevel(f.Rule.Severity),
					Message: sarifMessage{Text: f.Rule.Message},
					Locations: []sarifLocation{{
						PhysicalLocation: sarifPhysicalLocation{
							ArtifactLocation: sarifArtifactLocation{URI: res.File},
							Region: sarifRegion{
								StartLine:   m.Range.Start.Row + 1,
								StartColumn: m.Range.Start.Col + 1,
								EndLine:     m.Range.End.Row + 1,
								EndColumn:   m.Range.End.Col + 1,
							},
						},
					}},
				})
			}
		}
	}

	log := sarifLog{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}
