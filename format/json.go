package format

import (
	"encoding/json"
	"io"

	"github.com/teamchong/codesift/codec"
	"github.com/teamchong/codesift/scan"
)

// FileFindings wraps one file's findings for JSON output.
type FileFindings struct {
	File     string              `json:"file"`
	Error    string              `json:"error,omitempty"`
	Findings []codec.FindingJSON `json:"findings"`
}

// JSON writes results as an array of per-file finding objects.
func JSON(w io.Writer, results []scan.FileResult) error {
	out := make([]FileFindings, 0, len(results))
	for _, res := range results {
		entry := FileFindings{File: res.File, Findings: []codec.FindingJSON{}}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		for i := range res.Findings {
			entry.Findings = append(entry.Findings, codec.FindingToJSON(&res.Findings[i]))
		}
		out = append(out, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
