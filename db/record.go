package db

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teamchong/codesift/models"
	"github.com/teamchong/codesift/scan"
)

// newRunID returns a short random run identifier.
func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return "run-" + hex.EncodeToString(b[:])
}

// RecordScan persists one scan's results and returns the stored run.
func RecordScan(db *gorm.DB, root, rulesPath string, ruleCount int, results []scan.FileResult) (*models.ScanRun, error) {
	run := &models.ScanRun{
		ID:        newRunID(),
		Root:      root,
		RulesPath: rulesPath,
		RuleCount: ruleCount,
	}

	for _, res := range results {
		run.FilesScanned++
		if res.Err != nil {
			run.FilesFailed++
			continue
		}
		for fi := range res.Findings {
			f := &res.Findings[fi]
			for mi := 0; mi < f.Matches.Len(); mi++ {
				m := f.Matches.At(mi)
				run.MatchCount++

				bindings := make(map[string]string, m.Bindings.Len())
				for bi := 0; bi < m.Bindings.Len(); bi++ {
					b := m.Bindings.At(bi)
					bindings[b.Name] = b.Text
				}
				encoded, err := json.Marshal(bindings)
				if err != nil {
					return nil, fmt.Errorf("encode bindings: %w", err)
				}

				run.Findings = append(run.Findings, models.Finding{
					RuleID:    f.Rule.ID,
					Severity:  f.Rule.Severity.String(),
					Message:   f.Rule.Message,
					File:      res.File,
					StartByte: m.Range.StartByte,
					EndByte:   m.Range.EndByte,
					StartRow:  m.Range.Start.Row,
					StartCol:  m.Range.Start.Col,
					EndRow:    m.Range.End.Row,
					EndCol:    m.Range.End.Col,
					Bindings:  datatypes.JSON(encoded),
					Fix:       f.Rule.Fix,
				})
			}
		}
	}

	now := time.Now()
	run.EndedAt = &now
	if err := db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("store scan run: %w", err)
	}
	return run, nil
}
