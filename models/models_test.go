package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanRunTableName(t *testing.T) {
	assert.Equal(t, "scan_runs", ScanRun{}.TableName())
}

func TestFindingTableName(t *testing.T) {
	assert.Equal(t, "findings", Finding{}.TableName())
}
