package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanRun records one ruleset scan over a file tree.
type ScanRun struct {
	ID        string    `gorm:"primaryKey;type:varchar(20)"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time

	// Scan parameters
	Root      string `gorm:"type:text;not null"`
	RulesPath string `gorm:"type:text"`
	RuleCount int    `gorm:"default:0"`

	// Totals
	FilesScanned int `gorm:"default:0"`
	FilesFailed  int `gorm:"default:0"`
	MatchCount   int `gorm:"default:0"`

	// Client info
	ClientInfo datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	Findings []Finding `gorm:"foreignKey:ScanRunID"`
}

// Finding records one surviving rule match inside a scan run.
type Finding struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ScanRunID string `gorm:"type:varchar(20);index;not null"`

	// Rule identity
	RuleID   string `gorm:"type:varchar(255);index;not null"`
	Severity string `gorm:"type:varchar(10);not null"`
	Message  string `gorm:"type:text"`

	// Location
	File      string `gorm:"type:text;not null"`
	StartByte uint32 `gorm:"not null"`
	EndByte   uint32 `gorm:"not null"`
	StartRow  uint32
	StartCol  uint32
	EndRow    uint32
	EndCol    uint32

	// Captures and fix
	Bindings datatypes.JSON `gorm:"type:jsonb"`
	Fix      string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName customizations for cleaner names
func (ScanRun) TableName() string { return "scan_runs" }
func (Finding) TableName() string { return "findings" }
