package models

import (
	"time"

	"gorm.io/gorm"
)

// ImportBatchStatus tracks a downloaded statement through the review flow.
type ImportBatchStatus string

const (
	ImportBatchPending   ImportBatchStatus = "pending"
	ImportBatchPreviewed ImportBatchStatus = "previewed"
)

// ImportBatch holds a raw broker trade log waiting for the user to review it.
type ImportBatch struct {
	gorm.Model
	AccountID     uint              `json:"account_id" gorm:"index"`
	Source        string            `json:"source"`
	ReferenceCode string            `json:"reference_code" gorm:"index"`
	ContentHash   string            `json:"content_hash" gorm:"index"` // sha256 of RawText
	RawText       string            `json:"-" gorm:"type:text"`
	Status        ImportBatchStatus `json:"status" gorm:"not null;default:pending"`
	FetchedAt     time.Time         `json:"fetched_at"`
}
