package model

import "time"

// CallKind distinguishes the two outbound call types in the ledger.
type CallKind string

const (
	CallProxy      CallKind = "proxy"
	CallExtraction CallKind = "extraction"
)

// CallRecord tracks each outbound proxy or extraction call for cost monitoring.
// Each field has two tags:
//   - `db:"column_name"`: used by sqlx to scan database rows
//   - `json:"field_name"`: used for JSON serialization (API responses)
type CallRecord struct {
	ID           int64     `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"request_id"`
	Kind         CallKind  `db:"kind" json:"kind"`
	Target       string    `db:"target" json:"target"`
	Provider     string    `db:"provider" json:"provider"`
	Model        string    `db:"model" json:"model"`
	Success      bool      `db:"success" json:"success"`
	StatusCode   *int      `db:"status_code" json:"status_code,omitempty"`
	DurationMs   *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
