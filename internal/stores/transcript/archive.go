// Package transcript keeps an append-only, searchable record of transcript
// entries across sessions
package transcript

import (
	"context"
	"time"
)

// SearchLimit caps the number of records a search returns
const SearchLimit = 50

// Record is one archived transcript entry
type Record struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`

	SessionID string `json:"session_id" gorm:"size:128;not null;index"`
	Source    string `json:"source" gorm:"size:255"`
	Role      string `json:"role" gorm:"size:16;not null"`
	Content   string `json:"content" gorm:"type:text;not null"`
}

// TableName sets the table used for records
func (Record) TableName() string {
	return "transcript_records"
}

// Archive stores transcript records
type Archive interface {
	// Append stores records in order
	Append(ctx context.Context, records ...*Record) error

	// Search returns the newest records whose content contains query, case
	// insensitively, at most SearchLimit of them
	Search(ctx context.Context, query string) ([]*Record, error)

	// Session returns every record of one session in insertion order
	Session(ctx context.Context, sessionID string) ([]*Record, error)

	// Close releases the archive's resources
	Close() error
}
