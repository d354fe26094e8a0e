package transcript

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// InMemoryArchive keeps records in process memory
type InMemoryArchive struct {
	records []*Record
	nextID  uint
	mu      sync.RWMutex
}

// NewInMemoryArchive creates a new in-memory archive
func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{
		records: []*Record{},
		nextID:  1,
	}
}

// Append saves records to memory
func (a *InMemoryArchive) Append(ctx context.Context, records ...*Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now().UTC()
	for _, r := range records {
		if r == nil {
			return errors.New("record cannot be nil")
		}

		stored := *r
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.ID = a.nextID
		a.nextID++

		r.ID, r.CreatedAt = stored.ID, stored.CreatedAt
		a.records = append(a.records, &stored)
	}

	return nil
}

// Search performs a case-insensitive substring search across all records
func (a *InMemoryArchive) Search(ctx context.Context, query string) ([]*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var matches []*Record
	for _, r := range a.records {
		if contains(r.Content, query) {
			copied := *r
			matches = append(matches, &copied)
		}
	}

	// Newest first, like the MySQL version
	slices.SortStableFunc(matches, func(x, y *Record) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return int(y.ID) - int(x.ID)
	})

	if len(matches) > SearchLimit {
		matches = matches[:SearchLimit]
	}

	return matches, nil
}

// Session returns all records for a session in insertion order
func (a *InMemoryArchive) Session(ctx context.Context, sessionID string) ([]*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := []*Record{}
	for _, r := range a.records {
		if r.SessionID == sessionID {
			copied := *r
			records = append(records, &copied)
		}
	}

	return records, nil
}

// Close is a no-op for the in-memory archive
func (a *InMemoryArchive) Close() error {
	return nil
}

// contains performs case-insensitive substring search
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
