package txcache

import (
	"context"
	"time"
)

// Entry is one cached transaction batch for a requisition. Data holds the
// JSON-encoded booked transactions exactly as last fetched.
type Entry struct {
	RequisitionID string    `json:"requisition_id"`
	Data          []byte    `json:"data"`
	Timestamp     time.Time `json:"timestamp"`
}

// Repository is the persisted transaction cache. Entries are overwritten
// wholesale on every successful fetch and never evicted by age: staleness is
// a read-time judgment made by the caller, because refusing to serve old
// data would waste the provider's 4-calls/day quota.
type Repository interface {
	// Health is a simple check to verify repository works.
	Health() error
	// Disconnect gracefully closes resources. Should be safe to call on shutdown.
	Disconnect()

	// Get returns the entry for a requisition regardless of its age,
	// or nil when none exists.
	Get(ctx context.Context, requisitionID string) (*Entry, error)
	// Set overwrites the entry for a requisition with data and a fresh
	// timestamp.
	Set(ctx context.Context, requisitionID string, data []byte) error
}
