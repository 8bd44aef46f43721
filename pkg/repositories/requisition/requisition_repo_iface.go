package requisition

import (
	"context"
)

// Repository defines the durable reference→requisition mapping that lets a
// redirect-based bank auth callback find its session again. The mapping is
// append-only: entries are added, never deleted.
type Repository interface {
	// Health is a simple check to verify repository works.
	Health() error
	// Disconnect gracefully closes resources. Should be safe to call on shutdown.
	Disconnect()

	// SaveMapping records referenceID → requisitionID. Saving an already
	// known reference is a no-op.
	SaveMapping(ctx context.Context, referenceID, requisitionID string) error
	// RequisitionIDByReference resolves a reference. ok=false when the
	// reference was never stored.
	RequisitionIDByReference(ctx context.Context, referenceID string) (requisitionID string, ok bool, err error)
	// AnyRequisitionID returns one stored requisition id, if any exist.
	// Used to probe the quota against a real requisition.
	AnyRequisitionID(ctx context.Context) (requisitionID string, ok bool, err error)
}
