package allocation

import (
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the allocation lifecycle state
type Status string

const (
	// StatusReserved means quantity is committed but not yet drawn down
	StatusReserved Status = "reserved"
	// StatusConsumed means the full allocated quantity has been drawn down
	StatusConsumed Status = "consumed"
	// StatusCancelled means the reservation was abandoned
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusReserved, StatusConsumed, StatusCancelled:
		return true
	}
	return false
}

// LabelSource records how the allocation's item label was derived
type LabelSource string

const (
	// LabelSourceCatalogLookup means the label came from a live catalog entry
	LabelSourceCatalogLookup LabelSource = "catalog_lookup"
	// LabelSourceManualRelink means an admin repaired the catalog link by hand
	LabelSourceManualRelink LabelSource = "manual_relink"
	// LabelSourceLegacyImport means the label was carried over by migration
	LabelSourceLegacyImport LabelSource = "legacy_import"
)

// PlaceholderItemName is shown while an allocation has no resolvable catalog item
const PlaceholderItemName = "(unlinked item)"

// Allocation reserves quantity for a project or visit ahead of use. It is a
// label on stock, not a ledger event: no movement is written until the
// reservation is actually consumed. An allocation whose catalog item cannot
// be resolved stays usable but is flagged needs_relink for manual triage.
type Allocation struct {
	shared.BaseEntity
	ProjectID        *uuid.UUID  `gorm:"type:uuid;index:idx_allocation_project"`
	VisitID          *uuid.UUID  `gorm:"type:uuid;index:idx_allocation_visit"`
	ItemID           *uuid.UUID  `gorm:"type:uuid;index:idx_allocation_item"`
	ItemName         string      `gorm:"type:varchar(200);not null"`
	QtyAllocated     int64       `gorm:"not null"`
	SourceLocationID *uuid.UUID  `gorm:"type:uuid;index:idx_allocation_source"`
	Status           Status      `gorm:"type:varchar(20);not null;index:idx_allocation_status"`
	NeedsRelink      bool        `gorm:"not null;default:false;index:idx_allocation_relink"`
	LabelSource      LabelSource `gorm:"type:varchar(30);not null"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "allocations"
}

// NewAllocation creates a reserved allocation. At least one of projectID and
// visitID must be given. A nil itemID (or an unresolvable one, decided by the
// caller) produces a needs_relink allocation with a placeholder label.
func NewAllocation(projectID, visitID *uuid.UUID, itemID *uuid.UUID, itemName string, qty int64, sourceLocationID *uuid.UUID, labelSource LabelSource) (*Allocation, error) {
	if projectID == nil && visitID == nil {
		return nil, shared.NewDomainError("INVALID_TARGET", "Allocation needs a project or a visit")
	}
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocated quantity must be positive")
	}
	a := &Allocation{
		BaseEntity:       shared.NewBaseEntity(),
		ProjectID:        projectID,
		VisitID:          visitID,
		ItemID:           itemID,
		ItemName:         itemName,
		QtyAllocated:     qty,
		SourceLocationID: sourceLocationID,
		Status:           StatusReserved,
		LabelSource:      labelSource,
	}
	if itemID == nil || itemName == "" || itemName == PlaceholderItemName {
		a.NeedsRelink = true
		if a.ItemName == "" {
			a.ItemName = PlaceholderItemName
		}
	}
	return a, nil
}

// IsOpen returns true while the allocation can still be drawn down
func (a *Allocation) IsOpen() bool {
	return a.Status == StatusReserved
}

// Remaining returns the quantity not yet consumed, given the cumulative
// consumed total the tracker computed from consumption records
func (a *Allocation) Remaining(consumed int64) int64 {
	remaining := a.QtyAllocated - consumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanConsume checks the over-consumption cap against cumulative consumption
func (a *Allocation) CanConsume(qty, alreadyConsumed int64) error {
	if !a.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Allocation is not open for consumption")
	}
	if qty > a.QtyAllocated-alreadyConsumed {
		return shared.ErrOverConsumption
	}
	return nil
}

// MarkConsumed transitions the allocation to consumed once cumulative
// consumption reaches the allocated quantity
func (a *Allocation) MarkConsumed() {
	if a.Status != StatusReserved {
		return
	}
	a.Status = StatusConsumed
	a.UpdatedAt = time.Now()
}

// Cancel abandons an open reservation
func (a *Allocation) Cancel() error {
	if a.Status != StatusReserved {
		return shared.NewDomainError("INVALID_STATE", "Only reserved allocations can be cancelled")
	}
	a.Status = StatusCancelled
	a.UpdatedAt = time.Now()
	return nil
}

// Relink repairs the catalog link: sets the item and label, clears the
// needs_relink flag and records that the label came from a manual repair.
func (a *Allocation) Relink(itemID uuid.UUID, itemName string) error {
	if itemID == uuid.Nil {
		return shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if itemName == "" {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	id := itemID
	a.ItemID = &id
	a.ItemName = itemName
	a.NeedsRelink = false
	a.LabelSource = LabelSourceManualRelink
	a.UpdatedAt = time.Now()
	return nil
}

// IsOrphan returns true when the allocation lost its catalog link
func (a *Allocation) IsOrphan() bool {
	return a.NeedsRelink || a.ItemID == nil || a.ItemName == PlaceholderItemName
}
