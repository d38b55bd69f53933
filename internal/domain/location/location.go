package location

import (
	"strings"
	"time"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Kind classifies a stock-holding location
type Kind string

const (
	// KindWarehouse is the central store; at most one may be active at a time
	KindWarehouse Kind = "warehouse"
	// KindVehicle is a technician vehicle carrying rolling stock
	KindVehicle Kind = "vehicle"
	// KindSupplier is an external supplier treated as a location for transfers
	KindSupplier Kind = "supplier"
	// KindJobSite is a customer or project site holding staged stock
	KindJobSite Kind = "job_site"
	// KindOther is anything that does not fit the canonical kinds
	KindOther Kind = "other"
)

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is a known value
func (k Kind) IsValid() bool {
	switch k {
	case KindWarehouse, KindVehicle, KindSupplier, KindJobSite, KindOther:
		return true
	}
	return false
}

// NormalizeKind canonicalizes free-text legacy labels into the closed Kind
// enum. Only migration and backfill paths use this; the live write path
// accepts canonical kinds exclusively.
func NormalizeKind(raw string) Kind {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	switch s {
	case "warehouse", "main warehouse", "wh", "depot", "store", "storage":
		return KindWarehouse
	case "vehicle", "van", "truck", "car", "service vehicle", "service van":
		return KindVehicle
	case "supplier", "vendor", "wholesaler":
		return KindSupplier
	case "job site", "jobsite", "site", "project site", "customer site":
		return KindJobSite
	default:
		return KindOther
	}
}

// OwnerRef points at the external entity a location belongs to, e.g. the
// vehicle or supplier record maintained by another subsystem.
type OwnerRef struct {
	Type string
	ID   string
}

// Location is a named place stock can sit: warehouse, vehicle, supplier or
// job site. Locations are retired, never hard-deleted while the ledger or
// balances reference them. Soft-field updates follow an optimistic-version
// contract via the aggregate Version.
type Location struct {
	shared.BaseAggregateRoot
	Name      string `gorm:"type:varchar(200);not null;index:idx_location_name"`
	Kind      Kind   `gorm:"type:varchar(20);not null;index:idx_location_kind"`
	Active    bool   `gorm:"not null;default:true;index:idx_location_active"`
	OwnerType string `gorm:"type:varchar(50)"`
	OwnerID   string `gorm:"type:varchar(100)"`
	Note      string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates an active location of the given kind
func NewLocation(name string, kind Kind, owner *OwnerRef) (*Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Location name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Invalid location kind")
	}
	loc := &Location{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Kind:              kind,
		Active:            true,
	}
	if owner != nil {
		loc.OwnerType = owner.Type
		loc.OwnerID = owner.ID
	}
	return loc, nil
}

// IsActiveWarehouse returns true for the single allowed active warehouse
func (l *Location) IsActiveWarehouse() bool {
	return l.Kind == KindWarehouse && l.Active
}

// Retire deactivates the location. Retiring is idempotent and the record
// is kept forever for ledger referential integrity.
func (l *Location) Retire() {
	if !l.Active {
		return
	}
	l.Active = false
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	l.AddDomainEvent(NewLocationRetiredEvent(l))
}

// Activate re-activates a retired location. Warehouse uniqueness is enforced
// by the registry service, which sees all locations.
func (l *Location) Activate() {
	if l.Active {
		return
	}
	l.Active = true
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// Rename updates the soft fields (name, note)
func (l *Location) Rename(name, note string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Location name cannot be empty")
	}
	l.Name = strings.TrimSpace(name)
	l.Note = note
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// DeletabilityReport itemizes what blocks a hard delete so an operator can
// act on the specific cause rather than a bare failure.
type DeletabilityReport struct {
	LocationID        uuid.UUID `json:"location_id"`
	Deletable         bool      `json:"deletable"`
	NonZeroBalances   int64     `json:"non_zero_balances"`
	StockMovements    int64     `json:"stock_movements"`
	OpenPurchaseLines int64     `json:"open_purchase_lines"`
}

// BlockingReasons lists the populated blockers as strings
func (r DeletabilityReport) BlockingReasons() []string {
	reasons := make([]string, 0, 3)
	if r.NonZeroBalances > 0 {
		reasons = append(reasons, "non-zero balances reference this location")
	}
	if r.StockMovements > 0 {
		reasons = append(reasons, "ledger movements reference this location")
	}
	if r.OpenPurchaseLines > 0 {
		reasons = append(reasons, "open purchase-order lines are destined here")
	}
	return reasons
}
