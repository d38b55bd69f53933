package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKind(t *testing.T) {
	cases := map[string]Kind{
		"warehouse":       KindWarehouse,
		"Main Warehouse":  KindWarehouse,
		" WH ":            KindWarehouse,
		"depot":           KindWarehouse,
		"Vehicle":         KindVehicle,
		"van":             KindVehicle,
		"service-van":     KindVehicle,
		"TRUCK":           KindVehicle,
		"vendor":          KindSupplier,
		"supplier":        KindSupplier,
		"job_site":        KindJobSite,
		"Job Site":        KindJobSite,
		"jobsite":         KindJobSite,
		"customer site":   KindJobSite,
		"mystery shelf":   KindOther,
		"":                KindOther,
		"container yard?": KindOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeKind(raw), "raw=%q", raw)
	}
}

func TestNewLocation(t *testing.T) {
	t.Run("creates active location", func(t *testing.T) {
		loc, err := NewLocation("Van 12", KindVehicle, &OwnerRef{Type: "vehicle", ID: "VEH-12"})
		require.NoError(t, err)
		assert.True(t, loc.Active)
		assert.Equal(t, "vehicle", loc.OwnerType)
		assert.Equal(t, 1, loc.Version)
	})

	t.Run("trims name", func(t *testing.T) {
		loc, err := NewLocation("  Central  ", KindWarehouse, nil)
		require.NoError(t, err)
		assert.Equal(t, "Central", loc.Name)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewLocation("   ", KindWarehouse, nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := NewLocation("x", Kind("shed"), nil)
		assert.Error(t, err)
	})
}

func TestLocationLifecycle(t *testing.T) {
	t.Run("retire is idempotent and bumps version once", func(t *testing.T) {
		loc, err := NewLocation("Old Depot", KindWarehouse, nil)
		require.NoError(t, err)

		loc.Retire()
		assert.False(t, loc.Active)
		assert.Equal(t, 2, loc.Version)
		assert.Len(t, loc.GetDomainEvents(), 1)

		loc.Retire()
		assert.Equal(t, 2, loc.Version)
		assert.Len(t, loc.GetDomainEvents(), 1)
	})

	t.Run("activate restores a retired location", func(t *testing.T) {
		loc, err := NewLocation("Van 3", KindVehicle, nil)
		require.NoError(t, err)
		loc.Retire()
		loc.Activate()
		assert.True(t, loc.Active)
	})

	t.Run("rename bumps version", func(t *testing.T) {
		loc, err := NewLocation("Van 3", KindVehicle, nil)
		require.NoError(t, err)
		require.NoError(t, loc.Rename("Van 3 (north)", "renamed after re-fleet"))
		assert.Equal(t, 2, loc.Version)
		assert.Equal(t, "Van 3 (north)", loc.Name)
	})
}

func TestDeletabilityReport(t *testing.T) {
	t.Run("clean location has no blocking reasons", func(t *testing.T) {
		r := DeletabilityReport{Deletable: true}
		assert.Empty(t, r.BlockingReasons())
	})

	t.Run("each blocker is itemized", func(t *testing.T) {
		r := DeletabilityReport{NonZeroBalances: 2, StockMovements: 14, OpenPurchaseLines: 1}
		assert.Len(t, r.BlockingReasons(), 3)
	})
}
