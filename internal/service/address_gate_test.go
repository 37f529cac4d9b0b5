package service

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAddressCoveredAdoptsZoneNames(t *testing.T) {
	zone := &models.Zone{City: "Dakar", Neighborhood: "Plateau"}
	gate := NewAddressGate(newMemAddressStore(), &stubChecker{
		result: &models.CoverageResult{IsCovered: true, NearestZone: zone},
	})

	addr, err := gate.SetAddress(context.Background(), "s1", models.DeliveryAddress{
		FormattedAddress: "12 Rue Carnot",
		Latitude:         14.6937,
		Longitude:        -17.4441,
		AdditionalInfo:   "blue gate",
	})

	require.NoError(t, err)
	assert.True(t, addr.IsZoneCovered)
	assert.Equal(t, "Dakar", addr.City)
	assert.Equal(t, "Plateau", addr.Neighborhood)
}

func TestSetAddressUncoveredIsStoredBlocked(t *testing.T) {
	gate := NewAddressGate(newMemAddressStore(), &stubChecker{
		result: &models.CoverageResult{IsCovered: false},
	})
	ctx := context.Background()

	addr, err := gate.SetAddress(ctx, "s1", models.DeliveryAddress{
		FormattedAddress: "Far away",
		Latitude:         16.0,
		Longitude:        -16.0,
	})

	require.NoError(t, err)
	assert.False(t, addr.IsZoneCovered)

	// the selection is kept so the user sees what was rejected
	stored, err := gate.GetAddress(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Far away", stored.FormattedAddress)
	assert.False(t, stored.IsZoneCovered)
}

func TestSetAddressRevalidatesOnEveryChange(t *testing.T) {
	checker := &stubChecker{result: &models.CoverageResult{
		IsCovered:   true,
		NearestZone: &models.Zone{City: "Dakar", Neighborhood: "Plateau"},
	}}
	gate := NewAddressGate(newMemAddressStore(), checker)
	ctx := context.Background()

	addr, err := gate.SetAddress(ctx, "s1", models.DeliveryAddress{FormattedAddress: "A"})
	require.NoError(t, err)
	require.True(t, addr.IsZoneCovered)

	// coverage flips when the user moves the pin outside the zones
	checker.result = &models.CoverageResult{IsCovered: false}

	addr, err = gate.SetAddress(ctx, "s1", models.DeliveryAddress{FormattedAddress: "B"})
	require.NoError(t, err)
	assert.False(t, addr.IsZoneCovered)
}

func TestGetAddressUnsetReturnsNil(t *testing.T) {
	gate := NewAddressGate(newMemAddressStore(), &stubChecker{})

	addr, err := gate.GetAddress(context.Background(), "s1")

	require.NoError(t, err)
	assert.Nil(t, addr)
}
