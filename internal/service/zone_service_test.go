package service

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Plateau and Almadies, roughly 9km apart
var testZones = []models.Zone{
	{ID: 1, Name: "Plateau", City: "Dakar", Neighborhood: "Plateau",
		Latitude: 14.6708, Longitude: -17.4315, RadiusMeters: 3000},
	{ID: 2, Name: "Almadies", City: "Dakar", Neighborhood: "Almadies",
		Latitude: 14.7447, Longitude: -17.5117, RadiusMeters: 2500},
}

func TestCheckZoneCoverageInsideZone(t *testing.T) {
	svc := NewZoneService(&stubZoneSource{zones: testZones})

	// a point a few hundred meters from the Plateau center
	result, err := svc.CheckZoneCoverage(context.Background(), 14.6720, -17.4330)

	require.NoError(t, err)
	assert.True(t, result.IsCovered)
	require.NotNil(t, result.NearestZone)
	assert.Equal(t, "Plateau", result.NearestZone.Neighborhood)
}

func TestCheckZoneCoveragePicksNearestZone(t *testing.T) {
	svc := NewZoneService(&stubZoneSource{zones: testZones})

	result, err := svc.CheckZoneCoverage(context.Background(), 14.7450, -17.5120)

	require.NoError(t, err)
	assert.True(t, result.IsCovered)
	require.NotNil(t, result.NearestZone)
	assert.Equal(t, "Almadies", result.NearestZone.Neighborhood)
}

func TestCheckZoneCoverageOutsideAllZones(t *testing.T) {
	svc := NewZoneService(&stubZoneSource{zones: testZones})

	// Thies, ~60km east of Dakar
	result, err := svc.CheckZoneCoverage(context.Background(), 14.7886, -16.9246)

	require.NoError(t, err)
	assert.False(t, result.IsCovered)
	assert.Nil(t, result.NearestZone)
}

func TestCheckZoneCoverageNoZonesConfigured(t *testing.T) {
	svc := NewZoneService(&stubZoneSource{})

	result, err := svc.CheckZoneCoverage(context.Background(), 14.6708, -17.4315)

	require.NoError(t, err)
	assert.False(t, result.IsCovered)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Plateau to Almadies centers
	dist := haversineMeters(14.6708, -17.4315, 14.7447, -17.5117)

	assert.InDelta(t, 11900, dist, 1500)

	assert.Zero(t, haversineMeters(14.6708, -17.4315, 14.6708, -17.4315))
}
