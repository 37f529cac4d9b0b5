package service

import (
	"context"
	"fmt"
	"math"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// zoneSource provides the configured delivery zones
type zoneSource interface {
	GetZones(ctx context.Context) ([]models.Zone, error)
}

// ZoneService answers whether a coordinate lies inside a deliverable zone
type ZoneService struct {
	zones  zoneSource
	logger *zap.Logger
}

// NewZoneService creates a new zone service
func NewZoneService(zones zoneSource) *ZoneService {
	return &ZoneService{
		zones:  zones,
		logger: util.GetLogger(),
	}
}

// CheckZoneCoverage finds the nearest zone to the given point and reports
// whether the point falls inside its radius
func (z *ZoneService) CheckZoneCoverage(ctx context.Context, lat, lng float64) (*models.CoverageResult, error) {
	ctx, span := util.StartSpan(ctx, "ZoneService.CheckZoneCoverage")
	defer span.End()

	zones, err := z.zones.GetZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	var nearest *models.Zone
	nearestDist := math.MaxFloat64
	for i := range zones {
		dist := haversineMeters(lat, lng, zones[i].Latitude, zones[i].Longitude)
		if dist < nearestDist {
			nearestDist = dist
			nearest = &zones[i]
		}
	}

	result := &models.CoverageResult{}
	if nearest != nil && nearestDist <= nearest.RadiusMeters {
		result.IsCovered = true
		result.NearestZone = nearest
	}

	util.ZoneChecksTotal.WithLabelValues(fmt.Sprintf("%t", result.IsCovered)).Inc()
	z.logger.Debug("Zone coverage checked",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.Bool("covered", result.IsCovered))

	return result, nil
}

const earthRadiusMeters = 6371000

// haversineMeters is the great-circle distance between two coordinates
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
