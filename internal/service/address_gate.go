package service

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// AddressStore persists the session's selected delivery address
type AddressStore interface {
	LoadAddress(ctx context.Context, sessionID string) (*models.DeliveryAddress, error)
	SaveAddress(ctx context.Context, sessionID string, addr *models.DeliveryAddress) error
}

// CoverageChecker decides whether a coordinate is deliverable
type CoverageChecker interface {
	CheckZoneCoverage(ctx context.Context, lat, lng float64) (*models.CoverageResult, error)
}

// AddressGate owns the session's delivery address and the deliverability
// flag that must be true before checkout is allowed
type AddressGate struct {
	store   AddressStore
	checker CoverageChecker
	logger  *zap.Logger
}

// NewAddressGate creates a new address gate
func NewAddressGate(store AddressStore, checker CoverageChecker) *AddressGate {
	return &AddressGate{
		store:   store,
		checker: checker,
		logger:  util.GetLogger(),
	}
}

// SetAddress re-validates zone coverage for the candidate coordinates before
// accepting it. A covered address adopts the nearest zone's city and
// neighborhood; an uncovered one is stored as given with IsZoneCovered false
// so the user sees what they selected and why it is blocked.
func (g *AddressGate) SetAddress(ctx context.Context, sessionID string, candidate models.DeliveryAddress) (*models.DeliveryAddress, error) {
	ctx, span := util.StartSpan(ctx, "AddressGate.SetAddress")
	defer span.End()

	coverage, err := g.checker.CheckZoneCoverage(ctx, candidate.Latitude, candidate.Longitude)
	if err != nil {
		return nil, fmt.Errorf("zone coverage check failed: %w", err)
	}

	candidate.IsZoneCovered = coverage.IsCovered
	if coverage.IsCovered && coverage.NearestZone != nil {
		candidate.City = coverage.NearestZone.City
		candidate.Neighborhood = coverage.NearestZone.Neighborhood
	}

	if err := g.store.SaveAddress(ctx, sessionID, &candidate); err != nil {
		return nil, fmt.Errorf("failed to save address: %w", err)
	}

	g.logger.Info("Delivery address set",
		zap.String("session_id", sessionID),
		zap.Bool("zone_covered", candidate.IsZoneCovered))

	return &candidate, nil
}

// GetAddress returns the session's address, or nil when none is set
func (g *AddressGate) GetAddress(ctx context.Context, sessionID string) (*models.DeliveryAddress, error) {
	addr, err := g.store.LoadAddress(ctx, sessionID)
	if errors.Is(err, redisclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return addr, nil
}
