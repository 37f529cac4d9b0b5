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

// CartStore persists per-session carts. The aggregate itself stays a plain
// value; persistence is injected so the cart logic is storage-agnostic.
type CartStore interface {
	LoadCart(ctx context.Context, sessionID string) (*models.Cart, error)
	SaveCart(ctx context.Context, sessionID string, cart *models.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// CartTotals is the derived pricing of a cart, recomputed on every read
type CartTotals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`
}

// CartService applies cart operations for a session and keeps the stored
// copy in sync
type CartService struct {
	store      CartStore
	defaultFee int64
	logger     *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, defaultFee int64) *CartService {
	return &CartService{
		store:      store,
		defaultFee: defaultFee,
		logger:     util.GetLogger(),
	}
}

// Get loads the session's cart; a session without one gets an empty cart
func (s *CartService) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.store.LoadCart(ctx, sessionID)
	if errors.Is(err, redisclient.ErrNotFound) {
		return &models.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem adds an item to the session's cart. A cross-vendor add is parked
// on the cart as a pending switch and reported via models.ErrVendorConflict;
// the existing items are untouched until the user confirms.
func (s *CartService) AddItem(ctx context.Context, sessionID string, item models.CartItem, vendor models.VendorInfo) (*models.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	addErr := cart.AddItem(item, vendor)
	if addErr != nil && !errors.Is(addErr, models.ErrVendorConflict) {
		return cart, addErr
	}

	if errors.Is(addErr, models.ErrVendorConflict) {
		util.VendorSwitchPromptsTotal.Inc()
		s.logger.Info("Vendor switch prompted",
			zap.String("session_id", sessionID),
			zap.String("cart_vendor", cart.VendorID),
			zap.String("item_vendor", item.VendorID))
	}

	if err := s.store.SaveCart(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, addErr
}

// ConfirmVendorSwitch atomically replaces the cart with the pending add
func (s *CartService) ConfirmVendorSwitch(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := cart.ConfirmVendorSwitch(); err != nil {
		return cart, err
	}
	util.VendorSwitchConfirmedTotal.Inc()

	if err := s.store.SaveCart(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// CancelVendorSwitch keeps the current cart and drops the pending add
func (s *CartService) CancelVendorSwitch(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.CancelVendorSwitch()

	if err := s.store.SaveCart(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// UpdateQuantity sets a line's quantity; qty <= 0 removes the line
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, itemID string, itemType models.ItemType, qty int) (*models.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.UpdateQuantity(itemID, itemType, qty)

	if err := s.store.SaveCart(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemoveItem deletes a line from the session's cart
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string, itemType models.ItemType) (*models.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(itemID, itemType)

	if err := s.store.SaveCart(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// Clear empties the session's cart
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteCart(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Totals computes the derived pricing for a cart
func (s *CartService) Totals(cart *models.Cart) CartTotals {
	return CartTotals{
		Subtotal:    cart.Subtotal(),
		DeliveryFee: cart.DeliveryFeeOr(s.defaultFee),
		Total:       cart.TotalOr(s.defaultFee),
	}
}
