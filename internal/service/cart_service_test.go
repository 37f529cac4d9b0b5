package service

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartItem(id, vendorID string, price int64, qty int) models.CartItem {
	return models.CartItem{
		ID:        id,
		Type:      models.ItemTypeProduct,
		Name:      "item " + id,
		UnitPrice: price,
		Quantity:  qty,
		VendorID:  vendorID,
	}
}

func cartVendor(id string, fee int64) models.VendorInfo {
	return models.VendorInfo{ID: id, Name: "vendor " + id, DeliveryFee: fee}
}

func TestCartServiceGetReturnsEmptyCartForNewSession(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)

	cart, err := svc.Get(context.Background(), "s1")

	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartServiceAddPersistsAcrossLoads(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 2), cartVendor("V1", 750))
	require.NoError(t, err)

	cart, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "V1", cart.VendorID)
}

func TestCartServiceVendorConflictPersistsPendingAdd(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 1), cartVendor("V1", 750))
	require.NoError(t, err)

	cart, err := svc.AddItem(ctx, "s1", cartItem("p2", "V2", 900, 1), cartVendor("V2", 500))
	assert.ErrorIs(t, err, models.ErrVendorConflict)
	require.NotNil(t, cart.PendingAdd)

	// the pending switch survives a reload, so the confirm call can act on it
	reloaded, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, reloaded.PendingAdd)
	assert.Equal(t, "p2", reloaded.PendingAdd.Item.ID)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "p1", reloaded.Items[0].ID)
}

func TestCartServiceConfirmVendorSwitch(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 1), cartVendor("V1", 750))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", cartItem("p2", "V2", 900, 1), cartVendor("V2", 500))
	require.ErrorIs(t, err, models.ErrVendorConflict)

	cart, err := svc.ConfirmVendorSwitch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "V2", cart.VendorID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ID)
	assert.Nil(t, cart.PendingAdd)
}

func TestCartServiceConfirmWithoutPendingSwitch(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)

	_, err := svc.ConfirmVendorSwitch(context.Background(), "s1")
	assert.ErrorIs(t, err, models.ErrNoPendingSwitch)
}

func TestCartServiceCancelVendorSwitchKeepsCart(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 1), cartVendor("V1", 750))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", cartItem("p2", "V2", 900, 1), cartVendor("V2", 500))
	require.ErrorIs(t, err, models.ErrVendorConflict)

	cart, err := svc.CancelVendorSwitch(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, cart.PendingAdd)
	assert.Equal(t, "V1", cart.VendorID)

	reloaded, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, reloaded.PendingAdd)
}

func TestCartServiceRemoveItem(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 1), cartVendor("V1", 750))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", cartItem("p2", "V1", 900, 1), cartVendor("V1", 750))
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "s1", "p1", models.ItemTypeProduct)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ID)

	cart, err = svc.RemoveItem(ctx, "s1", "p2", models.ItemTypeProduct)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Empty(t, cart.VendorID)
}

func TestCartServiceClear(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 1), cartVendor("V1", 750))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "s1"))

	cart, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartServiceTotalsUseVendorFee(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "s1", cartItem("p1", "V1", 500, 2), cartVendor("V1", 750))
	require.NoError(t, err)

	totals := svc.Totals(cart)
	assert.Equal(t, int64(1000), totals.Subtotal)
	assert.Equal(t, int64(750), totals.DeliveryFee)
	assert.Equal(t, int64(1750), totals.Total)
}

func TestCartServiceTotalsEmptyCart(t *testing.T) {
	svc := NewCartService(newMemCartStore(), 1000)

	totals := svc.Totals(&models.Cart{})
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.DeliveryFee)
	assert.Zero(t, totals.Total)
}
