package models

import "errors"

var (
	// ErrVendorConflict is returned by AddItem when the item belongs to a
	// different vendor than the cart; the add is parked as PendingAdd until
	// the user confirms or cancels the switch.
	ErrVendorConflict = errors.New("item belongs to a different vendor")

	// ErrInvalidQuantity rejects zero or negative add quantities
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrMissingVendor rejects items without a vendor id; the single-vendor
	// invariant depends on every line carrying one
	ErrMissingVendor = errors.New("item has no vendor")

	// ErrNoPendingSwitch is returned when confirming a switch that was never surfaced
	ErrNoPendingSwitch = errors.New("no pending vendor switch")
)

// AddItem inserts an item into the cart. Same-vendor adds merge quantities on
// matching id+type. A cross-vendor add never mutates the item list; it records
// the request as PendingAdd and returns ErrVendorConflict.
func (c *Cart) AddItem(item CartItem, vendor VendorInfo) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.VendorID == "" {
		return ErrMissingVendor
	}

	if c.VendorID != "" && c.VendorID != item.VendorID {
		c.PendingAdd = &PendingAdd{Item: item, Vendor: vendor}
		return ErrVendorConflict
	}

	c.insert(item, vendor)
	return nil
}

// ConfirmVendorSwitch atomically replaces the cart contents with the pending
// cross-vendor add. There is no intermediate state: the cart goes from the old
// vendor's items to exactly the pending item in one step.
func (c *Cart) ConfirmVendorSwitch() error {
	if c.PendingAdd == nil {
		return ErrNoPendingSwitch
	}
	pending := *c.PendingAdd
	c.Items = nil
	c.VendorID = ""
	c.Vendor = nil
	c.PendingAdd = nil
	c.insert(pending.Item, pending.Vendor)
	return nil
}

// CancelVendorSwitch drops the pending add and keeps the current cart
func (c *Cart) CancelVendorSwitch() {
	c.PendingAdd = nil
}

// UpdateQuantity sets the quantity of a line; qty <= 0 removes it.
// Removing the last line resets the vendor binding.
func (c *Cart) UpdateQuantity(id string, itemType ItemType, qty int) {
	for i := range c.Items {
		if c.Items[i].ID == id && c.Items[i].Type == itemType {
			if qty <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = qty
			}
			break
		}
	}
	if len(c.Items) == 0 {
		c.VendorID = ""
		c.Vendor = nil
	}
}

// RemoveItem removes a line from the cart
func (c *Cart) RemoveItem(id string, itemType ItemType) {
	c.UpdateQuantity(id, itemType, 0)
}

// Clear empties the cart and drops the vendor binding
func (c *Cart) Clear() {
	c.Items = nil
	c.VendorID = ""
	c.Vendor = nil
	c.PendingAdd = nil
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal is the sum of line prices, recomputed on every read
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// DeliveryFeeOr returns the bound vendor's configured fee, or the given
// fallback when vendor metadata is absent. An empty cart owes no fee.
func (c *Cart) DeliveryFeeOr(fallback int64) int64 {
	if c.IsEmpty() {
		return 0
	}
	if c.Vendor != nil {
		return c.Vendor.DeliveryFee
	}
	return fallback
}

// TotalOr is Subtotal plus the delivery fee
func (c *Cart) TotalOr(fallbackFee int64) int64 {
	return c.Subtotal() + c.DeliveryFeeOr(fallbackFee)
}

func (c *Cart) insert(item CartItem, vendor VendorInfo) {
	for i := range c.Items {
		if c.Items[i].ID == item.ID && c.Items[i].Type == item.Type {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
	c.VendorID = item.VendorID
	v := vendor
	c.Vendor = &v
}
