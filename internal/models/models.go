package models

import "time"

// PaymentMethod identifies how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodWave        PaymentMethod = "wave"
	PaymentMethodOrangeMoney PaymentMethod = "orange_money"
)

// IsMobileMoney reports whether the method settles through an external provider
func (m PaymentMethod) IsMobileMoney() bool {
	return m == PaymentMethodWave || m == PaymentMethodOrangeMoney
}

// PaymentStatus is the provider-side state of a payment intent
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
)

// IsTerminal reports whether the provider can no longer change this status
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed ||
		s == PaymentStatusCancelled || s == PaymentStatusExpired
}

// ItemType distinguishes single products from bundled packs
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypePack    ItemType = "pack"
)

// CartItem is one line in a cart. UnitPrice is in integer currency units.
type CartItem struct {
	ID        string   `json:"id"`
	Type      ItemType `json:"type"`
	Name      string   `json:"name"`
	UnitPrice int64    `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	VendorID  string   `json:"vendor_id"`
}

// VendorInfo is the metadata of the vendor a cart is bound to
type VendorInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DeliveryFee int64  `json:"delivery_fee"`
}

// PendingAdd is a cross-vendor add awaiting explicit user confirmation
type PendingAdd struct {
	Item   CartItem   `json:"item"`
	Vendor VendorInfo `json:"vendor"`
}

// Cart holds the line items of a single vendor. All items share VendorID;
// VendorID is empty exactly when the cart is empty.
type Cart struct {
	Items      []CartItem  `json:"items"`
	VendorID   string      `json:"vendor_id"`
	Vendor     *VendorInfo `json:"vendor,omitempty"`
	PendingAdd *PendingAdd `json:"pending_add,omitempty"`
}

// DeliveryAddress is the currently selected delivery destination.
// AdditionalInfo is the free-text landmark the courier navigates by.
type DeliveryAddress struct {
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city"`
	Neighborhood     string  `json:"neighborhood"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	AdditionalInfo   string  `json:"additional_info"`
	IsZoneCovered    bool    `json:"is_zone_covered"`
}

// HasAddress reports whether enough of the address is present to deliver to
func (a *DeliveryAddress) HasAddress() bool {
	if a == nil {
		return false
	}
	return a.FormattedAddress != "" || (a.City != "" && a.Neighborhood != "")
}

// Zone is a deliverable service area stored as a center point plus radius
type Zone struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	City         string  `db:"city" json:"city"`
	Neighborhood string  `db:"neighborhood" json:"neighborhood"`
	Latitude     float64 `db:"latitude" json:"latitude"`
	Longitude    float64 `db:"longitude" json:"longitude"`
	RadiusMeters float64 `db:"radius_meters" json:"radius_meters"`
}

// PaymentIntent is the provider-side record of a mobile-money charge.
// The order draft is embedded so reconciliation can create the order later.
type PaymentIntent struct {
	ID            string        `db:"id" json:"id"`
	Amount        int64         `db:"amount" json:"amount"`
	Method        PaymentMethod `db:"method" json:"method"`
	CustomerPhone string        `db:"customer_phone" json:"customer_phone"`
	Status        PaymentStatus `db:"status" json:"status"`
	OrderDraft    []byte        `db:"order_draft" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Order is a confirmed customer order
type Order struct {
	ID              int64         `db:"id" json:"id"`
	OrderNumber     string        `db:"order_number" json:"order_number"`
	VendorID        string        `db:"vendor_id" json:"vendor_id"`
	Status          string        `db:"status" json:"status"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"payment_method"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone,omitempty"`
	Subtotal        int64         `db:"subtotal" json:"subtotal"`
	DeliveryFee     int64         `db:"delivery_fee" json:"delivery_fee"`
	Discount        int64         `db:"discount" json:"discount"`
	Total           int64         `db:"total" json:"total"`
	AddressJSON     []byte        `db:"delivery_address" json:"-"`
	PaymentIntentID *string       `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	IdempotencyKey  string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// OrderItem is one line of a confirmed order
type OrderItem struct {
	ID        int64    `db:"id" json:"id"`
	OrderID   int64    `db:"order_id" json:"order_id"`
	ItemID    string   `db:"item_id" json:"item_id"`
	ItemType  ItemType `db:"item_type" json:"item_type"`
	Name      string   `db:"name" json:"name"`
	Quantity  int      `db:"quantity" json:"quantity"`
	UnitPrice int64    `db:"unit_price" json:"unit_price"`
}

// Stock is the sellable quantity of an item
type Stock struct {
	ItemID    string    `db:"item_id" json:"item_id"`
	ItemType  ItemType  `db:"item_type" json:"item_type"`
	Name      string    `db:"name" json:"name"`
	Available int       `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderDraft is the immutable snapshot of a checkout attempt, taken at submit
// time and carried through payment initiation and order creation.
type OrderDraft struct {
	VendorID        string          `json:"vendor_id"`
	VendorName      string          `json:"vendor_name"`
	Items           []CartItem      `json:"items"`
	DeliveryAddress DeliveryAddress `json:"delivery_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	Subtotal        int64           `json:"subtotal"`
	DeliveryFee     int64           `json:"delivery_fee"`
	Discount        int64           `json:"discount"`
	Total           int64           `json:"total"`
}

// OutOfStockInfo names the item that blocked an order and what remains
type OutOfStockInfo struct {
	ItemName       string `json:"item_name"`
	AvailableStock int    `json:"available_stock"`
}

// CoverageResult is the outcome of a zone coverage check
type CoverageResult struct {
	IsCovered   bool  `json:"is_covered"`
	NearestZone *Zone `json:"nearest_zone,omitempty"`
}
