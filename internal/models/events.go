package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypePaymentOrphaned = "PAYMENT_ORPHANED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published once per created order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       int64         `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	VendorID      string        `json:"vendor_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Total         int64         `json:"total"`
}

// PaymentOrphanedEvent is published when a payment settled at the provider
// but no order could be created for it. This is an operational alert, not a
// retryable client error; support follows up manually.
type PaymentOrphanedEvent struct {
	BaseEvent
	PaymentID     string        `json:"payment_id"`
	Method        PaymentMethod `json:"method"`
	Amount        int64         `json:"amount"`
	CustomerPhone string        `json:"customer_phone"`
}

// PaymentNotification is a provider-side status push mirrored onto Kafka by
// the webhook edge. It can race the client's status polling; order creation
// stays at-most-once either way.
type PaymentNotification struct {
	PaymentID    string        `json:"payment_id"`
	Status       PaymentStatus `json:"status"`
	ProviderTxID string        `json:"provider_tx_id,omitempty"`
	ReceivedAt   time.Time     `json:"received_at"`
}
