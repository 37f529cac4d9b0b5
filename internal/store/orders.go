package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"checkout-service/internal/models"

	"github.com/lib/pq"
)

// ErrOrderExists signals that an order for the same payment intent or
// idempotency key was created concurrently; the caller should fetch it.
var ErrOrderExists = errors.New("order already exists for this payment reference")

// OutOfStockError carries the offending item so the user can edit the cart
type OutOfStockError struct {
	Info models.OutOfStockInfo
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d available", e.Info.ItemName, e.Info.AvailableStock)
}

const uniqueViolation = "23505"

// CreateOrderTx creates an order from a draft in a single transaction:
// stock rows are locked and decremented, then the order and its items are
// inserted. The unique constraints on payment_intent_id and idempotency_key
// are the at-most-once arbiter; a violation maps to ErrOrderExists so racing
// creators converge on the first writer's order.
func (s *Store) CreateOrderTx(ctx context.Context, draft *models.OrderDraft, paymentIntentID *string, idempotencyKey string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, item := range draft.Items {
		var stock models.Stock
		err := tx.GetContext(ctx, &stock,
			"SELECT * FROM stock WHERE item_id = $1 AND item_type = $2 FOR UPDATE",
			item.ID, item.Type)
		if err == sql.ErrNoRows {
			return nil, &OutOfStockError{Info: models.OutOfStockInfo{ItemName: item.Name, AvailableStock: 0}}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock stock for %s: %w", item.ID, err)
		}

		if stock.Available < item.Quantity {
			return nil, &OutOfStockError{Info: models.OutOfStockInfo{
				ItemName:       stock.Name,
				AvailableStock: stock.Available,
			}}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE stock SET available = available - $1, updated_at = NOW() WHERE item_id = $2 AND item_type = $3",
			item.Quantity, item.ID, item.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for %s: %w", item.ID, err)
		}
	}

	addressJSON, err := json.Marshal(draft.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery address: %w", err)
	}

	order := &models.Order{
		VendorID:        draft.VendorID,
		Status:          models.OrderStatusConfirmed,
		PaymentMethod:   draft.PaymentMethod,
		CustomerPhone:   draft.CustomerPhone,
		Subtotal:        draft.Subtotal,
		DeliveryFee:     draft.DeliveryFee,
		Discount:        draft.Discount,
		Total:           draft.Total,
		AddressJSON:     addressJSON,
		PaymentIntentID: paymentIntentID,
		IdempotencyKey:  idempotencyKey,
	}

	query := `
		INSERT INTO orders (vendor_id, status, payment_method, customer_phone,
			subtotal, delivery_fee, discount, total, delivery_address,
			payment_intent_id, idempotency_key, order_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '')
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.VendorID, order.Status, order.PaymentMethod, order.CustomerPhone,
		order.Subtotal, order.DeliveryFee, order.Discount, order.Total,
		order.AddressJSON, order.PaymentIntentID, order.IdempotencyKey)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrOrderExists
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	order.OrderNumber = fmt.Sprintf("YON-%d", order.ID)
	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET order_number = $1 WHERE id = $2", order.OrderNumber, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set order number: %w", err)
	}

	for _, item := range draft.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, item_type, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.ID, item.Type, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	return order, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentIntentID retrieves the order created for a payment intent,
// or nil when none exists
func (s *Store) GetOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE payment_intent_id = $1", paymentIntentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, or nil
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// CreatePaymentIntent persists a payment intent with its embedded order draft
func (s *Store) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	query := `
		INSERT INTO payment_intents (id, amount, method, customer_phone, status, order_draft)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return s.db.GetContext(ctx, intent, query,
		intent.ID, intent.Amount, intent.Method, intent.CustomerPhone,
		intent.Status, intent.OrderDraft)
}

// GetPaymentIntent retrieves a payment intent by id
func (s *Store) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.db.GetContext(ctx, &intent, "SELECT * FROM payment_intents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment intent not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// UpdatePaymentIntentStatus updates the observed provider status of an intent
func (s *Store) UpdatePaymentIntentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payment_intents SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id)
	return err
}
