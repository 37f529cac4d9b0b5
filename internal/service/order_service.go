package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderStore is the slice of the database store the order service uses
type orderStore interface {
	CreateOrderTx(ctx context.Context, draft *models.OrderDraft, paymentIntentID *string, idempotencyKey string) (*models.Order, error)
	GetOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
	UpdatePaymentIntentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// eventPublisher is the slice of the broker the order service uses
type eventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishPaymentOrphaned(ctx context.Context, event *models.PaymentOrphanedEvent) error
}

// PaymentResult is a reconciled observation for one payment id. OrderID is
// zero when the provider reported paid but no order exists (orphaned
// success). TimedOut marks an exhausted polling budget, not a provider
// status.
type PaymentResult struct {
	PaymentID   string
	Status      models.PaymentStatus
	OrderID     int64
	OrderNumber string
	TimedOut    bool
}

// OrderService is the sole writer of order records. At-most-once creation
// per payment reference is enforced by the store's uniqueness constraints,
// never by callers coordinating among themselves.
type OrderService struct {
	store     orderStore
	gateway   PaymentGateway
	publisher eventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store orderStore, gateway PaymentGateway, publisher eventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateCashOrder creates an order paid on delivery. The idempotency key
// de-duplicates client retries of the same submission.
func (s *OrderService) CreateCashOrder(ctx context.Context, draft *models.OrderDraft, idempotencyKey string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateCashOrder")
	defer span.End()

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", idempotencyKey),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}

	order, err := s.store.CreateOrderTx(ctx, draft, nil, idempotencyKey)
	if errors.Is(err, store.ErrOrderExists) {
		return s.store.GetOrderByIdempotencyKey(ctx, idempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	s.recordCreated(ctx, order)
	return order, nil
}

// RecordPaymentIntent persists a freshly initiated payment intent together
// with its order draft, so reconciliation can create the order later
func (s *OrderService) RecordPaymentIntent(ctx context.Context, paymentID string, draft *models.OrderDraft) error {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal order draft: %w", err)
	}

	intent := &models.PaymentIntent{
		ID:            paymentID,
		Amount:        draft.Total,
		Method:        draft.PaymentMethod,
		CustomerPhone: draft.CustomerPhone,
		Status:        models.PaymentStatusPending,
		OrderDraft:    draftJSON,
	}
	return s.store.CreatePaymentIntent(ctx, intent)
}

// CreateOrderForPayment creates the order for a settled payment intent,
// exactly once. Racing creators (a client poll and a provider notification)
// both land here; the unique constraint on payment_intent_id decides the
// winner and the loser returns the winner's order.
func (s *OrderService) CreateOrderForPayment(ctx context.Context, paymentID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrderForPayment")
	defer span.End()

	existing, err := s.store.GetOrderByPaymentIntentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing order: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	intent, err := s.store.GetPaymentIntent(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment intent: %w", err)
	}

	var draft models.OrderDraft
	if err := json.Unmarshal(intent.OrderDraft, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order draft: %w", err)
	}

	pid := paymentID
	order, err := s.store.CreateOrderTx(ctx, &draft, &pid, paymentID)
	if errors.Is(err, store.ErrOrderExists) {
		return s.store.GetOrderByPaymentIntentID(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}

	s.recordCreated(ctx, order)
	return order, nil
}

// MarkPaymentStatus records a provider-reported status for an intent without
// asking the provider again. Used by the notification worker for terminal
// failure notifications.
func (s *OrderService) MarkPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	return s.store.UpdatePaymentIntentStatus(ctx, paymentID, status)
}

// ReconcilePayment makes one status observation for a payment: ask the
// provider, and on paid make sure the order exists. A paid payment whose
// order cannot be created is reported with a zero OrderID and escalated as
// an operational alert; it is not retried here.
func (s *OrderService) ReconcilePayment(ctx context.Context, paymentID string) (*PaymentResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ReconcilePayment")
	defer span.End()

	intent, err := s.store.GetPaymentIntent(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment intent: %w", err)
	}

	status, err := s.gateway.CheckPaymentStatus(ctx, intent.Method, paymentID)
	if err != nil {
		return nil, err
	}

	if status.Status != intent.Status {
		if err := s.store.UpdatePaymentIntentStatus(ctx, paymentID, status.Status); err != nil {
			s.logger.Error("Failed to update payment intent status",
				zap.String("payment_id", paymentID), zap.Error(err))
		}
	}

	result := &PaymentResult{PaymentID: paymentID, Status: status.Status}
	if status.Status != models.PaymentStatusPaid {
		return result, nil
	}

	order, err := s.CreateOrderForPayment(ctx, paymentID)
	if err != nil {
		s.escalateOrphaned(ctx, intent, err)
		return result, nil
	}

	result.OrderID = order.ID
	result.OrderNumber = order.OrderNumber
	return result, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

func (s *OrderService) recordCreated(ctx context.Context, order *models.Order) {
	util.OrdersCreatedTotal.WithLabelValues(string(order.PaymentMethod)).Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("method", string(order.PaymentMethod)))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		VendorID:      order.VendorID,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

func (s *OrderService) escalateOrphaned(ctx context.Context, intent *models.PaymentIntent, cause error) {
	util.PaymentOrphanedTotal.Inc()
	s.logger.Error("Payment settled without an order",
		zap.String("payment_id", intent.ID),
		zap.Int64("amount", intent.Amount),
		zap.Error(cause))

	event := &models.PaymentOrphanedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentOrphaned,
			Timestamp: time.Now(),
		},
		PaymentID:     intent.ID,
		Method:        intent.Method,
		Amount:        intent.Amount,
		CustomerPhone: intent.CustomerPhone,
	}
	if err := s.publisher.PublishPaymentOrphaned(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentOrphaned event", zap.Error(err))
	}
}
