package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/store"
)

// memCartStore implements CartStore in memory with JSON copies, so tests see
// the same serialization boundary the Redis store imposes
type memCartStore struct {
	mu    sync.Mutex
	carts map[string][]byte
	fail  error
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[string][]byte)}
}

func (m *memCartStore) LoadCart(_ context.Context, sessionID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	data, ok := m.carts[sessionID]
	if !ok {
		return nil, redisclient.ErrNotFound
	}
	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (m *memCartStore) SaveCart(_ context.Context, sessionID string, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	m.carts[sessionID] = data
	return nil
}

func (m *memCartStore) DeleteCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

// memAddressStore implements AddressStore in memory
type memAddressStore struct {
	mu    sync.Mutex
	addrs map[string]*models.DeliveryAddress
}

func newMemAddressStore() *memAddressStore {
	return &memAddressStore{addrs: make(map[string]*models.DeliveryAddress)}
}

func (m *memAddressStore) LoadAddress(_ context.Context, sessionID string) (*models.DeliveryAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr, ok := m.addrs[sessionID]
	if !ok {
		return nil, redisclient.ErrNotFound
	}
	copied := *addr
	return &copied, nil
}

func (m *memAddressStore) SaveAddress(_ context.Context, sessionID string, addr *models.DeliveryAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *addr
	m.addrs[sessionID] = &copied
	return nil
}

// stubChecker implements CoverageChecker with a fixed answer
type stubChecker struct {
	result *models.CoverageResult
	err    error
}

func (s *stubChecker) CheckZoneCoverage(context.Context, float64, float64) (*models.CoverageResult, error) {
	return s.result, s.err
}

// stubZoneSource implements zoneSource with fixed zones
type stubZoneSource struct {
	zones []models.Zone
	err   error
}

func (s *stubZoneSource) GetZones(context.Context) ([]models.Zone, error) {
	return s.zones, s.err
}

// stubAddresses implements addressAccess with a fixed address
type stubAddresses struct {
	addr *models.DeliveryAddress
}

func (s *stubAddresses) GetAddress(context.Context, string) (*models.DeliveryAddress, error) {
	return s.addr, nil
}

// scriptReconciler implements PaymentReconciler, replaying scripted
// observations; the last step repeats once the script runs out
type scriptStep struct {
	result *PaymentResult
	err    error
}

type scriptReconciler struct {
	mu    sync.Mutex
	steps []scriptStep
	calls int
}

func (s *scriptReconciler) ReconcilePayment(_ context.Context, paymentID string) (*PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	step := s.steps[idx]
	if step.err != nil {
		return nil, step.err
	}
	result := *step.result
	result.PaymentID = paymentID
	return &result, nil
}

func (s *scriptReconciler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// mockOrderStore implements orderStore with the same uniqueness semantics
// the Postgres constraints provide
type mockOrderStore struct {
	mu        sync.Mutex
	nextID    int64
	byPayment map[string]*models.Order
	byKey     map[string]*models.Order
	intents   map[string]*models.PaymentIntent
	createErr error
	created   int
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		byPayment: make(map[string]*models.Order),
		byKey:     make(map[string]*models.Order),
		intents:   make(map[string]*models.PaymentIntent),
	}
}

func (m *mockOrderStore) CreateOrderTx(_ context.Context, draft *models.OrderDraft, paymentIntentID *string, idempotencyKey string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if paymentIntentID != nil {
		if _, exists := m.byPayment[*paymentIntentID]; exists {
			return nil, store.ErrOrderExists
		}
	}
	if _, exists := m.byKey[idempotencyKey]; exists {
		return nil, store.ErrOrderExists
	}

	m.nextID++
	m.created++
	order := &models.Order{
		ID:              m.nextID,
		OrderNumber:     fmt.Sprintf("YON-%d", m.nextID),
		VendorID:        draft.VendorID,
		Status:          models.OrderStatusConfirmed,
		PaymentMethod:   draft.PaymentMethod,
		Subtotal:        draft.Subtotal,
		DeliveryFee:     draft.DeliveryFee,
		Total:           draft.Total,
		PaymentIntentID: paymentIntentID,
		IdempotencyKey:  idempotencyKey,
	}
	if paymentIntentID != nil {
		m.byPayment[*paymentIntentID] = order
	}
	m.byKey[idempotencyKey] = order
	return order, nil
}

func (m *mockOrderStore) GetOrderByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPayment[paymentIntentID], nil
}

func (m *mockOrderStore) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[key], nil
}

func (m *mockOrderStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.byKey {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, errors.New("order not found")
}

func (m *mockOrderStore) GetOrderItemsByOrderID(context.Context, int64) ([]models.OrderItem, error) {
	return nil, nil
}

func (m *mockOrderStore) CreatePaymentIntent(_ context.Context, intent *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
	return nil
}

func (m *mockOrderStore) GetPaymentIntent(_ context.Context, id string) (*models.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, errors.New("payment intent not found: " + id)
	}
	return intent, nil
}

func (m *mockOrderStore) UpdatePaymentIntentStatus(_ context.Context, id string, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[id]; ok {
		intent.Status = status
	}
	return nil
}

func (m *mockOrderStore) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// statusGateway implements PaymentGateway with scripted statuses
type statusGateway struct {
	mu       sync.Mutex
	initResp *InitiatePaymentResponse
	initErr  error
	statuses []models.PaymentStatus
	checkErr error
	checks   int
}

func (g *statusGateway) InitiatePayment(context.Context, *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	return g.initResp, g.initErr
}

func (g *statusGateway) CheckPaymentStatus(_ context.Context, _ models.PaymentMethod, _ string) (*ProviderStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checkErr != nil {
		return nil, g.checkErr
	}
	idx := g.checks
	g.checks++
	if len(g.statuses) == 0 {
		return &ProviderStatusResponse{Status: models.PaymentStatusPending}, nil
	}
	if idx >= len(g.statuses) {
		idx = len(g.statuses) - 1
	}
	return &ProviderStatusResponse{Status: g.statuses[idx]}, nil
}

// nopPublisher implements eventPublisher, counting publications
type nopPublisher struct {
	mu       sync.Mutex
	created  int
	orphaned int
}

func (p *nopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return nil
}

func (p *nopPublisher) PublishPaymentOrphaned(context.Context, *models.PaymentOrphanedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orphaned++
	return nil
}
