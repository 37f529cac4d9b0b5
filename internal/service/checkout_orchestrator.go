package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cartAccess is the slice of the cart service the orchestrator reads at
// transition time
type cartAccess interface {
	Get(ctx context.Context, sessionID string) (*models.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// addressAccess reads the session's gated delivery address
type addressAccess interface {
	GetAddress(ctx context.Context, sessionID string) (*models.DeliveryAddress, error)
}

// orderAccess is the slice of the order service the orchestrator drives
type orderAccess interface {
	CreateCashOrder(ctx context.Context, draft *models.OrderDraft, idempotencyKey string) (*models.Order, error)
	RecordPaymentIntent(ctx context.Context, paymentID string, draft *models.OrderDraft) error
	CreateOrderForPayment(ctx context.Context, paymentID string) (*models.Order, error)
}

// paymentInitiator starts a charge with the external provider
type paymentInitiator interface {
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error)
}

// SubmitRequest is one checkout submission
type SubmitRequest struct {
	PaymentMethod  models.PaymentMethod `json:"payment_method" binding:"required"`
	CustomerPhone  string               `json:"customer_phone"`
	PromoCode      string               `json:"promo_code"`
	IdempotencyKey string               `json:"idempotency_key"`
}

// Orchestrator drives the per-session checkout state machine. All state
// changes go through models.Transition; the orchestrator owns the side
// effects around them (order creation, payment initiation, polling, cart
// clearing) and the rule that the cart is cleared only after success.
type Orchestrator struct {
	carts      cartAccess
	addresses  addressAccess
	orders     orderAccess
	gateway    paymentInitiator
	reconciler PaymentReconciler

	pollInterval time.Duration
	maxPolls     int
	defaultFee   int64
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

type checkoutSession struct {
	state      models.CheckoutState
	cancelPoll context.CancelFunc
}

// NewOrchestrator creates a new checkout orchestrator
func NewOrchestrator(
	carts cartAccess,
	addresses addressAccess,
	orders orderAccess,
	gateway paymentInitiator,
	reconciler PaymentReconciler,
	pollInterval time.Duration,
	maxPolls int,
	defaultFee int64,
) *Orchestrator {
	return &Orchestrator{
		carts:        carts,
		addresses:    addresses,
		orders:       orders,
		gateway:      gateway,
		reconciler:   reconciler,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		defaultFee:   defaultFee,
		logger:       util.GetLogger(),
		sessions:     make(map[string]*checkoutSession),
	}
}

// State returns the session's current checkout state
func (o *Orchestrator) State(sessionID string) models.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session(sessionID).state
}

// Submit runs one checkout attempt. Guard failures return a *ValidationError
// and leave the state at idle; a submit while a previous attempt is in
// flight returns ErrCheckoutInFlight without touching anything.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, req SubmitRequest) (models.CheckoutState, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.Submit")
	defer span.End()

	o.mu.Lock()
	sess := o.session(sessionID)
	if sess.state.Status != models.CheckoutIdle {
		state := sess.state
		o.mu.Unlock()
		return state, ErrCheckoutInFlight
	}
	o.mu.Unlock()

	util.CheckoutAttemptsTotal.WithLabelValues(string(req.PaymentMethod)).Inc()

	draft, err := o.buildDraft(ctx, sessionID, req)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("validation").Inc()
		return o.State(sessionID), err
	}

	o.mu.Lock()
	if sess.state.Status != models.CheckoutIdle {
		state := sess.state
		o.mu.Unlock()
		return state, ErrCheckoutInFlight
	}
	sess.state = models.Transition(sess.state, models.EvSubmit{})
	o.mu.Unlock()

	if req.PaymentMethod == models.PaymentMethodCash {
		return o.submitCash(ctx, sessionID, draft, req.IdempotencyKey), nil
	}
	return o.submitMobileMoney(ctx, sessionID, draft), nil
}

// buildDraft checks the guards and snapshots the cart and address into an
// immutable draft for this attempt
func (o *Orchestrator) buildDraft(ctx context.Context, sessionID string, req SubmitRequest) (*models.OrderDraft, error) {
	cart, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() || cart.VendorID == "" {
		return nil, validationErr("cart", "Your cart is empty.")
	}

	addr, err := o.addresses.GetAddress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if addr == nil || !addr.HasAddress() || !addr.IsZoneCovered {
		return nil, validationErr("address", "Select a delivery address inside our delivery area.")
	}
	if strings.TrimSpace(addr.AdditionalInfo) == "" {
		return nil, validationErr("additional_info", "Add a landmark so the courier can find you.")
	}

	phone := ""
	if req.PaymentMethod.IsMobileMoney() {
		phone = normalizeLocalPhone(req.CustomerPhone)
		if phone == "" {
			return nil, validationErr("customer_phone", "Enter a valid mobile money number.")
		}
	} else if req.PaymentMethod != models.PaymentMethodCash {
		return nil, validationErr("payment_method", "Choose cash, wave or orange money.")
	}

	vendorName := ""
	if cart.Vendor != nil {
		vendorName = cart.Vendor.Name
	}

	return &models.OrderDraft{
		VendorID:        cart.VendorID,
		VendorName:      vendorName,
		Items:           cart.Items,
		DeliveryAddress: *addr,
		PaymentMethod:   req.PaymentMethod,
		CustomerPhone:   phone,
		PromoCode:       req.PromoCode,
		Subtotal:        cart.Subtotal(),
		DeliveryFee:     cart.DeliveryFeeOr(o.defaultFee),
		Discount:        0,
		Total:           cart.TotalOr(o.defaultFee),
	}, nil
}

func (o *Orchestrator) submitCash(ctx context.Context, sessionID string, draft *models.OrderDraft, idempotencyKey string) models.CheckoutState {
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	order, err := o.orders.CreateCashOrder(ctx, draft, idempotencyKey)

	var oos *store.OutOfStockError
	switch {
	case errors.As(err, &oos):
		util.OrdersOutOfStockTotal.Inc()
		return o.apply(sessionID, models.EvOutOfStock{Info: oos.Info})
	case err != nil:
		o.logger.Error("Cash order creation failed",
			zap.String("session_id", sessionID), zap.Error(err))
		util.CheckoutFailedTotal.WithLabelValues(models.ErrorKindOrderFailed).Inc()
		return o.apply(sessionID, models.EvFailure{
			Kind:    models.ErrorKindOrderFailed,
			Message: "We could not place your order. Please try again.",
		})
	}

	state := o.apply(sessionID, models.EvOrderCreated{OrderID: order.ID, OrderNumber: order.OrderNumber})
	o.clearCart(sessionID)
	return state
}

func (o *Orchestrator) submitMobileMoney(ctx context.Context, sessionID string, draft *models.OrderDraft) models.CheckoutState {
	resp, err := o.gateway.InitiatePayment(ctx, &InitiatePaymentRequest{
		Amount:        draft.Total,
		Currency:      "XOF",
		Method:        draft.PaymentMethod,
		CustomerPhone: draft.CustomerPhone,
		Reference:     sessionID,
	})
	if err != nil {
		o.logger.Error("Payment initiation failed",
			zap.String("session_id", sessionID), zap.Error(err))
		util.CheckoutFailedTotal.WithLabelValues(models.ErrorKindInitiation).Inc()
		return o.apply(sessionID, models.EvFailure{
			Kind:    models.ErrorKindInitiation,
			Message: "We could not start the payment. Please try again.",
		})
	}

	if err := o.orders.RecordPaymentIntent(ctx, resp.PaymentID, draft); err != nil {
		o.logger.Error("Failed to record payment intent",
			zap.String("payment_id", resp.PaymentID), zap.Error(err))
		util.CheckoutFailedTotal.WithLabelValues(models.ErrorKindInitiation).Inc()
		return o.apply(sessionID, models.EvFailure{
			Kind:    models.ErrorKindInitiation,
			Message: "We could not start the payment. Please try again.",
		})
	}

	// Sandbox providers settle instantly; that is the same success as a
	// reconciled payment, just without the pending phase.
	if resp.Status == models.PaymentStatusPaid {
		order, err := o.orders.CreateOrderForPayment(ctx, resp.PaymentID)
		if err != nil {
			o.logger.Error("Instantly settled payment has no order",
				zap.String("payment_id", resp.PaymentID), zap.Error(err))
			util.CheckoutFailedTotal.WithLabelValues(models.ErrorKindPaymentOrphaned).Inc()
			return o.apply(sessionID, models.EvFailure{
				Kind:    models.ErrorKindPaymentOrphaned,
				Message: models.MsgPaymentOrphaned,
			})
		}
		state := o.apply(sessionID, models.EvOrderCreated{OrderID: order.ID, OrderNumber: order.OrderNumber})
		o.clearCart(sessionID)
		return state
	}

	o.mu.Lock()
	sess := o.session(sessionID)
	sess.state = models.Transition(sess.state, models.EvPaymentInitiated{
		PaymentID:   resp.PaymentID,
		RedirectURL: resp.RedirectURL,
	})
	pollCtx, cancel := context.WithCancel(context.Background())
	sess.cancelPoll = cancel
	state := sess.state
	o.mu.Unlock()

	go func() {
		poller := NewPoller(o.reconciler, o.pollInterval, o.maxPolls)
		poller.Run(pollCtx, resp.PaymentID, func(result PaymentResult) {
			o.ApplyPaymentResult(sessionID, result)
		})
	}()

	return state
}

// ApplyPaymentResult feeds a reconciled payment outcome back into the state
// machine. Results for a payment id other than the session's active one are
// discarded by Transition, so a stale poller cannot touch a newer attempt.
func (o *Orchestrator) ApplyPaymentResult(sessionID string, result PaymentResult) models.CheckoutState {
	var ev models.CheckoutEvent
	if result.TimedOut {
		ev = models.EvTimeout{PaymentID: result.PaymentID}
	} else {
		ev = models.EvPaymentResult{
			PaymentID:   result.PaymentID,
			Status:      result.Status,
			OrderID:     result.OrderID,
			OrderNumber: result.OrderNumber,
		}
	}

	o.mu.Lock()
	sess := o.session(sessionID)
	before := sess.state
	sess.state = models.Transition(before, ev)
	leftPending := before.Status == models.CheckoutPaymentPending &&
		sess.state.Status != models.CheckoutPaymentPending
	if leftPending && sess.cancelPoll != nil {
		sess.cancelPoll()
		sess.cancelPoll = nil
	}
	succeeded := sess.state.Status == models.CheckoutSuccess && before.Status != models.CheckoutSuccess
	failed := sess.state.Status == models.CheckoutError && before.Status != models.CheckoutError
	state := sess.state
	o.mu.Unlock()

	if failed {
		util.CheckoutFailedTotal.WithLabelValues(state.ErrorKind).Inc()
	}
	if succeeded {
		o.clearCart(sessionID)
	}
	return state
}

// Abandon cancels a pending payment attempt and returns the session to idle.
// Nothing is done server-side; the provider expires the intent on its own.
func (o *Orchestrator) Abandon(sessionID string) models.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.session(sessionID)
	if sess.state.Status == models.CheckoutPaymentPending && sess.cancelPoll != nil {
		sess.cancelPoll()
		sess.cancelPoll = nil
	}
	sess.state = models.Transition(sess.state, models.EvAbandon{})
	return sess.state
}

// Dismiss acknowledges an error or out-of-stock result, returning to idle
func (o *Orchestrator) Dismiss(sessionID string) models.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.session(sessionID)
	sess.state = models.Transition(sess.state, models.EvDismiss{})
	return sess.state
}

// Shutdown stops every in-flight poller
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sess := range o.sessions {
		if sess.cancelPoll != nil {
			sess.cancelPoll()
			sess.cancelPoll = nil
		}
	}
}

// apply advances the session state by one event under the lock
func (o *Orchestrator) apply(sessionID string, ev models.CheckoutEvent) models.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess := o.session(sessionID)
	sess.state = models.Transition(sess.state, ev)
	return sess.state
}

// clearCart empties the cart after a confirmed success. Ordering matters:
// the state is already success when this runs, so a lost session mid-flow
// keeps its cart until an order actually exists.
func (o *Orchestrator) clearCart(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.carts.Clear(ctx, sessionID); err != nil {
		o.logger.Error("Failed to clear cart after success",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// session must be called with the lock held
func (o *Orchestrator) session(sessionID string) *checkoutSession {
	sess, ok := o.sessions[sessionID]
	if !ok {
		sess = &checkoutSession{state: models.NewCheckoutState()}
		o.sessions[sessionID] = sess
	}
	return sess
}

var localPhoneRe = regexp.MustCompile(`^7[05678][0-9]{7}$`)

// normalizeLocalPhone strips separators and the country prefix and returns
// the bare subscriber number, or "" when the input is not a valid local
// mobile number
func normalizeLocalPhone(raw string) string {
	s := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(raw)
	s = strings.TrimPrefix(s, "+221")
	s = strings.TrimPrefix(s, "00221")
	if len(s) == 12 && strings.HasPrefix(s, "221") {
		s = strings.TrimPrefix(s, "221")
	}
	if !localPhoneRe.MatchString(s) {
		return ""
	}
	return s
}
