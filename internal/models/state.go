package models

// CheckoutStatus is the UI-visible phase of a checkout attempt
type CheckoutStatus string

const (
	CheckoutIdle           CheckoutStatus = "idle"
	CheckoutLoading        CheckoutStatus = "loading"
	CheckoutPaymentPending CheckoutStatus = "payment_pending"
	CheckoutSuccess        CheckoutStatus = "success"
	CheckoutOutOfStock     CheckoutStatus = "out_of_stock"
	CheckoutError          CheckoutStatus = "error"
)

// IsTerminal reports whether the current attempt cannot progress further
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutSuccess || s == CheckoutOutOfStock || s == CheckoutError
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// Error kinds surfaced on the checkout state
const (
	ErrorKindInitiation       = "initiation_failed"
	ErrorKindOrderFailed      = "order_failed"
	ErrorKindPaymentFailed    = "payment_failed"
	ErrorKindPaymentCancelled = "payment_cancelled"
	ErrorKindPaymentExpired   = "payment_expired"
	ErrorKindPaymentOrphaned  = "payment_orphaned"
	ErrorKindTimeout          = "timeout"
)

// User-facing messages. The timeout wording deliberately avoids asserting
// failure: the provider may still settle after the client gives up. The
// orphaned wording tells the user their money was received.
const (
	MsgPaymentFailed    = "The payment was declined. You can try again."
	MsgPaymentCancelled = "The payment was cancelled. You can try again."
	MsgPaymentExpired   = "The payment request expired. You can try again."
	MsgPaymentOrphaned  = "Your payment was received but the order could not be confirmed. Support will contact you shortly."
	MsgTimeout          = "We could not confirm your payment in time. If you completed it, your order may still be confirmed shortly."
)

// CheckoutState is a plain tagged value; only the fields relevant to Status
// are populated. It is advanced exclusively through Transition.
type CheckoutState struct {
	Status      CheckoutStatus  `json:"status"`
	PaymentID   string          `json:"payment_id,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	OrderID     int64           `json:"order_id,omitempty"`
	OrderNumber string          `json:"order_number,omitempty"`
	OutOfStock  *OutOfStockInfo `json:"out_of_stock,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// NewCheckoutState returns the idle state
func NewCheckoutState() CheckoutState {
	return CheckoutState{Status: CheckoutIdle}
}

// CheckoutEvent is an input to the checkout state machine
type CheckoutEvent interface{ checkoutEvent() }

// EvSubmit moves idle to loading; guards are checked by the caller first
type EvSubmit struct{}

// EvOrderCreated reports a successfully created order (cash, instant
// settlement, or reconciled mobile-money)
type EvOrderCreated struct {
	OrderID     int64
	OrderNumber string
}

// EvOutOfStock reports an order rejected for insufficient stock
type EvOutOfStock struct {
	Info OutOfStockInfo
}

// EvFailure reports any non-stock failure of the current attempt
type EvFailure struct {
	Kind    string
	Message string
}

// EvPaymentInitiated moves loading to payment_pending
type EvPaymentInitiated struct {
	PaymentID   string
	RedirectURL string
}

// EvPaymentResult carries the reconciled outcome for a specific payment id.
// OrderID is zero when the provider reported paid but no order exists.
type EvPaymentResult struct {
	PaymentID   string
	Status      PaymentStatus
	OrderID     int64
	OrderNumber string
}

// EvTimeout reports that the reconciliation budget for a payment id ran out
type EvTimeout struct {
	PaymentID string
}

// EvDismiss acknowledges a terminal result and returns to idle, so the
// session can retry after a failure or start a fresh order after success
type EvDismiss struct{}

// EvAbandon cancels a pending payment and returns to idle
type EvAbandon struct{}

func (EvSubmit) checkoutEvent()           {}
func (EvOrderCreated) checkoutEvent()     {}
func (EvOutOfStock) checkoutEvent()       {}
func (EvFailure) checkoutEvent()          {}
func (EvPaymentInitiated) checkoutEvent() {}
func (EvPaymentResult) checkoutEvent()    {}
func (EvTimeout) checkoutEvent()          {}
func (EvDismiss) checkoutEvent()          {}
func (EvAbandon) checkoutEvent()          {}

// Transition is the pure state function of the checkout machine. Events that
// are not valid for the current state, and payment results keyed to a payment
// id other than the active one, leave the state unchanged.
func Transition(state CheckoutState, event CheckoutEvent) CheckoutState {
	switch ev := event.(type) {
	case EvSubmit:
		if state.Status == CheckoutIdle {
			return CheckoutState{Status: CheckoutLoading}
		}

	case EvOrderCreated:
		if state.Status == CheckoutLoading || state.Status == CheckoutPaymentPending {
			return CheckoutState{
				Status:      CheckoutSuccess,
				OrderID:     ev.OrderID,
				OrderNumber: ev.OrderNumber,
			}
		}

	case EvOutOfStock:
		if state.Status == CheckoutLoading {
			info := ev.Info
			return CheckoutState{Status: CheckoutOutOfStock, OutOfStock: &info}
		}

	case EvFailure:
		if state.Status == CheckoutLoading || state.Status == CheckoutPaymentPending {
			return CheckoutState{Status: CheckoutError, ErrorKind: ev.Kind, Message: ev.Message}
		}

	case EvPaymentInitiated:
		if state.Status == CheckoutLoading {
			return CheckoutState{
				Status:      CheckoutPaymentPending,
				PaymentID:   ev.PaymentID,
				RedirectURL: ev.RedirectURL,
			}
		}

	case EvPaymentResult:
		if state.Status != CheckoutPaymentPending || ev.PaymentID != state.PaymentID {
			return state
		}
		switch ev.Status {
		case PaymentStatusPaid:
			if ev.OrderID != 0 {
				return CheckoutState{
					Status:      CheckoutSuccess,
					OrderID:     ev.OrderID,
					OrderNumber: ev.OrderNumber,
				}
			}
			return CheckoutState{
				Status:    CheckoutError,
				ErrorKind: ErrorKindPaymentOrphaned,
				Message:   MsgPaymentOrphaned,
			}
		case PaymentStatusFailed:
			return CheckoutState{Status: CheckoutError, ErrorKind: ErrorKindPaymentFailed, Message: MsgPaymentFailed}
		case PaymentStatusCancelled:
			return CheckoutState{Status: CheckoutError, ErrorKind: ErrorKindPaymentCancelled, Message: MsgPaymentCancelled}
		case PaymentStatusExpired:
			return CheckoutState{Status: CheckoutError, ErrorKind: ErrorKindPaymentExpired, Message: MsgPaymentExpired}
		}

	case EvTimeout:
		if state.Status == CheckoutPaymentPending && ev.PaymentID == state.PaymentID {
			return CheckoutState{Status: CheckoutError, ErrorKind: ErrorKindTimeout, Message: MsgTimeout}
		}

	case EvDismiss:
		if state.Status.IsTerminal() {
			return NewCheckoutState()
		}

	case EvAbandon:
		if state.Status == CheckoutPaymentPending {
			return NewCheckoutState()
		}
	}

	return state
}
