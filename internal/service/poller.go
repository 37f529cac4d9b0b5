package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// PaymentReconciler makes one status observation for a payment id
type PaymentReconciler interface {
	ReconcilePayment(ctx context.Context, paymentID string) (*PaymentResult, error)
}

// Poller bridges "payment initiated" and "payment confirmed" when the only
// signal available is asking again later. It reports exactly one result per
// run: the first terminal status, or a timeout when the poll budget runs out.
type Poller struct {
	reconciler PaymentReconciler
	interval   time.Duration
	maxPolls   int
	logger     *zap.Logger
}

// NewPoller creates a poller with a fixed interval and poll budget
func NewPoller(reconciler PaymentReconciler, interval time.Duration, maxPolls int) *Poller {
	return &Poller{
		reconciler: reconciler,
		interval:   interval,
		maxPolls:   maxPolls,
		logger:     util.GetLogger(),
	}
}

// Run polls the payment status until a terminal result, cancellation, or the
// poll budget is exhausted. The first check is issued immediately. Transport
// errors are swallowed and retried on the next tick; the poll budget is the
// outer bound either way. Once ctx is cancelled no further checks are issued
// and no result is reported, so a stale run can never touch a newer attempt.
func (p *Poller) Run(ctx context.Context, paymentID string, report func(PaymentResult)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for poll := 0; poll < p.maxPolls; poll++ {
		if poll > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		if ctx.Err() != nil {
			return
		}

		util.PaymentPollsTotal.Inc()
		result, err := p.reconciler.ReconcilePayment(ctx, paymentID)
		if err != nil {
			p.logger.Warn("Payment status poll failed, retrying",
				zap.String("payment_id", paymentID),
				zap.Int("poll", poll+1),
				zap.Error(err))
			continue
		}

		if result.Status.IsTerminal() {
			if ctx.Err() != nil {
				return
			}
			util.PaymentPollOutcomeTotal.WithLabelValues(string(result.Status)).Inc()
			p.logger.Info("Payment reached terminal status",
				zap.String("payment_id", paymentID),
				zap.String("status", string(result.Status)),
				zap.Int("polls", poll+1))
			report(*result)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	util.PaymentPollOutcomeTotal.WithLabelValues("timeout").Inc()
	p.logger.Warn("Payment reconciliation budget exhausted",
		zap.String("payment_id", paymentID),
		zap.Int("max_polls", p.maxPolls))
	report(PaymentResult{PaymentID: paymentID, Status: models.PaymentStatusPending, TimedOut: true})
}
