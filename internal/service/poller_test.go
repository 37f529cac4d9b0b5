package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultCollector captures reports from a poller run
type resultCollector struct {
	mu      sync.Mutex
	results []PaymentResult
}

func (c *resultCollector) report(result PaymentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func (c *resultCollector) all() []PaymentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PaymentResult, len(c.results))
	copy(out, c.results)
	return out
}

func pending() scriptStep {
	return scriptStep{result: &PaymentResult{Status: models.PaymentStatusPending}}
}

func paid(orderID int64) scriptStep {
	return scriptStep{result: &PaymentResult{
		Status:      models.PaymentStatusPaid,
		OrderID:     orderID,
		OrderNumber: "YON-1",
	}}
}

func TestPollerReportsFirstTerminalStatus(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{pending(), pending(), paid(1)}}
	collector := &resultCollector{}

	poller := NewPoller(reconciler, time.Millisecond, 60)
	poller.Run(context.Background(), "PAY1", collector.report)

	results := collector.all()
	require.Len(t, results, 1)
	assert.Equal(t, "PAY1", results[0].PaymentID)
	assert.Equal(t, models.PaymentStatusPaid, results[0].Status)
	assert.Equal(t, int64(1), results[0].OrderID)
	assert.Equal(t, 3, reconciler.callCount())
}

func TestPollerFirstCheckIsImmediate(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{paid(1)}}
	collector := &resultCollector{}

	// a long interval never elapses when the first check already settles
	poller := NewPoller(reconciler, time.Hour, 60)
	done := make(chan struct{})
	go func() {
		poller.Run(context.Background(), "PAY1", collector.report)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not settle on the immediate first check")
	}
	require.Len(t, collector.all(), 1)
}

func TestPollerRetriesAfterTransportErrors(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{
		{err: errors.New("connection reset")},
		{err: errors.New("gateway timeout")},
		paid(2),
	}}
	collector := &resultCollector{}

	poller := NewPoller(reconciler, time.Millisecond, 60)
	poller.Run(context.Background(), "PAY1", collector.report)

	results := collector.all()
	require.Len(t, results, 1)
	assert.Equal(t, models.PaymentStatusPaid, results[0].Status)
	assert.Equal(t, 3, reconciler.callCount())
}

func TestPollerTimesOutAfterBudget(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{pending()}}
	collector := &resultCollector{}

	poller := NewPoller(reconciler, time.Millisecond, 5)
	poller.Run(context.Background(), "PAY1", collector.report)

	results := collector.all()
	require.Len(t, results, 1)
	assert.True(t, results[0].TimedOut)
	assert.Equal(t, "PAY1", results[0].PaymentID)
	assert.Equal(t, 5, reconciler.callCount())
}

func TestPollerCancellationStopsChecksAndReports(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{pending()}}
	collector := &resultCollector{}

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewPoller(reconciler, 10*time.Millisecond, 60)

	done := make(chan struct{})
	go func() {
		poller.Run(ctx, "PAY1", collector.report)
		close(done)
	}()

	// let a few polls happen, then cancel
	assert.Eventually(t, func() bool { return reconciler.callCount() >= 2 },
		2*time.Second, time.Millisecond)
	cancel()
	<-done

	callsAtExit := reconciler.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, callsAtExit, reconciler.callCount(), "no checks after cancellation")
	assert.Empty(t, collector.all(), "a cancelled run must not report")
}

func TestPollerCancelledBeforeStartDoesNothing(t *testing.T) {
	reconciler := &scriptReconciler{steps: []scriptStep{paid(1)}}
	collector := &resultCollector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := NewPoller(reconciler, time.Millisecond, 60)
	poller.Run(ctx, "PAY1", collector.report)

	assert.Zero(t, reconciler.callCount())
	assert.Empty(t, collector.all())
}
