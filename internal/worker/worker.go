package worker

import (
	"context"
	"encoding/json"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// PaymentNotificationWorker consumes provider payment notifications that the
// webhook edge mirrors onto Kafka. A paid notification goes through the same
// idempotent order-creation path the client poller uses, so the two can race
// freely; the database uniqueness constraint keeps creation at-most-once.
type PaymentNotificationWorker struct {
	consumer     *broker.Consumer
	orderService *service.OrderService
}

// NewPaymentNotificationWorker creates a new payment notification worker
func NewPaymentNotificationWorker(
	consumer *broker.Consumer,
	orderService *service.OrderService,
) *PaymentNotificationWorker {
	return &PaymentNotificationWorker{
		consumer:     consumer,
		orderService: orderService,
	}
}

// Start starts the worker
func (w *PaymentNotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting payment notification worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *PaymentNotificationWorker) Stop() error {
	log.Println("Stopping payment notification worker...")
	return w.consumer.Close()
}

func (w *PaymentNotificationWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var notif models.PaymentNotification
	if err := json.Unmarshal(msg.Value, &notif); err != nil {
		log.Printf("Failed to unmarshal payment notification: %v", err)
		return nil // poison message, skip
	}

	if notif.PaymentID == "" {
		log.Printf("Payment notification missing payment_id, skipping")
		return nil
	}

	log.Printf("Processing payment notification: payment_id=%s, status=%s",
		notif.PaymentID, notif.Status)

	switch {
	case notif.Status == models.PaymentStatusPaid:
		if _, err := w.orderService.CreateOrderForPayment(ctx, notif.PaymentID); err != nil {
			log.Printf("Failed to create order for notified payment %s: %v", notif.PaymentID, err)
			return err
		}
	case notif.Status.IsTerminal():
		if err := w.orderService.MarkPaymentStatus(ctx, notif.PaymentID, notif.Status); err != nil {
			log.Printf("Failed to mark payment %s as %s: %v", notif.PaymentID, notif.Status, err)
			return err
		}
	}

	return nil
}
