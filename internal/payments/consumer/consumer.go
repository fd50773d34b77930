package consumer

import (
	"context"
	"errors"

	"campuspark/internal/payments/service"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/kafka"
	"campuspark/pkg/logger"
	"campuspark/pkg/middleware"
	"campuspark/pkg/model"
)

// EventPaymentConfirmed is the event-type header the payment provider bridge sets.
const EventPaymentConfirmed = "payment.confirmed"

// PaymentConsumer turns payment confirmation records into markPaid calls.
type PaymentConsumer struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentConsumer(service service.PaymentService, log *logger.Logger) *PaymentConsumer {
	return &PaymentConsumer{service: service, log: log}
}

// Handle is a kafka.MessageHandler. Store outages are retried; anything the
// record itself cannot fix goes to the DLQ.
func (c *PaymentConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	if t := msg.GetEventType(); t != "" && t != EventPaymentConfirmed {
		c.log.Debug("skipping unrelated event", "event_type", t, "key", msg.Key)
		return nil
	}

	var req model.PaymentConfirmation
	if err := msg.DecodeValue(&req); err != nil {
		return kafka.NewPermanentError("decode payment confirmation", err)
	}
	if req.ReservationID == "" {
		req.ReservationID = msg.Key
	}

	if id := msg.GetCorrelationID(); id != "" {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, id)
	}

	if _, err := c.service.Confirm(ctx, &req, model.SourceKafka); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Retryable() {
			return kafka.NewTransientError("confirm payment", err)
		}
		return kafka.NewPermanentError("confirm payment", err)
	}
	return nil
}
