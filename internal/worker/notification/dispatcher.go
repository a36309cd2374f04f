package notification

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
	"github.com/campus-canteen/canteen/internal/notifier"
	"github.com/campus-canteen/canteen/internal/worker"
)

var workerTracer = otel.Tracer("github.com/campus-canteen/canteen/worker/notification")

// Module registers the notification dispatcher with the worker engine.
var Module = fx.Module("worker_notification",
	fx.Provide(
		fx.Annotate(
			NewDispatcher,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewDispatcher builds the handler that hands decoded notification envelopes
// to the delivery channel. Delivery itself (SMTP, push) lives outside this
// service; the dispatcher records what would go out.
func NewDispatcher(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg notifier.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.notification.dispatch", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var envelope notifier.Envelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Error("failed to decode notification envelope", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		logger.Info("notification dispatched",
			zap.String("recipient", envelope.Recipient),
			zap.String("event", string(envelope.Event)),
			zap.Any("payload", envelope.Payload),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Notifications.Kafka.Topic,
		Handler: handler,
	}
}
