package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
)

// Event names the state change a notification describes.
type Event string

const (
	EventOrderCreated   Event = "order.created"
	EventOrderConfirmed Event = "order.confirmed"
	EventOrderPreparing Event = "order.preparing"
	EventOrderReady     Event = "order.ready"
	EventOrderDelivered Event = "order.delivered"
	EventOrderCancelled Event = "order.cancelled"
)

// Envelope is the wire shape of one notification. Actual delivery (email,
// push) happens downstream of the hook.
type Envelope struct {
	Recipient string         `json:"recipient"`
	Event     Event          `json:"event"`
	Payload   map[string]any `json:"payload"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// Message is a raw notification consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound notification message.
type Handler func(context.Context, Message) error

// Client is the notification hook. Notify is called synchronously inside the
// triggering operation; its failure must never roll back or mask the
// already-committed state change, so callers log the error and carry on.
type Client interface {
	Notify(ctx context.Context, recipient string, event Event, payload map[string]any) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the notifier client.
var Module = fx.Provide(NewClient)

// NewClient builds a notifier based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.Driver == "noop" {
		logger.Info("notifications disabled; using noop client")

		return noopClient{topic: cfg.Notifications.Kafka.Topic}, nil
	}

	switch cfg.Notifications.Driver {
	case "log":
		return &logClient{logger: logger, topic: cfg.Notifications.Kafka.Topic}, nil
	case "kafka":
		return newKafkaClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported notification driver: %s", cfg.Notifications.Driver)
	}
}

// noopClient is used when notifications are disabled.
type noopClient struct {
	topic string
}

func (n noopClient) Notify(context.Context, string, Event, map[string]any) error { return nil }
func (n noopClient) Consume(ctx context.Context, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (n noopClient) Topic() string { return n.topic }

// logClient writes notifications straight to the structured log. Useful for
// local setups without a broker.
type logClient struct {
	logger *zap.Logger
	topic  string
}

func (l *logClient) Notify(_ context.Context, recipient string, event Event, payload map[string]any) error {
	l.logger.Info("notification emitted",
		zap.String("recipient", recipient),
		zap.String("event", string(event)),
		zap.Any("payload", payload),
	)
	return nil
}

func (l *logClient) Consume(ctx context.Context, handler Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (l *logClient) Topic() string { return l.topic }

// kafkaClient publishes envelopes to a topic consumed by the dispatcher
// worker.
type kafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger *zap.Logger
}

func (k *kafkaClient) Notify(ctx context.Context, recipient string, event Event, payload map[string]any) error {
	envelope := Envelope{
		Recipient: recipient,
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := kafka.Message{Topic: k.topic, Key: []byte(recipient), Value: value}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))

			time.Sleep(time.Second)
			continue
		}

		wrapped := Message{
			Topic:  msg.Topic,
			Key:    append([]byte(nil), msg.Key...),
			Value:  append([]byte(nil), msg.Value...),
			Offset: msg.Offset,
			Time:   msg.Time,
			Headers: func() map[string]string {
				if len(msg.Headers) == 0 {
					return nil
				}
				m := make(map[string]string, len(msg.Headers))
				for _, h := range msg.Headers {
					m[h.Key] = string(h.Value)
				}
				return m
			}(),
		}

		if err := handler(ctx, wrapped); err != nil {
			k.logger.Error("notification handler failed", zap.Error(err), zap.Int64("offset", msg.Offset))

			// Handler signals failure; skip commit to allow retry.
			continue
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("commit failed", zap.Error(err))

		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	topic := cfg.Notifications.Kafka.Topic

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Notifications.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Logger:       kafkaLogger{logger: logger},
		ErrorLogger:  kafkaLogger{logger: logger},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Notifications.Kafka.Brokers,
		GroupID:        cfg.Notifications.ConsumerGroup,
		Topic:          topic,
		MinBytes:       cfg.Notifications.Kafka.MinBytes,
		MaxBytes:       cfg.Notifications.Kafka.MaxBytes,
		CommitInterval: cfg.Notifications.Kafka.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  cfg.Notifications.Kafka.ConnectTimeout,
			ClientID: cfg.Notifications.Kafka.ClientID,
		},
	})

	client := &kafkaClient{writer: writer, reader: reader, topic: topic, logger: logger}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka notifier")

			if err := writer.Close(); err != nil {
				return err
			}
			return reader.Close()
		},
	})

	return client, nil
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)

}
