package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const EventPaymentCompleted = "payment_completed"

var ErrNoBrokers = errors.New("no kafka brokers configured")

// Reader is the part of *kafka.Reader the listener consumes.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler reacts to a confirmed payment. It reports whether the event
// concerned the current user.
type Handler interface {
	PaymentCompleted(ctx context.Context, userID, orderID string) bool
}

type PaymentEvent struct {
	Event   string `json:"event"`
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

// Listener drops the local cart once an online payment completes.
type Listener struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
	backoff time.Duration
}

func NewListener(reader Reader, handler Handler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{reader: reader, handler: handler, logger: logger, backoff: time.Second}
}

// NewKafkaReader builds a consumer group reader for the payment topic.
func NewKafkaReader(brokers []string, topic, groupID string) (*kafka.Reader, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	}), nil
}

// Run consumes messages until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.next(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("reading payment event", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.backoff):
			}
		}
	}
}

func (l *Listener) Close() error {
	return l.reader.Close()
}

// next reads and handles a single message. Only read failures are returned;
// undecodable messages are logged and skipped.
func (l *Listener) next(ctx context.Context) error {
	m, err := l.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	var ev PaymentEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		l.logger.Warn("skipping malformed payment event", "offset", m.Offset, "error", err)
		return nil
	}
	if ev.Event != EventPaymentCompleted {
		l.logger.Debug("skipping event", "event", ev.Event, "offset", m.Offset)
		return nil
	}
	if ev.UserID == "" {
		l.logger.Warn("payment event without user_id", "offset", m.Offset)
		return nil
	}

	if !l.handler.PaymentCompleted(ctx, ev.UserID, ev.OrderID) {
		l.logger.Debug("payment event for another user", "user_id", ev.UserID)
	}
	return nil
}
