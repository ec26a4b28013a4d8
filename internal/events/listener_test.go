package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockReader hands out queued messages, then blocks until ctx is done.
type MockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.messages) > 0 {
		msg := m.messages[0]
		m.messages = m.messages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type call struct {
	userID, orderID string
}

type MockHandler struct {
	mu      sync.Mutex
	current string
	calls   []call
}

func (m *MockHandler) PaymentCompleted(_ context.Context, userID, orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{userID, orderID})
	return userID == m.current
}

func (m *MockHandler) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func newTestListener(reader Reader, handler Handler) *Listener {
	l := NewListener(reader, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.backoff = time.Millisecond
	return l
}

func TestListener_HandlesPaymentCompleted(t *testing.T) {
	reader := &MockReader{messages: []kafka.Message{
		{Value: []byte(`{"event":"payment_completed","user_id":"u-1","order_id":"ord-9"}`)},
	}}
	handler := &MockHandler{current: "u-1"}
	l := newTestListener(reader, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(handler.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, call{"u-1", "ord-9"}, handler.Calls()[0])

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}

func TestListener_SkipsUnusableMessages(t *testing.T) {
	reader := &MockReader{messages: []kafka.Message{
		{Value: []byte(`not json`)},
		{Value: []byte(`{"event":"payment_failed","user_id":"u-1"}`)},
		{Value: []byte(`{"event":"payment_completed"}`)},
		{Value: []byte(`{"event":"payment_completed","user_id":"u-2","order_id":"ord-2"}`)},
	}}
	handler := &MockHandler{current: "u-1"}
	l := newTestListener(reader, handler)

	for i := 0; i < 4; i++ {
		require.NoError(t, l.next(context.Background()))
	}
	assert.Equal(t, []call{{"u-2", "ord-2"}}, handler.Calls())
}

func TestListener_RetriesAfterReadError(t *testing.T) {
	reader := &MockReader{
		errs: []error{errors.New("broker unavailable")},
		messages: []kafka.Message{
			{Value: []byte(`{"event":"payment_completed","user_id":"u-1","order_id":"ord-1"}`)},
		},
	}
	handler := &MockHandler{current: "u-1"}
	l := newTestListener(reader, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.Eventually(t, func() bool { return len(handler.Calls()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestListener_Close(t *testing.T) {
	reader := &MockReader{}
	l := newTestListener(reader, &MockHandler{})
	require.NoError(t, l.Close())
	assert.True(t, reader.closed)
}

func TestNewKafkaReader_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaReader(nil, "payment-events", "storefront")
	assert.ErrorIs(t, err, ErrNoBrokers)
}
