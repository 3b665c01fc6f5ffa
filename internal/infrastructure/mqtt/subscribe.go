package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
)

// DefaultReplyTimeout is the fixed deadline for a device reply.
const DefaultReplyTimeout = 15 * time.Second

// Trigger runs once the reply subscription is live. It is typically the
// publish that provokes the reply, and shares the reply deadline.
type Trigger func(ctx context.Context) error

// Waiter receives exactly one message from a topic within a fixed deadline.
//
// Each call opens its own connection, subscribes, optionally runs a Trigger,
// and waits for the first non-retained message. Whatever happens the
// subscription is removed and the connection closed before returning, so
// nothing keeps running after a timeout.
type Waiter struct {
	cfg     config.MQTTConfig
	timeout time.Duration
}

// WaiterOption configures a Waiter.
type WaiterOption func(*Waiter)

// WithReplyTimeout replaces DefaultReplyTimeout for every wait made by the Waiter.
func WithReplyTimeout(d time.Duration) WaiterOption {
	return func(w *Waiter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// NewWaiter creates a Waiter for the given broker settings.
func NewWaiter(cfg config.MQTTConfig, opts ...WaiterOption) *Waiter {
	w := &Waiter{
		cfg:     cfg,
		timeout: DefaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Timeout returns the deadline applied to each AwaitReply call.
func (w *Waiter) Timeout() time.Duration {
	return w.timeout
}

// AwaitReply waits for one message on topic.
//
// The deadline covers the whole exchange: connect, subscribe, trigger and
// the wait itself. Retained messages are ignored so a stale reply from an
// earlier exchange is never mistaken for the answer.
//
// Parameters:
//   - ctx: Parent context; cancelling it aborts the wait
//   - topic: Reply topic to subscribe to
//   - trigger: Optional action run after the subscription is acknowledged
//
// Returns:
//   - []byte: The reply payload
//   - error: ErrReplyTimeout when the deadline passed, the trigger's own
//     error if it failed, or a wrapped ErrConnectionFailed/ErrSubscribeFailed
func (w *Waiter) AwaitReply(ctx context.Context, topic string, trigger Trigger) ([]byte, error) {
	if topic == "" {
		return nil, ErrInvalidTopic
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	client, err := dial(ctx, w.cfg, "sub")
	if err != nil {
		return nil, w.deadlineOr(ctx, err)
	}
	defer hangUp(client)

	replies := make(chan []byte, 1)
	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		if msg.Retained() {
			return
		}
		select {
		case replies <- msg.Payload():
		default:
			// Only the first reply counts.
		}
	}

	if err := subscribe(ctx, client, topic, handler); err != nil {
		return nil, w.deadlineOr(ctx, err)
	}
	defer unsubscribe(client, topic)

	if trigger != nil {
		if err := trigger(ctx); err != nil {
			return nil, err
		}
	}

	select {
	case payload := <-replies:
		return payload, nil
	case <-ctx.Done():
		return nil, w.deadlineOr(ctx, ctx.Err())
	}
}

// deadlineOr reports ErrReplyTimeout when ctx hit its deadline, else err.
func (w *Waiter) deadlineOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w (%v)", ErrReplyTimeout, w.timeout)
	}
	return err
}

// subscribe registers handler on topic and checks the SUBACK return code.
func subscribe(ctx context.Context, client pahomqtt.Client, topic string, handler pahomqtt.MessageHandler) error {
	token := client.Subscribe(topic, qosAtLeastOnce, handler)
	if err := waitToken(ctx, token, defaultSubscribeTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subscribeFailure {
			return fmt.Errorf("%w: %s: rejected by broker", ErrSubscribeFailed, topic)
		}
	}

	return nil
}

// unsubscribe removes the subscription, best effort, before the disconnect.
func unsubscribe(client pahomqtt.Client, topic string) {
	client.Unsubscribe(topic).WaitTimeout(defaultUnsubscribeTimeout)
}
