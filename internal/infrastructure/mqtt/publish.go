package mqtt

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publisher sends single messages to the broker, one connection per message.
//
// Thread Safety:
//   - Publisher holds only immutable settings; concurrent calls each use
//     their own connection.
type Publisher struct {
	cfg config.MQTTConfig
}

// NewPublisher creates a Publisher for the given broker settings.
// No connection is made until Publish is called.
func NewPublisher(cfg config.MQTTConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// Publish delivers one message at QoS 1 (at least once).
//
// It connects, publishes, waits for the broker's PUBACK and disconnects.
// The disconnect happens on every path, including failures.
//
// Parameters:
//   - ctx: Cancels the connect or the acknowledgement wait
//   - topic: Destination topic (must not be empty)
//   - payload: Message body (max 1MB)
//
// Returns:
//   - error: nil once the broker acknowledged the message; otherwise wraps
//     ErrInvalidTopic, ErrPayloadTooLarge, ErrConnectionFailed or ErrPublishFailed
//
// Example:
//
//	pub := mqtt.NewPublisher(cfg.MQTT)
//	err := pub.Publish(ctx, "/dev1/in/setup", []byte("turn on"))
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	client, err := dial(ctx, p.cfg, "pub")
	if err != nil {
		return err
	}
	defer hangUp(client)

	token := client.Publish(topic, qosAtLeastOnce, false, payload)
	if err := waitToken(ctx, token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}

	return nil
}
