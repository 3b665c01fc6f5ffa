package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
)

// dial opens a fresh broker connection for one publish or one reply wait.
//
// The connection is never shared: callers must release it with hangUp once
// their single operation is complete, whatever the outcome.
//
// Parameters:
//   - ctx: Bounds the wait for CONNACK in addition to defaultConnectTimeout
//   - cfg: Broker settings
//   - role: Short label embedded in the client ID ("pub", "sub")
//
// Returns:
//   - pahomqtt.Client: Connected client
//   - error: Wrapping ErrConnectionFailed (or ErrTLSConfig) on failure
func dial(ctx context.Context, cfg config.MQTTConfig, role string) (pahomqtt.Client, error) {
	opts, err := buildClientOptions(cfg, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	client := pahomqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), defaultConnectTimeout); err != nil {
		// Stops any half-open network goroutines; a no-op if never connected.
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	return client, nil
}

// hangUp disconnects unconditionally, allowing in-flight packets a short quiesce.
func hangUp(client pahomqtt.Client) {
	if client == nil {
		return
	}
	client.Disconnect(defaultDisconnectQuiesce)
}

// waitToken blocks until the token completes, the timeout elapses, or ctx ends.
//
// paho tokens expose Done(), so the wait is a plain select and never
// outlives its caller.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
