// Package testutil runs an in-process MQTT broker for tests that need a
// real broker round trip without an external Mosquitto.
package testutil

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
)

// Broker is a mochi-mqtt server listening on a free loopback port.
type Broker struct {
	Server *mochi.Server
	Host   string
	Port   int

	subID atomic.Int32
}

// Message is a publish observed by a Watch subscription.
type Message struct {
	Topic   string
	Payload []byte
	Retain  bool
}

// StartBroker starts a broker that accepts any client and stops it when t ends.
func StartBroker(t testing.TB) *Broker {
	t.Helper()

	port := FreePort(t)
	server := mochi.New(&mochi.Options{
		InlineClient: true,
	})
	server.Log = slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("adding allow hook: %v", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "relay-test",
		Address: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
	})
	if err := server.AddListener(tcp); err != nil {
		t.Fatalf("adding listener: %v", err)
	}

	if err := server.Serve(); err != nil {
		t.Fatalf("starting broker: %v", err)
	}
	t.Cleanup(func() {
		server.Close() //nolint:errcheck // test teardown
	})

	return &Broker{
		Server: server,
		Host:   "127.0.0.1",
		Port:   port,
	}
}

// Config returns relay broker settings pointing at this broker.
func (b *Broker) Config() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           b.Host,
			Port:           b.Port,
			KeepAlive:      30,
			ClientIDPrefix: "relay-test",
		},
	}
}

// Publish sends a message from the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.Server.Publish(topic, payload, retain, 1)
}

// Watch collects every message published on filter.
func (b *Broker) Watch(t testing.TB, filter string) *Recorder {
	t.Helper()

	rec := &Recorder{}
	id := int(b.subID.Add(1))
	err := b.Server.Subscribe(filter, id, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		rec.add(Message{
			Topic:   pk.TopicName,
			Payload: append([]byte(nil), pk.Payload...),
			Retain:  pk.FixedHeader.Retain,
		})
	})
	if err != nil {
		t.Fatalf("watching %s: %v", filter, err)
	}
	return rec
}

// ReplyWhen publishes reply on replyTopic each time a message lands on requestTopic.
func (b *Broker) ReplyWhen(t testing.TB, requestTopic, replyTopic string, reply []byte, delay time.Duration) {
	t.Helper()

	id := int(b.subID.Add(1))
	err := b.Server.Subscribe(requestTopic, id, func(_ *mochi.Client, _ packets.Subscription, _ packets.Packet) {
		go func() {
			time.Sleep(delay)
			b.Publish(replyTopic, reply, false) //nolint:errcheck // device simulation
		}()
	})
	if err != nil {
		t.Fatalf("watching %s: %v", requestTopic, err)
	}
}

// Recorder accumulates messages delivered to a Watch subscription.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

// Messages returns a copy of everything received so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns the number of messages received so far.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// FreePort asks the kernel for an unused loopback TCP port.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
