// Package mqtt provides the broker side of the relay: one-shot publishing
// and a deadline-bounded wait for a single reply.
//
// This package manages:
//   - One broker connection per operation, never reused across requests
//   - QoS 1 (at least once) publishing with PUBACK confirmation
//   - Single-message subscriptions bounded by a fixed deadline
//   - TLS with custom CA and client certificates
//   - The /in/params -> /out/info reply topic convention
//
// # Architecture
//
//	client --TCP--> relay --publish--> broker --> device
//	client <--TCP-- relay <--reply---- broker <-- device
//
// # Deadline handling
//
// paho's Connect, Subscribe and Publish return tokens with a Done()
// channel, so every wait is a select against a timer and the caller's
// context. A Waiter that times out unsubscribes and disconnects before
// returning; no goroutine outlives AwaitReply.
//
// # Usage
//
//	pub := mqtt.NewPublisher(cfg.MQTT)
//	waiter := mqtt.NewWaiter(cfg.MQTT)
//
//	if reply, ok := mqtt.ReplyTopic(topic); ok {
//	    payload, err := waiter.AwaitReply(ctx, reply, func(ctx context.Context) error {
//	        return pub.Publish(ctx, topic, message)
//	    })
//	    ...
//	}
package mqtt
