package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/mqtt"
)

// Authenticator checks client credentials. Implemented by *auth.Verifier.
type Authenticator interface {
	Authenticate(user, presented string) bool
	SaltOf(user string) string
}

// Publisher sends one message to the broker. Implemented by *mqtt.Publisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// ReplyWaiter waits for one reply message. Implemented by *mqtt.Waiter.
type ReplyWaiter interface {
	AwaitReply(ctx context.Context, topic string, trigger mqtt.Trigger) ([]byte, error)
}

// Deps holds the collaborators a Dispatcher needs.
type Deps struct {
	Auth      Authenticator
	Publisher Publisher
	Waiter    ReplyWaiter
	Events    EventSink       // optional
	Logger    *logging.Logger // optional, discards when nil
}

// Dispatcher validates requests, routes them and produces the response text.
//
// Thread Safety:
//   - Handle is safe for concurrent use if the collaborators are.
type Dispatcher struct {
	auth      Authenticator
	publisher Publisher
	waiter    ReplyWaiter
	events    EventSink
	logger    *logging.Logger
}

// outcome is the result of routing one request.
type outcome struct {
	action   string
	outcome  string
	response string
}

// NewDispatcher creates a Dispatcher.
//
// Returns:
//   - *Dispatcher: Ready to handle requests
//   - error: If Auth, Publisher or Waiter is missing
func NewDispatcher(deps Deps) (*Dispatcher, error) {
	if deps.Auth == nil || deps.Publisher == nil || deps.Waiter == nil {
		return nil, errors.New("relay: dispatcher requires auth, publisher and waiter")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Dispatcher{
		auth:      deps.Auth,
		publisher: deps.Publisher,
		waiter:    deps.Waiter,
		events:    deps.Events,
		logger:    logger.With("component", "dispatcher"),
	}, nil
}

// Handle processes one raw request and returns the text to send back.
//
// Every outcome is a response: malformed input, failed authentication,
// broker errors, reply timeouts and panics inside handling are all
// converted here and never reach the caller as errors.
//
// Parameters:
//   - ctx: Cancels broker work in progress (e.g. on shutdown)
//   - raw: The request body as received
//
// Returns:
//   - string: Response text
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) (response string) {
	start := time.Now()
	res := outcome{action: ActionRejected, outcome: OutcomeInternalError, response: ResponseInternalError}
	var req *Request

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling request",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			res = outcome{action: res.action, outcome: OutcomeInternalError, response: ResponseInternalError}
		}
		d.finish(req, res, time.Since(start))
		response = res.response
	}()

	parsed, err := ParseRequest(raw)
	if err != nil {
		res = rejection(err)
		d.logger.Debug("request rejected", "reason", err)
		return
	}
	req = parsed

	switch req.Kind {
	case KindSalt:
		res = outcome{action: KindSalt.String(), outcome: OutcomeOK, response: d.auth.SaltOf(req.User)}
	case KindCheckAuth:
		res = d.checkAuth(req)
	case KindPublish:
		res = d.publish(ctx, req)
	}

	return
}

// rejection maps a ParseRequest error to its response.
func rejection(err error) outcome {
	if errors.Is(err, ErrMalformedJSON) {
		return outcome{action: ActionRejected, outcome: OutcomeParseError, response: ResponseParseError}
	}
	return outcome{action: ActionRejected, outcome: OutcomeFormatError, response: ResponseFormatError}
}

func (d *Dispatcher) checkAuth(req *Request) outcome {
	if !d.auth.Authenticate(req.User, req.Password) {
		return outcome{action: KindCheckAuth.String(), outcome: OutcomeAuthFailed, response: ResponseAuthFailed}
	}
	d.logger.Info("client login", "user", req.User)
	return outcome{action: ActionLogin, outcome: OutcomeOK, response: ResponseOK}
}

// publish authenticates, then publishes and, for reply topics, waits for
// the device's answer.
func (d *Dispatcher) publish(ctx context.Context, req *Request) outcome {
	replyTopic, wantsReply := mqtt.ReplyTopic(req.Topic)
	action := KindPublish.String()
	if wantsReply {
		action = ActionRequest
	}

	if !d.auth.Authenticate(req.User, req.Password) {
		return outcome{action: action, outcome: OutcomeAuthFailed, response: ResponseAuthFailed}
	}

	payload := []byte(req.Message)

	if !wantsReply {
		if err := d.publisher.Publish(ctx, req.Topic, payload); err != nil {
			d.logger.Warn("publish failed", "topic", req.Topic, "error", err)
			return outcome{action: KindPublish.String(), outcome: OutcomePublishFailed, response: ResponsePublishFailed}
		}
		return outcome{action: KindPublish.String(), outcome: OutcomeOK, response: ResponseOK}
	}

	// The subscription is live before the publish so a fast device reply
	// cannot be missed.
	published := false
	reply, err := d.waiter.AwaitReply(ctx, replyTopic, func(ctx context.Context) error {
		if err := d.publisher.Publish(ctx, req.Topic, payload); err != nil {
			return err
		}
		published = true
		return nil
	})

	switch {
	case err == nil:
		return outcome{action: ActionRequest, outcome: OutcomeOK, response: string(reply)}
	case published && errors.Is(err, mqtt.ErrReplyTimeout):
		d.logger.Warn("no reply before deadline", "topic", replyTopic)
		return outcome{action: ActionRequest, outcome: OutcomeTimeout, response: ResponseReplyTimeout}
	default:
		d.logger.Warn("publish with reply failed", "topic", req.Topic, "reply_topic", replyTopic, "error", err)
		return outcome{action: ActionRequest, outcome: OutcomePublishFailed, response: ResponsePublishFailed}
	}
}

// finish logs the request and hands the event to the sink.
func (d *Dispatcher) finish(req *Request, res outcome, elapsed time.Duration) {
	ev := Event{
		Action:   res.action,
		Outcome:  res.outcome,
		Duration: elapsed,
		At:       time.Now().UTC(),
	}
	if req != nil {
		ev.User = req.User
		ev.Topic = req.Topic
	}

	d.logger.Info("request handled",
		"action", ev.Action,
		"user", ev.User,
		"topic", ev.Topic,
		"outcome", ev.Outcome,
		"duration_ms", elapsed.Milliseconds(),
	)

	if d.events != nil {
		d.events.Record(ev)
	}
}
