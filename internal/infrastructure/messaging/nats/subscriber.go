// Package nats feeds "submission accepted" events from a NATS subject into
// capture.
package nats

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

const DefaultSubject = "forms.submission.accepted"

type Config struct {
	URL           string
	Name          string
	Subject       string
	Queue         string
	Token         string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Handler processes one message body. Errors are logged and the message is
// dropped; there is no redelivery.
type Handler func(ctx context.Context, data []byte) error

type Subscriber struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	queue   string
}

func Connect(ctx context.Context, cfg Config) (*Subscriber, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = DefaultSubject
	}
	name := cfg.Name
	if name == "" {
		name = "formledger"
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.nats"), slog.String("url", url))
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logging.Info(logCtx, "nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	logging.Info(logCtx, "nats connected")

	return &Subscriber{conn: conn, subject: subject, queue: strings.TrimSpace(cfg.Queue)}, nil
}

// Start subscribes handler. Messages are handled one at a time.
func (s *Subscriber) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}

	dispatch := func(msg *nats.Msg) {
		handleMessage(ctx, handler, msg)
	}

	var err error
	if s.queue != "" {
		s.sub, err = s.conn.QueueSubscribe(s.subject, s.queue, dispatch)
	} else {
		s.sub, err = s.conn.Subscribe(s.subject, dispatch)
	}
	if err != nil {
		return errs.Wrapf(err, "subscribe %q", s.subject)
	}

	logging.Info(ctx, "nats subscription started",
		slog.String("subject", s.subject),
		slog.String("queue", s.queue),
	)
	return nil
}

// Close drains pending messages and closes the connection.
func (s *Subscriber) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return errs.Wrap(err, "drain nats")
	}
	return nil
}

func handleMessage(ctx context.Context, handler Handler, msg *nats.Msg) {
	requestID := ""
	if msg.Header != nil {
		requestID = msg.Header.Get("X-Request-Id")
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	// Drain runs after the serve context is cancelled; in-flight messages still get stored.
	msgCtx := logging.WithRequestID(context.WithoutCancel(ctx), requestID)
	msgCtx = logging.WithAttrs(msgCtx, slog.String("nats_subject", msg.Subject))
	if err := handler(msgCtx, msg.Data); err != nil {
		logging.Error(msgCtx, "submission event dropped", slog.Any("err", errs.Loggable(err)))
	}
}
