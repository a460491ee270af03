package nats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nats-io/nats.go"

	"formledger/internal/bootstrap/logging"
)

func TestHandleMessagePassesBodyWithRequestID(t *testing.T) {
	var gotBody string
	var gotRequestID string
	handler := func(ctx context.Context, data []byte) error {
		gotBody = string(data)
		for _, attr := range logging.Attrs(ctx) {
			if attr.Key == "request_id" {
				gotRequestID = attr.Value.String()
			}
		}
		return nil
	}

	msg := &nats.Msg{Subject: DefaultSubject, Data: []byte(`{"fields":{}}`), Header: nats.Header{}}
	msg.Header.Set("X-Request-Id", "req-42")
	handleMessage(context.Background(), handler, msg)

	if gotBody != `{"fields":{}}` {
		t.Fatalf("body = %q", gotBody)
	}
	if gotRequestID != "req-42" {
		t.Fatalf("request id = %q", gotRequestID)
	}
}

func TestHandleMessageGeneratesRequestIDAndLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "debug", "text"))

	var gotRequestID string
	handler := func(ctx context.Context, _ []byte) error {
		for _, attr := range logging.Attrs(ctx) {
			if attr.Key == "request_id" {
				gotRequestID = attr.Value.String()
			}
		}
		return errors.New("store unavailable")
	}

	handleMessage(ctx, handler, &nats.Msg{Subject: DefaultSubject, Data: []byte(`{}`)})

	if len(gotRequestID) != 36 {
		t.Fatalf("request id = %q, want generated uuid", gotRequestID)
	}
	if !strings.Contains(buf.String(), "submission event dropped") || !strings.Contains(buf.String(), "store unavailable") {
		t.Fatalf("log output = %q", buf.String())
	}
}

func TestHandleMessageOutlivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handlerErr error
	handler := func(ctx context.Context, _ []byte) error {
		handlerErr = ctx.Err()
		return nil
	}

	handleMessage(ctx, handler, &nats.Msg{Subject: DefaultSubject, Data: []byte(`{}`)})

	if handlerErr != nil {
		t.Fatalf("handler context error = %v, want nil during drain", handlerErr)
	}
}
