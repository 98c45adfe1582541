package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{key: key, msg: msg})
	return nil
}

type fakeAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return nil
}

func TestEnqueueRoundTrip(t *testing.T) {
	ch := &fakeChannel{}
	if err := Enqueue(ch, RunRequest{RunID: "r1", Trigger: "api"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ch.out) != 1 || ch.out[0].key != DispatchQueue {
		t.Fatalf("expected one message on %s, got %v", DispatchQueue, ch.out)
	}
	req, err := Decode(ch.out[0].msg.Body)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if req.RunID != "r1" || req.RequestedAt.IsZero() {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestHandleProcessingErrorRetries(t *testing.T) {
	ch := &fakeChannel{}
	ack := &fakeAck{}
	msg := amqp.Delivery{Acknowledger: ack, Body: []byte("{}"), Headers: amqp.Table{"x-retries": int32(1)}}

	HandleProcessingError(ch, msg, DispatchQueue, 3)

	if len(ch.out) != 1 || ch.out[0].key != "dispatch_queue_retry" {
		t.Fatalf("expected retry publish, got %v", ch.out)
	}
	if got := ch.out[0].msg.Headers["x-retries"]; got != int32(2) {
		t.Fatalf("expected x-retries 2, got %v", got)
	}
	if msg.Headers["x-retries"] != int32(1) {
		t.Fatal("expected original headers to stay untouched")
	}
	if ack.acked != 1 {
		t.Fatalf("expected original to be acked, got %d", ack.acked)
	}
}

func TestHandleProcessingErrorDeadLetters(t *testing.T) {
	ch := &fakeChannel{}
	ack := &fakeAck{}
	msg := amqp.Delivery{Acknowledger: ack, Headers: amqp.Table{"x-retries": int32(3)}}

	HandleProcessingError(ch, msg, DispatchQueue, 3)

	if len(ch.out) != 1 || ch.out[0].key != "dispatch_queue_dlq" {
		t.Fatalf("expected dlq publish, got %v", ch.out)
	}
}

func TestHandleProcessingErrorRequeuesOnPublishFailure(t *testing.T) {
	ch := &fakeChannel{err: errors.New("closed")}
	ack := &fakeAck{}
	msg := amqp.Delivery{Acknowledger: ack}

	HandleProcessingError(ch, msg, DispatchQueue, 3)

	if ack.nacked != 1 || !ack.requeue {
		t.Fatalf("expected nack with requeue, got %+v", ack)
	}
}

func TestWorkerHandleAcksOnSuccess(t *testing.T) {
	var got RunRequest
	w := &Worker{Handler: func(ctx context.Context, req RunRequest) error {
		got = req
		return nil
	}}
	ch := &fakeChannel{}
	ack := &fakeAck{}

	w.handle(context.Background(), ch, amqp.Delivery{Acknowledger: ack, Body: []byte(`{"run_id":"r9","trigger":"cron"}`)})

	if got.RunID != "r9" || ack.acked != 1 || len(ch.out) != 0 {
		t.Fatalf("expected ack without republish, got req=%+v ack=%+v out=%v", got, ack, ch.out)
	}
}

func TestWorkerHandleDeadLettersMalformed(t *testing.T) {
	called := false
	w := &Worker{Handler: func(ctx context.Context, req RunRequest) error {
		called = true
		return nil
	}}
	ch := &fakeChannel{}

	w.handle(context.Background(), ch, amqp.Delivery{Acknowledger: &fakeAck{}, Body: []byte("not json")})

	if called {
		t.Fatal("expected handler not to run")
	}
	if len(ch.out) != 1 || ch.out[0].key != "dispatch_queue_dlq" {
		t.Fatalf("expected dlq publish, got %v", ch.out)
	}
}
