package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler performs the work requested by one message.
type Handler func(ctx context.Context, req RunRequest) error

// Worker consumes DispatchQueue one message at a time.
type Worker struct {
	Conn       *amqp.Connection
	Handler    Handler
	MaxRetries int
}

// Run blocks until ctx is done or the delivery channel closes.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := SetupQueues(ch, []string{DispatchQueue}); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		DispatchQueue,
		DispatchQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger.Info("[Queue][Worker] Listening for messages", "queue", DispatchQueue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue][Worker] Stopping consumer")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue][Worker] Message channel closed")
				return nil
			}
			w.handle(ctx, ch, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, ch Publisher, msg amqp.Delivery) {
	startTime := time.Now()
	req, err := Decode(msg.Body)
	if err != nil {
		// malformed bodies never succeed on retry
		logger.Error("[Queue][Worker] Dropping malformed message", "err", err)
		deadLetter(ch, msg, DispatchQueue)
		return
	}

	logger.Info("[Queue][Worker] Received run request", "run_id", req.RunID, "trigger", req.Trigger)
	if err := w.Handler(ctx, req); err != nil {
		logger.Error("[Queue][Worker] Error processing message", "run_id", req.RunID, "err", err)
		HandleProcessingError(ch, msg, DispatchQueue, w.maxRetries())
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue][Worker] Failed to ack message", "err", err)
	}
	logger.Info("[Queue][Worker] Message processed successfully", "run_id", req.RunID, "duration", time.Since(startTime).Round(time.Second))
}

func (w *Worker) maxRetries() int {
	if w.MaxRetries <= 0 {
		return 3
	}
	return w.MaxRetries
}

func retryCount(headers amqp.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// HandleProcessingError republishes msg on the retry queue, or on the dead
// letter queue once maxRetries is reached, then acks the original.
func HandleProcessingError(ch Publisher, msg amqp.Delivery, queueName string, maxRetries int) {
	retries := retryCount(msg.Headers)
	if retries >= maxRetries {
		deadLetter(ch, msg, queueName)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

func deadLetter(ch Publisher, msg amqp.Delivery, queueName string) {
	dlqName := queueName + "_dlq"
	logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
	pubErr := ch.Publish(
		"",
		dlqName,
		false,
		false,
		amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     msg.Headers,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
