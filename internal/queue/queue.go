// Package queue carries dispatch run triggers over RabbitMQ.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// DispatchQueue receives RunRequest messages.
const DispatchQueue = "dispatch_queue"

// RunRequest asks a worker to perform one dispatch run.
type RunRequest struct {
	RunID       string    `json:"run_id"`
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
	DryRun      bool      `json:"dry_run,omitempty"`
}

// Publisher is the part of *amqp091.Channel used to publish.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// ConnURL builds the broker URL from RABBITMQ_* variables.
func ConnURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

func Init() *amqp091.Connection {
	conn, err := amqp091.Dial(ConnURL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares every queue together with its _retry and _dlq
// companions. Retry queues dead-letter back into the main queue after 10s.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(10000),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}

	return nil
}

func PublishFIFO(ch Publisher, queueName string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		queueName,
		false,
		false,
		publishing,
	)
}

// Enqueue publishes a run request on DispatchQueue.
func Enqueue(ch Publisher, req RunRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal run request: %w", err)
	}
	if err := PublishFIFO(ch, DispatchQueue, data); err != nil {
		return fmt.Errorf("publish run request: %w", err)
	}
	logger.Info("[Queue][Enqueue] Run requested", "run_id", req.RunID, "trigger", req.Trigger)
	return nil
}

// Decode parses a delivery body into a run request.
func Decode(body []byte) (RunRequest, error) {
	var req RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return RunRequest{}, fmt.Errorf("decode run request: %w", err)
	}
	return req, nil
}
