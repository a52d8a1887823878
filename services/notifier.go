package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const eventQueue = "complaint_events"

var (
	amqpConn    *amqp.Connection
	amqpChannel *amqp.Channel
)

// ComplaintEvent is published after every successful lifecycle transition so
// downstream consumers (notification service, dashboards) can react without
// polling.
type ComplaintEvent struct {
	ComplaintID string    `json:"complaintId"`
	Status      string    `json:"status"`
	ActorID     string    `json:"actorId"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ConnectNotifier dials RabbitMQ and declares the event queue. Returns an
// error when RABBITMQ_URL is unset; event publishing stays disabled then.
func ConnectNotifier() error {
	uri := os.Getenv("RABBITMQ_URL")
	if uri == "" {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(eventQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	amqpConn = conn
	amqpChannel = ch
	log.Println("Connected to RabbitMQ")
	return nil
}

// CloseNotifier releases the RabbitMQ connection.
func CloseNotifier() {
	if amqpChannel != nil {
		amqpChannel.Close()
	}
	if amqpConn != nil {
		amqpConn.Close()
	}
}

// PublishEvent sends a complaint lifecycle event. Best-effort: failures are
// logged and never surfaced to the request that triggered the transition.
func PublishEvent(event ComplaintEvent) {
	if amqpChannel == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal complaint event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = amqpChannel.PublishWithContext(ctx,
		"",
		eventQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    event.Timestamp,
		})
	if err != nil {
		log.Printf("Failed to publish complaint event: %v", err)
	}
}
