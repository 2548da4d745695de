package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const chatExchange = "chat_events"

// ChatEvent - сообщение для получателя, которое надо доставить в его сокеты.
type ChatEvent struct {
	To        int64     `json:"to"`
	From      int64     `json:"from"`
	MessageID int64     `json:"messageId"`
	Text      string    `json:"text,omitempty"`
	MediaType *string   `json:"mediaType,omitempty"`
	MediaURL  *string   `json:"mediaUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReceivedMessage is the receive-message payload pushed to the recipient.
type ReceivedMessage struct {
	From      int64     `json:"from"`
	Text      string    `json:"text"`
	MediaType *string   `json:"mediaType,omitempty"`
	MediaURL  *string   `json:"mediaUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRelay carries persisted messages to whichever instance holds the recipient's socket.
type ChatRelay interface {
	Publish(ctx context.Context, event ChatEvent) error
}

func deliverLocal(m *WSConnManager, event ChatEvent) int {
	n, err := SendWsEvent(m, event.To, "receive-message", ReceivedMessage{
		From:      event.From,
		Text:      event.Text,
		MediaType: event.MediaType,
		MediaURL:  event.MediaURL,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		slog.Warn("failed to encode chat event", "to", event.To, "error", err)
	}
	return n
}

// DirectRelay delivers to sockets of this process only.
type DirectRelay struct {
	manager *WSConnManager
}

func NewDirectRelay(manager *WSConnManager) *DirectRelay {
	return &DirectRelay{manager: manager}
}

func (r *DirectRelay) Publish(_ context.Context, event ChatEvent) error {
	deliverLocal(r.manager, event)
	chatMessagesTotal.WithLabelValues("direct").Inc()
	return nil
}

// RabbitRelay publishes to the chat_events topic exchange with routing key user.<id>.
// Every instance consumes through its own exclusive queue and pushes to local sockets.
type RabbitRelay struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	manager *WSConnManager
}

// InitRabbitMQ инициализирует соединение и exchange
func InitRabbitMQ(url string, manager *WSConnManager) (*RabbitRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	// Создаем exchange типа topic
	if err := channel.ExchangeDeclare(
		chatExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	slog.Info("RabbitMQ initialized", "exchange", chatExchange)
	return &RabbitRelay{conn: conn, channel: channel, manager: manager}, nil
}

func (r *RabbitRelay) Publish(ctx context.Context, event ChatEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = r.channel.PublishWithContext(ctx,
		chatExchange,
		fmt.Sprintf("user.%d", event.To),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   event.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish chat event: %w", err)
	}
	chatMessagesTotal.WithLabelValues("rabbitmq").Inc()
	return nil
}

// StartConsumer binds a server-named exclusive queue to user.* and pushes events to local sockets.
func (r *RabbitRelay) StartConsumer(ctx context.Context) error {
	q, err := r.channel.QueueDeclare(
		"",
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "user.*", chatExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := r.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("chat event consumer channel closed")
					return
				}
				var event ChatEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					slog.Warn("failed to unmarshal chat event", "error", err)
					continue
				}
				deliverLocal(r.manager, event)
			}
		}
	}()
	return nil
}

func (r *RabbitRelay) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
