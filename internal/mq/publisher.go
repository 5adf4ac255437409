package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionRequested MessageType = "execution.requested"
	MessageTypeExecutionFinished  MessageType = "execution.finished"
)

// Статусы в ExecutionFinishedPayload.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionRequestedPayload — запрос на выполнение workflow.
//
// nil в MaxRetries/BackoffBaseMs — значения worker'а по умолчанию.
type ExecutionRequestedPayload struct {
	WorkflowID    string `json:"workflow_id"`
	ExecutionID   string `json:"execution_id"`
	MaxRetries    *int   `json:"max_retries,omitempty"`
	BackoffBaseMs *int   `json:"backoff_base_ms,omitempty"`

	// Source — кто запросил выполнение: "api", "scheduler".
	Source string `json:"source,omitempty"`
}

// ExecutionFinishedPayload — итог выполнения.
type ExecutionFinishedPayload struct {
	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"` // COMPLETED или FAILED
	ActionID    string `json:"action_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	publishing, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			publishing,
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishExecutionRequested публикует запрос на выполнение.
// Потребитель: Worker.
func (p *Publisher) PublishExecutionRequested(ctx context.Context, payload ExecutionRequestedPayload) error {
	msg := p.newMessage(MessageTypeExecutionRequested, payload)
	// MessageId = workflowID/executionID: дубли одного выполнения узнаваемы
	msg.ID = payload.WorkflowID + "/" + payload.ExecutionID
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyRequested, msg)
}

// PublishExecutionFinished публикует итог выполнения.
func (p *Publisher) PublishExecutionFinished(ctx context.Context, payload ExecutionFinishedPayload) error {
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyFinished, p.newMessage(MessageTypeExecutionFinished, payload))
}

func (p *Publisher) newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: p.now(),
	}
}

// encodeMessage сериализует сообщение в persistent AMQP publishing.
func encodeMessage(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}
