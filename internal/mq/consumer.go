package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Ошибки разбора и обработки execution.requested.
var (
	// ErrReject — сообщение нельзя обработать ни сейчас, ни позже.
	// Такое сообщение уходит в DLQ без requeue.
	ErrReject = errors.New("message rejected")

	// ErrInvalidRequest — в запросе нет workflow_id или execution_id.
	ErrInvalidRequest = errors.New("invalid execution request")

	// ErrUnexpectedType — в очереди запросов сообщение другого типа.
	ErrUnexpectedType = errors.New("unexpected message type")
)

// ExecutionRequest — разобранное сообщение execution.requested.
type ExecutionRequest struct {
	ExecutionRequestedPayload

	// MessageID — id сообщения (workflowID/executionID у Publisher'а).
	MessageID string

	// Redelivered — сообщение уже доставлялось и не было подтверждено.
	Redelivered bool
}

// RequestHandler обрабатывает запрос на выполнение.
//
// nil — ack. Ошибка, обёрнутая в ErrReject, — в DLQ.
// Любая другая ошибка — requeue: состояние выполнения сохранено,
// повторная доставка его продолжит.
type RequestHandler func(ctx context.Context, req ExecutionRequest) error

// envelope — Message с payload, который ещё не разобран.
type envelope struct {
	ID      string          `json:"id"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeExecutionRequest разбирает тело сообщения execution.requested.
// Все ошибки обёрнуты в ErrReject: повторная доставка их не исправит.
func DecodeExecutionRequest(body []byte) (ExecutionRequest, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ExecutionRequest{}, fmt.Errorf("%w: decode message: %v", ErrReject, err)
	}
	if env.Type != MessageTypeExecutionRequested {
		return ExecutionRequest{}, fmt.Errorf("%w: %w: %q", ErrReject, ErrUnexpectedType, env.Type)
	}

	req := ExecutionRequest{MessageID: env.ID}
	if err := json.Unmarshal(env.Payload, &req.ExecutionRequestedPayload); err != nil {
		return ExecutionRequest{}, fmt.Errorf("%w: decode payload: %v", ErrReject, err)
	}
	if req.WorkflowID == "" || req.ExecutionID == "" {
		return ExecutionRequest{}, fmt.Errorf("%w: %w", ErrReject, ErrInvalidRequest)
	}
	return req, nil
}

// outcome — что сделать с сообщением после обработки.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeReject
)

func outcomeOf(err error) outcome {
	switch {
	case err == nil:
		return outcomeAck
	case errors.Is(err, ErrReject):
		return outcomeReject
	default:
		return outcomeRequeue
	}
}

// RequestConsumer читает очередь executions.requested.
type RequestConsumer struct {
	conn     *Connection
	queue    Queue
	prefetch int
	handler  RequestHandler
	logger   *slog.Logger
}

// RequestConsumerConfig — конфигурация RequestConsumer.
type RequestConsumerConfig struct {
	// Queue — очередь запросов (default: executions.requested).
	Queue Queue

	// Prefetch — сколько неподтверждённых сообщений держать (default: 1).
	Prefetch int

	Handler RequestHandler
}

// NewRequestConsumer создаёт RequestConsumer.
func NewRequestConsumer(conn *Connection, logger *slog.Logger, cfg RequestConsumerConfig) *RequestConsumer {
	if logger == nil {
		logger = slog.Default()
	}

	queue := cfg.Queue
	if queue == "" {
		queue = QueueExecutionsRequested
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &RequestConsumer{
		conn:     conn,
		queue:    queue,
		prefetch: prefetch,
		handler:  cfg.Handler,
		logger:   logger.With("queue", string(queue)),
	}
}

// Run потребляет очередь до отмены ctx или закрытия соединения.
// После разрыва подписка восстанавливается на новой сессии.
func (c *RequestConsumer) Run(ctx context.Context) error {
	for {
		ch, err := c.conn.Session(ctx)
		if err != nil {
			return err
		}

		deliveries, err := c.subscribe(ch)
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(minRedialDelay):
			}
			continue
		}

		c.logger.Info("consumer subscribed", "prefetch", c.prefetch)
		if err := c.drain(ctx, deliveries); err != nil {
			return err
		}
		c.logger.Warn("deliveries channel closed, resubscribing")
	}
}

func (c *RequestConsumer) subscribe(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// auto-ack выключен: подтверждаем после обработки
	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения, пока канал доставки открыт.
// Возвращает ошибку только при отмене ctx.
func (c *RequestConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.settle(d, c.handle(ctx, d))
		}
	}
}

// handle разбирает сообщение и передаёт его handler'у.
func (c *RequestConsumer) handle(ctx context.Context, d amqp.Delivery) error {
	req, err := DecodeExecutionRequest(d.Body)
	if err != nil {
		return err
	}
	req.Redelivered = d.Redelivered

	c.logger.Debug("received execution request",
		"message_id", req.MessageID,
		"workflow_id", req.WorkflowID,
		"execution_id", req.ExecutionID,
		"redelivered", req.Redelivered,
	)
	return c.handler(ctx, req)
}

// settle подтверждает, возвращает в очередь или отклоняет сообщение.
func (c *RequestConsumer) settle(d amqp.Delivery, err error) {
	var ackErr error

	switch outcomeOf(err) {
	case outcomeAck:
		ackErr = d.Ack(false)
	case outcomeReject:
		c.logger.Error("execution request rejected", "message_id", d.MessageId, "error", err)
		ackErr = d.Nack(false, false)
	case outcomeRequeue:
		c.logger.Warn("execution request requeued", "message_id", d.MessageId, "error", err)
		ackErr = d.Nack(false, true)
	}

	if ackErr != nil {
		// Канал закрыт: брокер вернёт сообщение в очередь сам
		c.logger.Warn("failed to settle delivery", "message_id", d.MessageId, "error", ackErr)
	}
}
