package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeExecutions Exchange = "alloy.executions"
	ExchangeDLQ        Exchange = "alloy.dlq"
)

// Queues — имена очередей.
const (
	QueueExecutionsRequested Queue = "executions.requested"
	QueueExecutionsFinished  Queue = "executions.finished"
	QueueDLQExecutions       Queue = "dlq.executions"
)

// Routing keys.
const (
	RoutingKeyRequested     RoutingKey = "requested"
	RoutingKeyFinished      RoutingKey = "finished"
	RoutingKeyDLQExecutions RoutingKey = "executions"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// Topology — объявления exchanges, queues и bindings.
type Topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []bindingDecl
}

// DefaultTopology возвращает топологию Alloy.
func DefaultTopology() Topology {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQExecutions),
	}

	return Topology{
		exchanges: []exchangeDecl{
			{ExchangeExecutions, "direct"},
			{ExchangeDLQ, "direct"},
		},
		queues: []queueDecl{
			// executions.requested — с DLQ (битые сообщения уходят в dlq.executions)
			{QueueExecutionsRequested, dlqArgs},

			// executions.finished — без DLQ (события завершения)
			{QueueExecutionsFinished, nil},

			// dlq.executions — сама DLQ очередь
			{QueueDLQExecutions, nil},
		},
		bindings: []bindingDecl{
			{QueueExecutionsRequested, RoutingKeyRequested, ExchangeExecutions},
			{QueueExecutionsFinished, RoutingKeyFinished, ExchangeExecutions},
			{QueueDLQExecutions, RoutingKeyDLQExecutions, ExchangeDLQ},
		},
	}
}

// Declarer — часть amqp.Channel, нужная для объявления топологии.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// SetupTopology объявляет топологию Alloy на соединении.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return DefaultTopology().Declare(ch)
	})
}

// Declare объявляет exchanges, затем queues, затем bindings.
func (t Topology) Declare(ch Declarer) error {
	// 1. Создаём exchanges
	for _, ex := range t.exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	// 2. Создаём queues
	for _, q := range t.queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	// 3. Привязываем queues к exchanges
	for _, b := range t.bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
