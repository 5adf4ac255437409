// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — сессия с RabbitMQ, переподключение в фоне
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — разбор и потребление execution.requested
//
// Типы сообщений:
//   - execution.requested — запрошено выполнение workflow (API, Scheduler → Worker)
//   - execution.finished  — выполнение завершено или упало (Worker → подписчики)
//
// Exchanges:
//   - alloy.executions — события выполнений
//   - alloy.dlq        — dead letter queue
package mq
