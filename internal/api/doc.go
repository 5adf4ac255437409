// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (хранилища, orchestrator, publisher, metrics)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (recovery, logging, metrics)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — обработчики для /workflows
//   - execution_handler.go — запуск выполнения, state и журнал
//
// Любая ошибка выполнения workflow отдаётся клиенту как 500:
// API не различает виды отказа движка.
package api
