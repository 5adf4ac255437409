// Package actions содержит handler'ы action-узлов.
//
// # Handler
//
// Каждый тип действия реализует один метод:
//
//	type Handler interface {
//	    Handle(ctx context.Context, node *domain.ActionNode) error
//	}
//
// Реализации:
//   - LogHandler — сообщение в slog (message, level)
//   - DelayHandler — пауза на ms миллисекунд
//   - HTTPHandler — один исходящий HTTP-запрос (url, method, headers, body)
//
// # Registry
//
// Registry сопоставляет тег domain.ActionType с Handler. Реестр собирается
// один раз (NewRegistry или DefaultRegistry) и передаётся в оркестратор
// через Config — глобального реестра нет.
//
// # Ошибки
//
// Handler не различает временные и постоянные ошибки: любая ошибка тратит
// одну попытку у оркестратора. Для диагностики ошибки обёрнуты в
// ErrInvalidParams, ErrHTTPRequest (в т.ч. *HTTPError) или ErrCancelled.
package actions
