package actions

import "errors"

// Ошибки action-handler'ов.
var (
	// ErrNoHandler — для типа действия не зарегистрирован handler.
	ErrNoHandler = errors.New("no handler for action type")

	// ErrInvalidParams — параметры узла не прошли проверку.
	ErrInvalidParams = errors.New("invalid action params")

	// ErrCancelled — выполнение прервано через context.
	ErrCancelled = errors.New("action cancelled")

	// ErrHTTPRequest — HTTP-запрос не удалось выполнить.
	ErrHTTPRequest = errors.New("http request failed")
)
