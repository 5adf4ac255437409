package actions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/shaiso/Alloy/internal/domain"
)

// Handler выполняет побочный эффект одного типа действия.
//
// Любая возвращённая ошибка считается неудачной попыткой: повторы —
// забота оркестратора, handler сам ничего не повторяет.
type Handler interface {
	Handle(ctx context.Context, node *domain.ActionNode) error
}

// HandlerFunc позволяет использовать функцию как Handler.
type HandlerFunc func(ctx context.Context, node *domain.ActionNode) error

// Handle вызывает f(ctx, node).
func (f HandlerFunc) Handle(ctx context.Context, node *domain.ActionNode) error {
	return f(ctx, node)
}

// Registry — неизменяемый реестр handler'ов по типу действия.
//
// Собирается один раз при старте и передаётся в оркестратор.
// Регистрации во время работы нет, поэтому мьютекс не нужен.
type Registry struct {
	handlers map[domain.ActionType]Handler
}

// NewRegistry создаёт реестр из копии переданной map.
func NewRegistry(handlers map[domain.ActionType]Handler) *Registry {
	r := &Registry{handlers: make(map[domain.ActionType]Handler, len(handlers))}
	for t, h := range handlers {
		if h != nil {
			r.handlers[t] = h
		}
	}
	return r
}

// Config — зависимости стандартных handler'ов.
type Config struct {
	// Logger — sink для log-действий (default: slog.Default()).
	Logger *slog.Logger

	// HTTPClient — клиент для http-действий (default: с таймаутом 30s).
	HTTPClient *http.Client
}

// DefaultRegistry создаёт реестр со встроенными handler'ами: log, delay, http.
func DefaultRegistry(cfg Config) *Registry {
	return NewRegistry(map[domain.ActionType]Handler{
		domain.ActionLog:   NewLogHandler(cfg.Logger),
		domain.ActionDelay: NewDelayHandler(),
		domain.ActionHTTP:  NewHTTPHandler(cfg.HTTPClient),
	})
}

// Get возвращает handler для типа действия.
func (r *Registry) Get(actionType domain.ActionType) (Handler, error) {
	h, ok := r.handlers[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, actionType)
	}
	return h, nil
}

// Has проверяет, зарегистрирован ли handler.
func (r *Registry) Has(actionType domain.ActionType) bool {
	_, ok := r.handlers[actionType]
	return ok
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []domain.ActionType {
	types := make([]domain.ActionType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
