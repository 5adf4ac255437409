package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shaiso/Alloy/internal/actions"
	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// Default configuration values.
const (
	DefaultMaxRetries    = 3
	DefaultBackoffBaseMs = 500
)

// WorkflowFinder загружает workflow.
// Отсутствие workflow — (nil, nil).
type WorkflowFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
}

// ExecutionStore хранит ExecutionState по ключу (workflowID, executionID).
// Find возвращает (nil, nil), если состояния нет.
type ExecutionStore interface {
	Find(ctx context.Context, workflowID, executionID string) (*domain.ExecutionState, error)
	Create(ctx context.Context, state *domain.ExecutionState) error
	Update(ctx context.Context, state *domain.ExecutionState) error
}

// LogStore — append-only журнал итогов действий.
type LogStore interface {
	Create(ctx context.Context, log *domain.ExecutionLog) error
}

// Orchestrator выполняет workflow.
//
// Один Orchestrator безопасно обслуживает параллельные вызовы Execute
// для разных (workflowID, executionID). Вызовы с одинаковой парой
// друг от друга не защищены: сериализация — забота ExecutionStore.
type Orchestrator struct {
	workflows  WorkflowFinder
	executions ExecutionStore
	logs       LogStore
	registry   *actions.Registry

	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Collaborators
	Workflows  WorkflowFinder
	Executions ExecutionStore
	Logs       LogStore

	// Registry — handlers по типам действий (default: actions.DefaultRegistry).
	Registry *actions.Registry

	// Metrics — опционально.
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger

	// Now и Sleep подменяются в тестах.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = actions.DefaultRegistry(actions.Config{Logger: logger})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Orchestrator{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		logs:       cfg.Logs,
		registry:   registry,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        now,
		sleep:      sleep,
	}
}

// Params — параметры одного вызова Execute.
type Params struct {
	WorkflowID  string
	ExecutionID string

	// MaxRetries — сколько повторов разрешено после первой попытки
	// (default: 3). Всего попыток на узел: MaxRetries+1.
	MaxRetries *int

	// BackoffBaseMs — база exponential backoff (default: 500).
	// Пауза перед повтором: base * 2^(attempt-1).
	BackoffBaseMs *int
}

func (p Params) maxRetries() int {
	if p.MaxRetries == nil || *p.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return *p.MaxRetries
}

func (p Params) backoffBase() time.Duration {
	if p.BackoffBaseMs == nil || *p.BackoffBaseMs < 0 {
		return DefaultBackoffBaseMs * time.Millisecond
	}
	return time.Duration(*p.BackoffBaseMs) * time.Millisecond
}

// Execute выполняет (или продолжает) выполнение workflow.
//
// Уже завершённое выполнение возвращается как есть, handlers не вызываются.
// Перед любой фатальной ошибкой, возникшей после загрузки состояния,
// состояние сохраняется.
func (o *Orchestrator) Execute(ctx context.Context, p Params) (*domain.ExecutionState, error) {
	maxRetries := p.maxRetries()
	backoffBase := p.backoffBase()

	logger := telemetry.WithExecutionID(telemetry.WithWorkflowID(o.logger, p.WorkflowID), p.ExecutionID)

	// 1. Загружаем workflow
	wf, err := o.workflows.FindByID(ctx, p.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("find workflow: %w", err)
	}
	if wf == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, p.WorkflowID)
	}

	// 2. Загружаем или создаём состояние
	state, err := o.loadState(ctx, p.WorkflowID, p.ExecutionID)
	if err != nil {
		return nil, err
	}
	if state.Completed {
		logger.Debug("execution already completed")
		return state, nil
	}

	// 3. Цикл по узлам
	for !state.Completed {
		entry := wf.EntryActionID()
		currentID := state.CurrentOr(entry)
		if currentID == "" {
			return nil, o.fail(ctx, state, fmt.Errorf("%w: %s", ErrWorkflowHasNoActions, wf.ID))
		}

		node, err := wf.Action(currentID)
		if err != nil {
			return nil, o.fail(ctx, state, fmt.Errorf("%w: %w", ErrCorruptWorkflow, err))
		}

		// Handler ищем до первой попытки
		handler, err := o.registry.Get(node.Type)
		if err != nil {
			return nil, o.fail(ctx, state, fmt.Errorf("%w: %s (action %s)", ErrNoHandlerForType, node.Type, node.ID))
		}

		// Фиксируем текущий узел, чтобы точка отказа была видна в state
		state.CurrentActionID = node.ID

		actionLogger := telemetry.WithActionID(logger, node.ID)
		actionLogger.Debug("executing action", "type", node.Type)

		res, err := o.runWithRetry(ctx, state, node, handler, maxRetries, backoffBase, actionLogger)
		if err != nil {
			return nil, o.fail(ctx, state, err)
		}
		attempt := res.attempt

		if res.lastErr != nil {
			return nil, o.failAction(ctx, state, node, attempt, res.lastErr, actionLogger)
		}

		// Успех: журнал, переход по первому successor, сохранение
		if err := o.appendLog(ctx, state, node.ID, domain.LogStatusSuccess, attempt, ""); err != nil {
			return nil, o.fail(ctx, state, err)
		}
		o.metrics.ObserveAction(string(node.Type), domain.LogStatusSuccess.String())
		actionLogger.Info("action succeeded", "type", node.Type, "attempt", attempt)

		state.Advance(node.NextID())
		state.Touch(o.now())
		if err := o.executions.Update(ctx, state); err != nil {
			return nil, fmt.Errorf("update execution state: %w", err)
		}
	}

	o.metrics.ObserveExecution("completed")
	logger.Info("execution completed")

	return state, nil
}

// retryResult — итог retry-цикла одного узла.
type retryResult struct {
	attempt int

	// lastErr — последняя ошибка handler'а. nil — узел выполнен.
	lastErr error
}

// runWithRetry вызывает handler, пока он не выполнится успешно
// или attempt не превысит maxRetries.
//
// Ошибка возвращается только при прерывании (отмена контекста).
func (o *Orchestrator) runWithRetry(
	ctx context.Context,
	state *domain.ExecutionState,
	node *domain.ActionNode,
	handler actions.Handler,
	maxRetries int,
	backoffBase time.Duration,
	logger *slog.Logger,
) (retryResult, error) {
	attempt := state.Attempt(node.ID)

	// Узел уже исчерпал попытки в прошлом вызове
	if attempt > maxRetries {
		return retryResult{attempt: attempt, lastErr: fmt.Errorf("retries exhausted (%d attempts)", attempt)}, nil
	}

	for {
		start := o.now()
		err := handler.Handle(ctx, node)
		o.metrics.ObserveDuration(string(node.Type), o.now().Sub(start))
		if err == nil {
			return retryResult{attempt: attempt}, nil
		}

		// Отмена не расходует попытку
		if ctx.Err() != nil {
			return retryResult{attempt: attempt}, fmt.Errorf("execution interrupted at action %s: %w", node.ID, ctx.Err())
		}

		attempt = state.RecordFailure(node.ID)
		if attempt > maxRetries {
			return retryResult{attempt: attempt, lastErr: err}, nil
		}

		delay := backoff(backoffBase, attempt)
		o.metrics.ObserveRetry(string(node.Type))
		logger.Debug("retrying action",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		if err := o.sleep(ctx, delay); err != nil {
			return retryResult{attempt: attempt}, fmt.Errorf("execution interrupted at action %s: %w", node.ID, err)
		}
	}
}

// failAction записывает failed log, сохраняет состояние
// и возвращает FailedExecuteError.
func (o *Orchestrator) failAction(
	ctx context.Context,
	state *domain.ExecutionState,
	node *domain.ActionNode,
	attempt int,
	lastErr error,
	logger *slog.Logger,
) error {
	message := lastErr.Error()

	o.metrics.ObserveAction(string(node.Type), domain.LogStatusFailed.String())
	logger.Warn("action failed",
		"type", node.Type,
		"attempt", attempt,
		"error", message,
	)

	failed := &FailedExecuteError{
		ActionID: node.ID,
		Message:  message,
		Err:      lastErr,
	}

	// Без записи в журнале отказ действия всё равно остаётся итогом
	if err := o.appendLog(ctx, state, node.ID, domain.LogStatusFailed, attempt, message); err != nil {
		return o.fail(ctx, state, errors.Join(failed, err))
	}

	return o.fail(ctx, state, failed)
}

// fail сохраняет состояние и возвращает cause.
// Сохранение выполняется даже при отменённом контексте.
func (o *Orchestrator) fail(ctx context.Context, state *domain.ExecutionState, cause error) error {
	state.Touch(o.now())

	if err := o.executions.Update(context.WithoutCancel(ctx), state); err != nil {
		o.logger.Error("failed to persist execution state",
			"workflow_id", state.WorkflowID,
			"execution_id", state.ExecutionID,
			"error", err,
		)
		return errors.Join(cause, fmt.Errorf("update execution state: %w", err))
	}

	if IsTerminal(cause) {
		o.metrics.ObserveExecution("failed")
	} else {
		o.metrics.ObserveExecution("error")
	}
	return cause
}

// loadState загружает состояние или создаёт новое с ID вызывающей стороны.
func (o *Orchestrator) loadState(ctx context.Context, workflowID, executionID string) (*domain.ExecutionState, error) {
	state, err := o.executions.Find(ctx, workflowID, executionID)
	if err != nil {
		return nil, fmt.Errorf("find execution state: %w", err)
	}
	if state != nil {
		if state.Retries == nil {
			state.Retries = make(map[string]int)
		}
		return state, nil
	}

	state = domain.NewExecutionState(workflowID, executionID, o.now())
	if err := o.executions.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("create execution state: %w", err)
	}
	return state, nil
}

func (o *Orchestrator) appendLog(
	ctx context.Context,
	state *domain.ExecutionState,
	actionID string,
	status domain.LogStatus,
	attempt int,
	message string,
) error {
	entry := domain.NewExecutionLog(state, actionID, status, attempt, message, o.now())
	if err := o.logs.Create(ctx, entry); err != nil {
		return fmt.Errorf("create execution log: %w", err)
	}
	return nil
}

// backoff возвращает base * 2^(attempt-1). attempt считается с 1.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(2, float64(attempt-1))
	d := float64(base) * factor
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// sleepContext ждёт d или отмены контекста.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
