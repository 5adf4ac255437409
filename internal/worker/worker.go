package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
)

// Default configuration values.
const (
	defaultPrefetch = 5
)

// Executor выполняет workflow. Реализуется *orchestrator.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, p orchestrator.Params) (*domain.ExecutionState, error)
}

// FinishedPublisher публикует итог выполнения. Реализуется *mq.Publisher.
type FinishedPublisher interface {
	PublishExecutionFinished(ctx context.Context, payload mq.ExecutionFinishedPayload) error
}

// Worker выполняет workflow по сообщениям execution.requested.
type Worker struct {
	executor  Executor
	publisher FinishedPublisher
	conn      *mq.Connection

	// Значения по умолчанию, если в запросе их нет
	maxRetries    *int
	backoffBaseMs *int

	consumer *mq.RequestConsumer
	prefetch int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Executor  Executor
	Publisher FinishedPublisher

	// Conn — нужен только для Start.
	Conn *mq.Connection

	// Prefetch — сколько сообщений брать из очереди одновременно (default: 5).
	Prefetch int

	// MaxRetries и BackoffBaseMs — значения для запросов без своих.
	// nil — значения orchestrator'а по умолчанию.
	MaxRetries    *int
	BackoffBaseMs *int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		executor:      cfg.Executor,
		publisher:     cfg.Publisher,
		conn:          cfg.Conn,
		maxRetries:    cfg.MaxRetries,
		backoffBaseMs: cfg.BackoffBaseMs,
		prefetch:      prefetch,
		logger:        logger,
	}
}

// Start запускает consumer очереди executions.requested.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "prefetch", w.prefetch)

	w.consumer = mq.NewRequestConsumer(w.conn, w.logger, mq.RequestConsumerConfig{
		Handler:  w.handleRequested,
		Prefetch: w.prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mq.ErrConnectionClosed) {
			w.logger.Error("execution consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения обработки.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
