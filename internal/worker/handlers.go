package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// handleRequested обрабатывает событие execution.requested.
//
// Возвращаемая ошибка определяет судьбу сообщения (см. mq.RequestHandler):
// nil — ack, mq.ErrReject — в DLQ, остальное — requeue.
func (w *Worker) handleRequested(ctx context.Context, req mq.ExecutionRequest) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}
	return w.process(ctx, req)
}

// process выполняет workflow и публикует итог.
func (w *Worker) process(ctx context.Context, req mq.ExecutionRequest) error {
	logger := telemetry.WithExecutionID(telemetry.WithWorkflowID(w.logger, req.WorkflowID), req.ExecutionID)
	logger.Debug("received execution.requested", "source", req.Source, "redelivered", req.Redelivered)

	params := orchestrator.Params{
		WorkflowID:    req.WorkflowID,
		ExecutionID:   req.ExecutionID,
		MaxRetries:    req.MaxRetries,
		BackoffBaseMs: req.BackoffBaseMs,
	}
	if params.MaxRetries == nil {
		params.MaxRetries = w.maxRetries
	}
	if params.BackoffBaseMs == nil {
		params.BackoffBaseMs = w.backoffBaseMs
	}

	// 1. Выполняем
	_, execErr := w.executor.Execute(ctx, params)

	finished := mq.ExecutionFinishedPayload{
		WorkflowID:  req.WorkflowID,
		ExecutionID: req.ExecutionID,
		Status:      mq.StatusCompleted,
	}

	// 2. Классифицируем ошибку
	if execErr != nil {
		if !orchestrator.IsTerminal(execErr) {
			// Состояние сохранено, повторная доставка продолжит выполнение
			logger.Warn("execution interrupted, requeue", "error", execErr)
			return fmt.Errorf("execute: %w", execErr)
		}

		finished.Status = mq.StatusFailed
		finished.Error = execErr.Error()

		var failed *orchestrator.FailedExecuteError
		if errors.As(execErr, &failed) {
			finished.ActionID = failed.ActionID
		}
		logger.Warn("execution failed", "action_id", finished.ActionID, "error", execErr)
	}

	// 3. Публикуем итог. Ошибка публикации — requeue: повтор идемпотентен.
	if err := w.publisher.PublishExecutionFinished(ctx, finished); err != nil {
		return fmt.Errorf("publish execution.finished: %w", err)
	}

	logger.Info("execution finished", "status", finished.Status)
	return nil
}
