package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// Execute запускает или продолжает выполнение workflow.
// POST /api/v1/workflows/{id}/executions
//
// Синхронный запуск отвечает 200 с итоговым state, асинхронный — 202.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("id")

	// Тело необязательно
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	if req.ExecutionID == "" {
		req.ExecutionID = h.newID()
	}

	logger := telemetry.WithExecutionID(telemetry.WithWorkflowID(h.logger, workflowID), req.ExecutionID)

	if req.Async {
		if h.publisher == nil {
			Unavailable(w, "async execution is not configured")
			return
		}

		err := h.publisher.PublishExecutionRequested(r.Context(), mq.ExecutionRequestedPayload{
			WorkflowID:    workflowID,
			ExecutionID:   req.ExecutionID,
			MaxRetries:    req.MaxRetries,
			BackoffBaseMs: req.BackoffBaseMs,
			Source:        "api",
		})
		if err != nil {
			InternalError(w, logger, err)
			return
		}

		logger.Info("execution queued")
		Accepted(w, ExecutionAcceptedResponse{
			WorkflowID:  workflowID,
			ExecutionID: req.ExecutionID,
			Status:      ExecutionStatusQueued,
		})
		return
	}

	// Отключение клиента не прерывает начатое выполнение
	state, err := h.executor.Execute(context.WithoutCancel(r.Context()), orchestrator.Params{
		WorkflowID:    workflowID,
		ExecutionID:   req.ExecutionID,
		MaxRetries:    req.MaxRetries,
		BackoffBaseMs: req.BackoffBaseMs,
	})
	if err != nil {
		ExecutionFailed(w, logger, err)
		return
	}

	Success(w, ExecutionFromDomain(state))
}

// GetExecution возвращает состояние выполнения.
// GET /api/v1/workflows/{id}/executions/{execution_id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	state, err := h.executions.Find(r.Context(), r.PathValue("id"), r.PathValue("execution_id"))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if state == nil {
		NotFound(w, "execution not found")
		return
	}

	Success(w, ExecutionFromDomain(state))
}

// ListExecutionLogs возвращает журнал одного выполнения.
// GET /api/v1/workflows/{id}/executions/{execution_id}/logs
func (h *Handler) ListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.ListByExecution(r.Context(), r.PathValue("id"), r.PathValue("execution_id"))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := LogsFromDomain(logs)
	List(w, result, len(result))
}
