package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Alloy/internal/engine"
)

// maxDefinitionSize — предел тела запроса с определением workflow.
const maxDefinitionSize = 1 << 20

// CreateWorkflow создаёт workflow из определения (JSON или YAML).
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	def, ok := readDefinition(w, r)
	if !ok {
		return
	}

	wf, err := engine.Build(def)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	if err := h.workflows.Create(r.Context(), wf); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("workflow created", "workflow_id", wf.ID, "actions", wf.Len())
	Created(w, WorkflowFromDomain(wf))
}

// ListWorkflows возвращает все workflow.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := h.workflows.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(wfs))
	for i, wf := range wfs {
		result[i] = WorkflowFromDomain(wf)
	}
	List(w, result, len(result))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.FindByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if wf == nil {
		NotFound(w, "workflow not found")
		return
	}

	Success(w, WorkflowFromDomain(wf))
}

// UpdateWorkflow заменяет определение workflow.
// PUT /api/v1/workflows/{id}
//
// ID в теле можно опустить; если он указан, он должен совпадать с путём.
// Время и автор создания сохраняются.
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	def, ok := readDefinition(w, r)
	if !ok {
		return
	}
	if def.ID == "" {
		def.ID = id
	}
	if def.ID != id {
		BadRequest(w, fmt.Sprintf("definition id %q does not match path id %q", def.ID, id))
		return
	}

	existing, err := h.workflows.FindByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if existing == nil {
		NotFound(w, "workflow not found")
		return
	}

	def.CreatedBy = existing.CreatedBy
	wf, err := engine.Build(def)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = time.Now()

	if err := h.workflows.Update(r.Context(), wf); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	h.logger.Info("workflow updated", "workflow_id", wf.ID, "actions", wf.Len())
	Success(w, WorkflowFromDomain(wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.workflows.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	h.logger.Info("workflow deleted", "workflow_id", id)
	NoContent(w)
}

// ListWorkflowLogs возвращает журнал всех выполнений workflow.
// GET /api/v1/workflows/{id}/logs
func (h *Handler) ListWorkflowLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.ListByWorkflow(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := LogsFromDomain(logs)
	List(w, result, len(result))
}

// readDefinition читает и разбирает определение из тела запроса.
// При ошибке ответ уже отправлен и возвращается false.
func readDefinition(w http.ResponseWriter, r *http.Request) (*engine.Definition, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDefinitionSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			PayloadTooLarge(w, fmt.Sprintf("definition exceeds %d bytes", maxDefinitionSize))
			return nil, false
		}
		BadRequest(w, "invalid request body")
		return nil, false
	}

	def, err := engine.ParseDefinition(body)
	if err != nil {
		BadRequest(w, err.Error())
		return nil, false
	}
	return def, true
}
