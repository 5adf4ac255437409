package api

import (
	"net/http"
	"strings"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		// Путь шаблона без метода — label метрики
		_, path, _ := strings.Cut(pattern, " ")
		chain := Chain(
			Recovery(h.logger),
			Logging(h.logger),
			Metrics(h.metrics, path),
		)
		mux.Handle(pattern, chain(fn))
	}

	// Workflows
	route("POST /api/v1/workflows", h.CreateWorkflow)
	route("GET /api/v1/workflows", h.ListWorkflows)
	route("GET /api/v1/workflows/{id}", h.GetWorkflow)
	route("PUT /api/v1/workflows/{id}", h.UpdateWorkflow)
	route("DELETE /api/v1/workflows/{id}", h.DeleteWorkflow)
	route("GET /api/v1/workflows/{id}/logs", h.ListWorkflowLogs)

	// Executions
	route("POST /api/v1/workflows/{id}/executions", h.Execute)
	route("GET /api/v1/workflows/{id}/executions/{execution_id}", h.GetExecution)
	route("GET /api/v1/workflows/{id}/executions/{execution_id}/logs", h.ListExecutionLogs)
}
