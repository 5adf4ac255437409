package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/engine"
)

// Workflow DTOs

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	*engine.Definition
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		Definition: engine.FromWorkflow(wf),
		CreatedAt:  wf.CreatedAt,
		UpdatedAt:  wf.UpdatedAt,
	}
}

// Execution DTOs

// ExecuteRequest — запрос на запуск выполнения.
//
// Пустой execution_id — сервер генерирует новый.
// Передача существующего продолжает выполнение.
type ExecuteRequest struct {
	ExecutionID   string `json:"execution_id,omitempty"`
	MaxRetries    *int   `json:"max_retries,omitempty"`
	BackoffBaseMs *int   `json:"backoff_base_ms,omitempty"`
	Async         bool   `json:"async,omitempty"`
}

// ExecutionAcceptedResponse — ответ на асинхронный запуск.
type ExecutionAcceptedResponse struct {
	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// ExecutionStatusQueued — статус асинхронного запуска.
const ExecutionStatusQueued = "QUEUED"

// ExecutionResponse — ответ с состоянием выполнения.
type ExecutionResponse struct {
	WorkflowID      string         `json:"workflow_id"`
	ExecutionID     string         `json:"execution_id"`
	CurrentActionID string         `json:"current_action_id,omitempty"`
	Completed       bool           `json:"completed"`
	Retries         map[string]int `json:"retries"`
	StartedAt       time.Time      `json:"started_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ExecutionFromDomain конвертирует domain.ExecutionState в ExecutionResponse.
func ExecutionFromDomain(s *domain.ExecutionState) ExecutionResponse {
	retries := s.Retries
	if retries == nil {
		retries = map[string]int{}
	}
	return ExecutionResponse{
		WorkflowID:      s.WorkflowID,
		ExecutionID:     s.ExecutionID,
		CurrentActionID: s.CurrentActionID,
		Completed:       s.Completed,
		Retries:         retries,
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Log DTOs

// LogResponse — запись журнала выполнения.
type LogResponse struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	ActionID    string    `json:"action_id"`
	Status      string    `json:"status"`
	Attempt     int       `json:"attempt"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogsFromDomain конвертирует записи журнала.
func LogsFromDomain(logs []domain.ExecutionLog) []LogResponse {
	result := make([]LogResponse, len(logs))
	for i, l := range logs {
		result[i] = LogResponse{
			ID:          l.ID,
			WorkflowID:  l.WorkflowID,
			ExecutionID: l.ExecutionID,
			ActionID:    l.ActionID,
			Status:      l.Status.String(),
			Attempt:     l.Attempt,
			Message:     l.Message,
			CreatedAt:   l.CreatedAt,
		}
	}
	return result
}

func newExecutionID() string {
	return uuid.NewString()
}
