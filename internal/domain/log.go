package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionLog — запись журнала выполнения.
//
// Журнал append-only: одна запись на финальный исход узла
// (успех или исчерпание попыток). Промежуточные retry не пишутся.
type ExecutionLog struct {
	// ID — уникальный идентификатор записи.
	ID string `json:"id"`

	// WorkflowID — workflow, к которому относится запись.
	WorkflowID string `json:"workflow_id"`

	// ExecutionID — выполнение, к которому относится запись.
	ExecutionID string `json:"execution_id"`

	// ActionID — узел, исход которого записан.
	ActionID string `json:"action_id"`

	// Status — итог: success, failed или skipped.
	Status LogStatus `json:"status"`

	// Attempt — число неудачных попыток на момент записи.
	Attempt int `json:"attempt"`

	// Message — текст последней ошибки (для failed).
	Message string `json:"message,omitempty"`

	// CreatedAt — время записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewExecutionLog создаёт запись журнала с новым ID.
func NewExecutionLog(state *ExecutionState, actionID string, status LogStatus, attempt int, message string, now time.Time) *ExecutionLog {
	return &ExecutionLog{
		ID:          uuid.New().String(),
		WorkflowID:  state.WorkflowID,
		ExecutionID: state.ExecutionID,
		ActionID:    actionID,
		Status:      status,
		Attempt:     attempt,
		Message:     message,
		CreatedAt:   now,
	}
}
