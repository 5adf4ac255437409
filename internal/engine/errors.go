package engine

import "errors"

// Ошибки валидации определения workflow.
var (
	// ErrEmptyDefinition — пустой файл или payload.
	ErrEmptyDefinition = errors.New("workflow definition is empty")

	// ErrEmptyWorkflowID — у workflow нет ID.
	ErrEmptyWorkflowID = errors.New("workflow has empty ID")

	// ErrEmptyActions — workflow не содержит действий.
	ErrEmptyActions = errors.New("workflow has no actions")

	// ErrEmptyActionID — действие не имеет ID.
	ErrEmptyActionID = errors.New("action has empty ID")

	// ErrDuplicateActionID — несколько действий с одинаковым ID.
	ErrDuplicateActionID = errors.New("duplicate action ID")

	// ErrUnknownActionType — неизвестный тип действия.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrUnknownSuccessor — next ссылается на несуществующее действие.
	ErrUnknownSuccessor = errors.New("next refers to unknown action")

	// ErrUnknownEntry — entry ссылается на несуществующее действие.
	ErrUnknownEntry = errors.New("entry refers to unknown action")

	// ErrCyclicWorkflow — next-ссылки образуют цикл.
	ErrCyclicWorkflow = errors.New("cyclic workflow")

	// ErrUnknownTrigger — неизвестный тип триггера.
	ErrUnknownTrigger = errors.New("unknown trigger type")

	// ErrInvalidSchedule — cron-выражение отсутствует или некорректно.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	ActionID string // ID действия, где произошла ошибка
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.ActionID != "" {
		return "action " + e.ActionID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(actionID, field, message string, err error) *ValidationError {
	return &ValidationError{
		ActionID: actionID,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
