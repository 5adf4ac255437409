package orchestrator

import (
	"errors"
	"fmt"
)

// Ошибки оркестратора.
var (
	// ErrWorkflowNotFound — workflow с таким ID нет.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowHasNoActions — не удалось определить точку входа.
	ErrWorkflowHasNoActions = errors.New("workflow has no actions")

	// ErrNoHandlerForType — для типа действия не зарегистрирован handler.
	ErrNoHandlerForType = errors.New("no handler for action type")

	// ErrCorruptWorkflow — next-ссылка или сохранённый узел указывает
	// на несуществующее действие.
	ErrCorruptWorkflow = errors.New("corrupt workflow graph")

	// ErrFailedExecuteWorkflow — действие исчерпало попытки.
	ErrFailedExecuteWorkflow = errors.New("failed to execute workflow")
)

// FailedExecuteError — действие упало maxRetries+1 раз.
//
// errors.Is(err, ErrFailedExecuteWorkflow) == true,
// errors.Unwrap возвращает последнюю ошибку handler'а.
type FailedExecuteError struct {
	ActionID string
	Message  string
	Err      error
}

// Error реализует интерфейс error.
func (e *FailedExecuteError) Error() string {
	return fmt.Sprintf("%s: action %s: %s", ErrFailedExecuteWorkflow, e.ActionID, e.Message)
}

// Unwrap возвращает ошибку handler'а.
func (e *FailedExecuteError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с ErrFailedExecuteWorkflow.
func (e *FailedExecuteError) Is(target error) bool {
	return target == ErrFailedExecuteWorkflow
}

// IsTerminal сообщает, что ошибка относится к самому выполнению,
// а не к инфраструктуре: повторный вызов с теми же параметрами
// даст тот же результат.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrWorkflowHasNoActions) ||
		errors.Is(err, ErrNoHandlerForType) ||
		errors.Is(err, ErrFailedExecuteWorkflow) ||
		errors.Is(err, ErrCorruptWorkflow)
}
