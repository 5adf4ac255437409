package domain

import "errors"

// Ошибки модели workflow.
var (
	// ErrEmptyActionID — у узла нет ID.
	ErrEmptyActionID = errors.New("action has empty ID")

	// ErrDuplicateAction — узел с таким ID уже есть в workflow.
	ErrDuplicateAction = errors.New("duplicate action ID")

	// ErrUnknownActionType — тип действия не входит в перечисление.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrCyclicWorkflow — next-ссылки образуют цикл.
	ErrCyclicWorkflow = errors.New("cycle detected in workflow")

	// ErrActionNotFound — узел не найден в workflow.
	ErrActionNotFound = errors.New("action node not found")
)
