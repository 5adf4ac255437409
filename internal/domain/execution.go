package domain

import "time"

// ExecutionState — прогресс одного выполнения workflow.
//
// Ключ — пара (WorkflowID, ExecutionID). State — единственный источник
// истины для возобновления: после рестарта выполнение продолжается
// с CurrentActionID, а не с точки входа.
type ExecutionState struct {
	// WorkflowID — выполняемый workflow.
	WorkflowID string `json:"workflow_id"`

	// ExecutionID — идентификатор выполнения, задаётся вызывающей стороной.
	ExecutionID string `json:"execution_id"`

	// CurrentActionID — узел, который выполняется следующим.
	// Пустая строка — выполнение ещё не начато (старт с точки входа)
	// либо завершено.
	CurrentActionID string `json:"current_action_id,omitempty"`

	// Completed — выполнение дошло до терминального узла.
	Completed bool `json:"completed"`

	// Retries — счётчик неудачных попыток по каждому узлу (actionID → attempts).
	// Внутри одного выполнения значения только растут.
	Retries map[string]int `json:"retries"`

	// StartedAt — время создания state.
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt — время последнего сохранения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExecutionState создаёт state для нового выполнения.
func NewExecutionState(workflowID, executionID string, now time.Time) *ExecutionState {
	return &ExecutionState{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Retries:     make(map[string]int),
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// CurrentOr возвращает текущий узел или entry, если выполнение не начато.
func (s *ExecutionState) CurrentOr(entry string) string {
	if s.CurrentActionID != "" {
		return s.CurrentActionID
	}
	return entry
}

// Attempt возвращает число уже потраченных попыток узла.
func (s *ExecutionState) Attempt(actionID string) int {
	return s.Retries[actionID]
}

// RecordFailure увеличивает счётчик попыток узла и возвращает новое значение.
func (s *ExecutionState) RecordFailure(actionID string) int {
	if s.Retries == nil {
		s.Retries = make(map[string]int)
	}
	s.Retries[actionID]++
	return s.Retries[actionID]
}

// Advance переводит выполнение на следующий узел.
// Пустой nextID завершает выполнение.
func (s *ExecutionState) Advance(nextID string) {
	s.CurrentActionID = nextID
	s.Completed = nextID == ""
}

// Touch обновляет UpdatedAt перед сохранением.
func (s *ExecutionState) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Clone возвращает глубокую копию state.
func (s *ExecutionState) Clone() *ExecutionState {
	c := *s
	c.Retries = make(map[string]int, len(s.Retries))
	for k, v := range s.Retries {
		c.Retries[k] = v
	}
	return &c
}
