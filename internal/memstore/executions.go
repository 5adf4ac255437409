package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/shaiso/Alloy/internal/domain"
)

type executionKey struct {
	workflowID  string
	executionID string
}

// Executions — in-memory хранилище ExecutionState.
type Executions struct {
	mu    sync.RWMutex
	items map[executionKey]*domain.ExecutionState

	// writes — число успешных Create/Update.
	writes int
}

// NewExecutions создаёт пустое хранилище.
func NewExecutions() *Executions {
	return &Executions{items: make(map[executionKey]*domain.ExecutionState)}
}

// Find возвращает копию состояния или (nil, nil).
func (s *Executions) Find(_ context.Context, workflowID, executionID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.items[executionKey{workflowID, executionID}]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

// Create сохраняет новое состояние.
func (s *Executions) Create(_ context.Context, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey{state.WorkflowID, state.ExecutionID}
	if _, ok := s.items[key]; ok {
		return fmt.Errorf("%w: execution %s/%s", ErrAlreadyExists, state.WorkflowID, state.ExecutionID)
	}
	s.items[key] = state.Clone()
	s.writes++
	return nil
}

// Update перезаписывает существующее состояние.
func (s *Executions) Update(_ context.Context, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := executionKey{state.WorkflowID, state.ExecutionID}
	if _, ok := s.items[key]; !ok {
		return fmt.Errorf("%w: execution %s/%s", ErrNotFound, state.WorkflowID, state.ExecutionID)
	}
	s.items[key] = state.Clone()
	s.writes++
	return nil
}

// Writes возвращает число успешных записей.
func (s *Executions) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
