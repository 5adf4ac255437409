package memstore

import (
	"context"
	"sync"

	"github.com/shaiso/Alloy/internal/domain"
)

// Logs — in-memory append-only журнал выполнения.
type Logs struct {
	mu      sync.RWMutex
	entries []domain.ExecutionLog
}

// NewLogs создаёт пустой журнал.
func NewLogs() *Logs {
	return &Logs{}
}

// Create добавляет запись в журнал.
func (s *Logs) Create(_ context.Context, log *domain.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *log)
	return nil
}

// ListByExecution возвращает записи выполнения в порядке добавления.
func (s *Logs) ListByExecution(_ context.Context, workflowID, executionID string) ([]domain.ExecutionLog, error) {
	return s.filter(func(l *domain.ExecutionLog) bool {
		return l.WorkflowID == workflowID && l.ExecutionID == executionID
	}), nil
}

// ListByWorkflow возвращает все записи workflow в порядке добавления.
func (s *Logs) ListByWorkflow(_ context.Context, workflowID string) ([]domain.ExecutionLog, error) {
	return s.filter(func(l *domain.ExecutionLog) bool {
		return l.WorkflowID == workflowID
	}), nil
}

// All возвращает копию всего журнала.
func (s *Logs) All() []domain.ExecutionLog {
	return s.filter(func(*domain.ExecutionLog) bool { return true })
}

func (s *Logs) filter(match func(*domain.ExecutionLog) bool) []domain.ExecutionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ExecutionLog{}
	for i := range s.entries {
		if match(&s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}
