package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Alloy/internal/domain"
)

// Workflows — in-memory хранилище workflow.
//
// Workflow неизменяем с точки зрения движка, поэтому хранится указатель.
type Workflows struct {
	mu    sync.RWMutex
	items map[string]*domain.Workflow
}

// NewWorkflows создаёт хранилище с начальным набором workflow.
func NewWorkflows(wfs ...*domain.Workflow) *Workflows {
	s := &Workflows{items: make(map[string]*domain.Workflow)}
	for _, wf := range wfs {
		s.items[wf.ID] = wf
	}
	return s
}

// Put сохраняет workflow, заменяя существующий.
func (s *Workflows) Put(wf *domain.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[wf.ID] = wf
}

// Create сохраняет новый workflow.
func (s *Workflows) Create(_ context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[wf.ID]; ok {
		return fmt.Errorf("%w: workflow %s", ErrAlreadyExists, wf.ID)
	}
	s.items[wf.ID] = wf
	return nil
}

// FindByID возвращает workflow или (nil, nil).
func (s *Workflows) FindByID(_ context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id], nil
}

// ListByTrigger возвращает workflow с указанным триггером, отсортированные по ID.
func (s *Workflows) ListByTrigger(_ context.Context, trigger domain.TriggerType) ([]*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Workflow
	for _, wf := range s.items {
		if wf.TriggerType == trigger {
			out = append(out, wf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List возвращает все workflow, отсортированные по ID.
func (s *Workflows) List(_ context.Context) ([]*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Workflow, 0, len(s.items))
	for _, wf := range s.items {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update заменяет существующий workflow.
func (s *Workflows) Update(_ context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[wf.ID]; !ok {
		return fmt.Errorf("%w: workflow %s", ErrNotFound, wf.ID)
	}
	s.items[wf.ID] = wf
	return nil
}

// Delete удаляет workflow.
func (s *Workflows) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: workflow %s", ErrNotFound, id)
	}
	delete(s.items, id)
	return nil
}
