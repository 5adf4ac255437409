package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Alloy/internal/domain"
)

func TestExecutions_CreateFindUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewExecutions()

	got, err := s.Find(ctx, "wf", "exec")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for missing state, got (%v, %v)", got, err)
	}

	state := domain.NewExecutionState("wf", "exec", time.Now())
	if err := s.Create(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create(ctx, state); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	// Изменения после сохранения не видны в хранилище
	state.RecordFailure("A")
	got, _ = s.Find(ctx, "wf", "exec")
	if got.Attempt("A") != 0 {
		t.Error("store should keep its own copy")
	}

	if err := s.Update(ctx, state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = s.Find(ctx, "wf", "exec")
	if got.Attempt("A") != 1 {
		t.Errorf("expected attempt 1 after update, got %d", got.Attempt("A"))
	}

	if s.Writes() != 2 {
		t.Errorf("expected 2 writes, got %d", s.Writes())
	}
}

func TestExecutions_UpdateMissing(t *testing.T) {
	s := NewExecutions()
	err := s.Update(context.Background(), domain.NewExecutionState("wf", "x", time.Now()))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLogs_List(t *testing.T) {
	ctx := context.Background()
	s := NewLogs()

	e1 := domain.NewExecutionState("wf", "e1", time.Now())
	e2 := domain.NewExecutionState("wf", "e2", time.Now())
	other := domain.NewExecutionState("other", "e1", time.Now())

	_ = s.Create(ctx, domain.NewExecutionLog(e1, "A", domain.LogStatusSuccess, 0, "", time.Now()))
	_ = s.Create(ctx, domain.NewExecutionLog(e1, "B", domain.LogStatusFailed, 2, "boom", time.Now()))
	_ = s.Create(ctx, domain.NewExecutionLog(e2, "A", domain.LogStatusSuccess, 0, "", time.Now()))
	_ = s.Create(ctx, domain.NewExecutionLog(other, "A", domain.LogStatusSuccess, 0, "", time.Now()))

	byExec, _ := s.ListByExecution(ctx, "wf", "e1")
	if len(byExec) != 2 || byExec[0].ActionID != "A" || byExec[1].ActionID != "B" {
		t.Errorf("unexpected execution logs: %+v", byExec)
	}

	byWf, _ := s.ListByWorkflow(ctx, "wf")
	if len(byWf) != 3 {
		t.Errorf("expected 3 workflow logs, got %d", len(byWf))
	}

	empty, _ := s.ListByExecution(ctx, "wf", "missing")
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestWorkflows_ListByTrigger(t *testing.T) {
	ctx := context.Background()
	s := NewWorkflows(
		domain.NewWorkflow("b", domain.TriggerTime),
		domain.NewWorkflow("a", domain.TriggerTime),
		domain.NewWorkflow("hook", domain.TriggerWebhook),
	)

	if err := s.Create(ctx, domain.NewWorkflow("a", domain.TriggerTime)); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	wfs, _ := s.ListByTrigger(ctx, domain.TriggerTime)
	if len(wfs) != 2 || wfs[0].ID != "a" || wfs[1].ID != "b" {
		t.Errorf("unexpected list: %v", wfs)
	}

	wf, err := s.FindByID(ctx, "missing")
	if wf != nil || err != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", wf, err)
	}
}

func TestWorkflows_ListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewWorkflows(domain.NewWorkflow("b", domain.TriggerWebhook), domain.NewWorkflow("a", domain.TriggerTime))

	list, err := s.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("unexpected list: %v (%v)", list, err)
	}

	updated := domain.NewWorkflow("a", domain.TriggerWebhook)
	updated.Title = "renamed"
	if err := s.Update(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.FindByID(ctx, "a")
	if got.Title != "renamed" {
		t.Errorf("expected updated workflow, got %+v", got)
	}
	if err := s.Update(ctx, domain.NewWorkflow("missing", domain.TriggerWebhook)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := s.FindByID(ctx, "a"); got != nil {
		t.Error("workflow should be deleted")
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
