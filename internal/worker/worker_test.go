package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/Alloy/internal/actions"
	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/memstore"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
)

// --- fakes ---

type fakeExecutor struct {
	calls []orchestrator.Params
	err   error
}

func (f *fakeExecutor) Execute(_ context.Context, p orchestrator.Params) (*domain.ExecutionState, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	state := domain.NewExecutionState(p.WorkflowID, p.ExecutionID, time.Now())
	state.Advance("")
	return state, nil
}

type fakePublisher struct {
	published []mq.ExecutionFinishedPayload
	err       error
}

func (f *fakePublisher) PublishExecutionFinished(_ context.Context, p mq.ExecutionFinishedPayload) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, p)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(p mq.ExecutionRequestedPayload) mq.ExecutionRequest {
	return mq.ExecutionRequest{ExecutionRequestedPayload: p, MessageID: p.WorkflowID + "/" + p.ExecutionID}
}

func intPtr(v int) *int { return &v }

// --- handleRequested Tests ---

func TestHandleRequested_Completed(t *testing.T) {
	exec := &fakeExecutor{}
	pub := &fakePublisher{}
	w := New(Config{Executor: exec, Publisher: pub, Logger: discardLogger()})

	err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{
		WorkflowID:  "wf-1",
		ExecutionID: "exec-1",
		Source:      "api",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exec.calls) != 1 || exec.calls[0].WorkflowID != "wf-1" || exec.calls[0].ExecutionID != "exec-1" {
		t.Fatalf("unexpected executor calls: %+v", exec.calls)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 finished event, got %d", len(pub.published))
	}
	if got := pub.published[0]; got.Status != mq.StatusCompleted || got.Error != "" {
		t.Errorf("unexpected finished payload: %+v", got)
	}
}

func TestHandleRequested_AppliesDefaults(t *testing.T) {
	exec := &fakeExecutor{}
	w := New(Config{
		Executor:      exec,
		Publisher:     &fakePublisher{},
		MaxRetries:    intPtr(7),
		BackoffBaseMs: intPtr(50),
		Logger:        discardLogger(),
	})

	// Запрос без своих значений получает значения воркера
	_ = w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "wf", ExecutionID: "e1"}))
	// Собственные значения запроса приоритетнее
	_ = w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{
		WorkflowID: "wf", ExecutionID: "e2", MaxRetries: intPtr(1), BackoffBaseMs: intPtr(10),
	}))

	if len(exec.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(exec.calls))
	}
	if *exec.calls[0].MaxRetries != 7 || *exec.calls[0].BackoffBaseMs != 50 {
		t.Errorf("defaults not applied: %+v", exec.calls[0])
	}
	if *exec.calls[1].MaxRetries != 1 || *exec.calls[1].BackoffBaseMs != 10 {
		t.Errorf("request values should win: %+v", exec.calls[1])
	}
}

func TestHandleRequested_TerminalFailureAcks(t *testing.T) {
	boom := errors.New("connection refused")
	exec := &fakeExecutor{err: &orchestrator.FailedExecuteError{ActionID: "B", Message: boom.Error(), Err: boom}}
	pub := &fakePublisher{}
	w := New(Config{Executor: exec, Publisher: pub, Logger: discardLogger()})

	err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "wf", ExecutionID: "e"}))
	if err != nil {
		t.Fatalf("terminal failure should be acked, got %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 finished event, got %d", len(pub.published))
	}
	got := pub.published[0]
	if got.Status != mq.StatusFailed || got.ActionID != "B" || got.Error == "" {
		t.Errorf("unexpected finished payload: %+v", got)
	}
}

func TestHandleRequested_WorkflowNotFoundAcks(t *testing.T) {
	exec := &fakeExecutor{err: orchestrator.ErrWorkflowNotFound}
	pub := &fakePublisher{}
	w := New(Config{Executor: exec, Publisher: pub, Logger: discardLogger()})

	if err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "x", ExecutionID: "e"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].Status != mq.StatusFailed || pub.published[0].ActionID != "" {
		t.Errorf("unexpected finished events: %+v", pub.published)
	}
}

func TestHandleRequested_InfrastructureErrorRequeues(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("update execution state: connection reset")}
	pub := &fakePublisher{}
	w := New(Config{Executor: exec, Publisher: pub, Logger: discardLogger()})

	err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "wf", ExecutionID: "e"}))
	if err == nil {
		t.Fatal("expected error for requeue")
	}
	if errors.Is(err, mq.ErrReject) {
		t.Error("infrastructure error must not go to DLQ")
	}
	if len(pub.published) != 0 {
		t.Errorf("nothing should be published, got %+v", pub.published)
	}
}

func TestHandleRequested_PublishErrorRequeues(t *testing.T) {
	w := New(Config{
		Executor:  &fakeExecutor{},
		Publisher: &fakePublisher{err: errors.New("channel closed")},
		Logger:    discardLogger(),
	})

	err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "wf", ExecutionID: "e"}))
	if err == nil || errors.Is(err, mq.ErrReject) {
		t.Errorf("expected requeue error, got %v", err)
	}
}

func TestHandleRequested_Stopped(t *testing.T) {
	exec := &fakeExecutor{}
	w := New(Config{Executor: exec, Publisher: &fakePublisher{}, Logger: discardLogger()})
	w.Stop()

	err := w.handleRequested(context.Background(), request(mq.ExecutionRequestedPayload{WorkflowID: "wf", ExecutionID: "e"}))
	if !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped, got %v", err)
	}
	if !w.IsStopped() {
		t.Error("worker should report stopped")
	}
}

// --- Worker + Orchestrator ---

func TestHandleRequested_WithOrchestrator(t *testing.T) {
	wf := domain.NewWorkflow("wf-1", domain.TriggerWebhook)
	_ = wf.AddAction(domain.ActionNode{ID: "A", Type: domain.ActionLog, Params: map[string]any{"message": "a"}, Next: []string{"B"}})
	_ = wf.AddAction(domain.ActionNode{ID: "B", Type: domain.ActionLog, Params: map[string]any{"message": "b"}})

	executions := memstore.NewExecutions()
	logs := memstore.NewLogs()
	orch := orchestrator.New(orchestrator.Config{
		Workflows:  memstore.NewWorkflows(wf),
		Executions: executions,
		Logs:       logs,
		Registry:   actions.DefaultRegistry(actions.Config{Logger: discardLogger()}),
		Logger:     discardLogger(),
	})

	pub := &fakePublisher{}
	w := New(Config{Executor: orch, Publisher: pub, Logger: discardLogger()})

	req := request(mq.ExecutionRequestedPayload{WorkflowID: "wf-1", ExecutionID: "exec-1"})
	if err := w.handleRequested(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ := executions.Find(context.Background(), "wf-1", "exec-1")
	if state == nil || !state.Completed {
		t.Fatalf("expected completed state, got %+v", state)
	}
	if n := len(logs.All()); n != 2 {
		t.Errorf("expected 2 log entries, got %d", n)
	}

	// Повторная доставка: выполнение не повторяется
	req.Redelivered = true
	if err := w.handleRequested(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if n := len(logs.All()); n != 2 {
		t.Errorf("redelivery should not add logs, got %d", n)
	}
	if len(pub.published) != 2 || pub.published[1].Status != mq.StatusCompleted {
		t.Errorf("unexpected finished events: %+v", pub.published)
	}
}
