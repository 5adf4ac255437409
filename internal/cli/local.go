package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Alloy/internal/actions"
	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/engine"
	"github.com/shaiso/Alloy/internal/memstore"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// RunResult — итог локального выполнения (для --json).
type RunResult struct {
	Execution *ExecutionResponse `json:"execution,omitempty"`
	Logs      []LogResponse      `json:"logs"`
	Error     string             `json:"error,omitempty"`
}

// NewRunCmd создаёт команду локального выполнения файла определения.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var executionID string
	var maxRetries int
	var backoffMs int

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a workflow definition locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			def, err := engine.LoadFile(args[0])
			if err != nil {
				return err
			}
			wf, err := engine.Build(def)
			if err != nil {
				return err
			}

			if executionID == "" {
				executionID = uuid.NewString()
			}

			params := orchestrator.Params{WorkflowID: wf.ID, ExecutionID: executionID}
			if cmd.Flags().Changed("max-retries") {
				params.MaxRetries = &maxRetries
			}
			if cmd.Flags().Changed("backoff-ms") {
				params.BackoffBaseMs = &backoffMs
			}

			return runLocal(cmd.Context(), out, wf, params)
		},
	}

	cmd.Flags().StringVar(&executionID, "execution-id", "", "Execution ID (default: random UUID)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", orchestrator.DefaultMaxRetries, "Retries allowed after the first attempt")
	cmd.Flags().IntVar(&backoffMs, "backoff-ms", orchestrator.DefaultBackoffBaseMs, "Base of exponential backoff in milliseconds")

	return cmd
}

// runLocal выполняет workflow на in-memory хранилищах.
// Записи log-действий идут в stderr.
func runLocal(ctx context.Context, out *Output, wf *domain.Workflow, params orchestrator.Params) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sink := telemetry.NewLogger(out.ErrWriter(), "text", slog.LevelDebug)
	executions := memstore.NewExecutions()
	logs := memstore.NewLogs()

	orch := orchestrator.New(orchestrator.Config{
		Workflows:  memstore.NewWorkflows(wf),
		Executions: executions,
		Logs:       logs,
		Registry:   actions.DefaultRegistry(actions.Config{Logger: sink}),
		// Журнал движка не смешиваем с выводом log-действий
		Logger: telemetry.NewLogger(out.ErrWriter(), "text", slog.LevelWarn),
	})

	_, execErr := orch.Execute(ctx, params)

	// State читаем из хранилища: при ошибке Execute его не возвращает
	result := RunResult{Logs: logsFromDomain(logs.All())}
	if state, err := executions.Find(ctx, params.WorkflowID, params.ExecutionID); err == nil && state != nil {
		result.Execution = executionFromDomain(state)
	}
	if execErr != nil {
		result.Error = execErr.Error()
	}

	if out.IsJSON() {
		out.JSON(result)
	} else {
		if result.Execution != nil {
			printExecution(out, result.Execution)
			fmt.Fprintln(out.w)
		}
		printLogs(out, result.Logs)
	}

	if execErr != nil {
		return execErr
	}
	out.Success(fmt.Sprintf("Execution %s completed", params.ExecutionID))
	return nil
}

// NewValidateCmd создаёт команду проверки файла определения.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a workflow definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			def, err := engine.LoadFile(args[0])
			if err != nil {
				return err
			}
			wf, err := engine.Build(def)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow %s is valid (%d actions, entry %s)",
				wf.ID, wf.Len(), wf.EntryActionID()))
			return nil
		},
	}
}

// --- domain → view ---

func executionFromDomain(s *domain.ExecutionState) *ExecutionResponse {
	return &ExecutionResponse{
		WorkflowID:      s.WorkflowID,
		ExecutionID:     s.ExecutionID,
		CurrentActionID: s.CurrentActionID,
		Completed:       s.Completed,
		Retries:         s.Retries,
		StartedAt:       s.StartedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func logsFromDomain(logs []domain.ExecutionLog) []LogResponse {
	result := make([]LogResponse, len(logs))
	for i, l := range logs {
		result[i] = LogResponse{
			ID:          l.ID,
			WorkflowID:  l.WorkflowID,
			ExecutionID: l.ExecutionID,
			ActionID:    l.ActionID,
			Status:      l.Status.String(),
			Attempt:     l.Attempt,
			Message:     l.Message,
			CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		}
	}
	return result
}

// --- printers ---

func printExecution(out *Output, s *ExecutionResponse) {
	status := "RUNNING"
	if s.Completed {
		status = "COMPLETED"
	}
	out.KeyValue(
		[]string{"WORKFLOW", "EXECUTION", "STATUS", "CURRENT", "RETRIES", "STARTED", "UPDATED"},
		map[string]string{
			"WORKFLOW":  s.WorkflowID,
			"EXECUTION": s.ExecutionID,
			"STATUS":    status,
			"CURRENT":   s.CurrentActionID,
			"RETRIES":   formatRetries(s.Retries),
			"STARTED":   s.StartedAt,
			"UPDATED":   s.UpdatedAt,
		},
	)
}

func printLogs(out *Output, logs []LogResponse) {
	headers := []string{"ACTION", "STATUS", "ATTEMPT", "MESSAGE", "CREATED"}
	rows := make([][]string, len(logs))
	for i, l := range logs {
		rows[i] = []string{l.ActionID, l.Status, strconv.Itoa(l.Attempt), l.Message, l.CreatedAt}
	}
	out.Table(headers, rows)
}
