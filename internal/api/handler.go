package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// WorkflowStore — хранилище workflow. Реализуется repo.WorkflowRepo и memstore.Workflows.
type WorkflowStore interface {
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
	List(ctx context.Context) ([]*domain.Workflow, error)
	Create(ctx context.Context, wf *domain.Workflow) error
	Update(ctx context.Context, wf *domain.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionReader читает состояние выполнения. Отсутствие — (nil, nil).
type ExecutionReader interface {
	Find(ctx context.Context, workflowID, executionID string) (*domain.ExecutionState, error)
}

// LogReader читает журнал выполнения.
type LogReader interface {
	ListByExecution(ctx context.Context, workflowID, executionID string) ([]domain.ExecutionLog, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]domain.ExecutionLog, error)
}

// Executor выполняет workflow синхронно.
type Executor interface {
	Execute(ctx context.Context, p orchestrator.Params) (*domain.ExecutionState, error)
}

// RequestPublisher ставит выполнение в очередь.
type RequestPublisher interface {
	PublishExecutionRequested(ctx context.Context, payload mq.ExecutionRequestedPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows  WorkflowStore
	executions ExecutionReader
	logs       LogReader
	executor   Executor
	publisher  RequestPublisher
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	newID      func() string
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows  WorkflowStore
	Executions ExecutionReader
	Logs       LogReader

	// Executor — для синхронного запуска.
	Executor Executor

	// Publisher — для асинхронного запуска. nil — async недоступен.
	Publisher RequestPublisher

	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// NewID генерирует execution id (default: uuid.NewString).
	NewID func() string
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newID := cfg.NewID
	if newID == nil {
		newID = newExecutionID
	}

	return &Handler{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		logs:       cfg.Logs,
		executor:   cfg.Executor,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		logger:     logger,
		newID:      newID,
	}
}
