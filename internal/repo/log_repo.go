package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Alloy/internal/domain"
)

// LogRepo — append-only репозиторий workflow_execution_logs.
type LogRepo struct {
	pool *pgxpool.Pool
}

// NewLogRepo создаёт новый LogRepo.
func NewLogRepo(pool *pgxpool.Pool) *LogRepo {
	return &LogRepo{pool: pool}
}

// Create добавляет запись журнала.
func (r *LogRepo) Create(ctx context.Context, log *domain.ExecutionLog) error {
	query := `
		INSERT INTO workflow_execution_logs (id, workflow_id, execution_id, action_id,
		                                     status, attempt, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.WorkflowID,
		log.ExecutionID,
		log.ActionID,
		log.Status,
		log.Attempt,
		nullString(log.Message),
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution log: %w", err)
	}
	return nil
}

// ListByExecution возвращает журнал одного выполнения по времени.
func (r *LogRepo) ListByExecution(ctx context.Context, workflowID, executionID string) ([]domain.ExecutionLog, error) {
	query := `
		SELECT id, workflow_id, execution_id, action_id, status, attempt, message, created_at
		FROM workflow_execution_logs
		WHERE workflow_id = $1 AND execution_id = $2
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, workflowID, executionID)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	return scanLogs(rows)
}

// ListByWorkflow возвращает журнал всех выполнений workflow по времени.
func (r *LogRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]domain.ExecutionLog, error) {
	query := `
		SELECT id, workflow_id, execution_id, action_id, status, attempt, message, created_at
		FROM workflow_execution_logs
		WHERE workflow_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	return scanLogs(rows)
}

func scanLogs(rows pgx.Rows) ([]domain.ExecutionLog, error) {
	defer rows.Close()

	logs := []domain.ExecutionLog{}
	for rows.Next() {
		var l domain.ExecutionLog
		var message *string
		if err := rows.Scan(
			&l.ID,
			&l.WorkflowID,
			&l.ExecutionID,
			&l.ActionID,
			&l.Status,
			&l.Attempt,
			&message,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		l.Message = derefString(message)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
