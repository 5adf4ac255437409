package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Alloy/internal/domain"
)

// ExecutionRepo — репозиторий workflow_executions.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create сохраняет новое состояние выполнения.
func (r *ExecutionRepo) Create(ctx context.Context, state *domain.ExecutionState) error {
	retriesJSON, err := encodeRetries(state.Retries)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_executions (workflow_id, execution_id, current_action_id,
		                                 completed, retries, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		state.WorkflowID,
		state.ExecutionID,
		nullString(state.CurrentActionID),
		state.Completed,
		retriesJSON,
		state.StartedAt,
		state.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: execution %s/%s", ErrAlreadyExists, state.WorkflowID, state.ExecutionID)
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Find возвращает состояние или (nil, nil), если его нет.
func (r *ExecutionRepo) Find(ctx context.Context, workflowID, executionID string) (*domain.ExecutionState, error) {
	state, err := r.Get(ctx, workflowID, executionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return state, err
}

// Get возвращает состояние по ключу или ErrNotFound.
func (r *ExecutionRepo) Get(ctx context.Context, workflowID, executionID string) (*domain.ExecutionState, error) {
	query := `
		SELECT workflow_id, execution_id, current_action_id, completed,
		       retries, started_at, updated_at
		FROM workflow_executions
		WHERE workflow_id = $1 AND execution_id = $2
	`

	var state domain.ExecutionState
	var current *string
	var retriesJSON []byte

	err := r.pool.QueryRow(ctx, query, workflowID, executionID).Scan(
		&state.WorkflowID,
		&state.ExecutionID,
		&current,
		&state.Completed,
		&retriesJSON,
		&state.StartedAt,
		&state.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	state.CurrentActionID = derefString(current)
	state.Retries, err = decodeRetries(retriesJSON)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Update перезаписывает состояние по (workflow_id, execution_id).
func (r *ExecutionRepo) Update(ctx context.Context, state *domain.ExecutionState) error {
	retriesJSON, err := encodeRetries(state.Retries)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_executions
		SET current_action_id = $3, completed = $4, retries = $5, updated_at = $6
		WHERE workflow_id = $1 AND execution_id = $2
	`
	result, err := r.pool.Exec(ctx, query,
		state.WorkflowID,
		state.ExecutionID,
		nullString(state.CurrentActionID),
		state.Completed,
		retriesJSON,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeRetries(retries map[string]int) ([]byte, error) {
	if retries == nil {
		retries = map[string]int{}
	}
	data, err := json.Marshal(retries)
	if err != nil {
		return nil, fmt.Errorf("marshal retries: %w", err)
	}
	return data, nil
}

func decodeRetries(data []byte) (map[string]int, error) {
	retries := make(map[string]int)
	if len(data) == 0 {
		return retries, nil
	}
	if err := json.Unmarshal(data, &retries); err != nil {
		return nil, fmt.Errorf("unmarshal retries: %w", err)
	}
	return retries, nil
}
