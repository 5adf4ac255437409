package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Alloy/internal/domain"
)

// WorkflowRepo — репозиторий workflows и action_nodes.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create сохраняет workflow вместе с узлами в одной транзакции.
// Порядок узлов сохраняется в колонке position.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO workflows (id, title, description, trigger_type, schedule,
		                       entry_action_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		wf.ID,
		wf.Title,
		wf.Description,
		wf.TriggerType,
		nullString(wf.Schedule),
		nullString(wf.ExplicitEntryActionID()),
		nullString(wf.CreatedBy),
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: workflow %s", ErrAlreadyExists, wf.ID)
		}
		return fmt.Errorf("insert workflow: %w", err)
	}

	if err := insertActions(ctx, tx, wf); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Update заменяет поля и узлы workflow. CreatedAt и CreatedBy не меняются.
// Возвращает ErrNotFound, если workflow нет.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE workflows
		SET title = $2, description = $3, trigger_type = $4, schedule = $5,
		    entry_action_id = $6, updated_at = $7
		WHERE id = $1
	`,
		wf.ID,
		wf.Title,
		wf.Description,
		wf.TriggerType,
		nullString(wf.Schedule),
		nullString(wf.ExplicitEntryActionID()),
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: workflow %s", ErrNotFound, wf.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM action_nodes WHERE workflow_id = $1`, wf.ID); err != nil {
		return fmt.Errorf("delete actions: %w", err)
	}
	if err := insertActions(ctx, tx, wf); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete удаляет workflow вместе с узлами, выполнениями и журналом.
// Возвращает ErrNotFound, если workflow нет.
func (r *WorkflowRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// У журнала нет внешнего ключа: записи переживают выполнения
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_execution_logs WHERE workflow_id = $1`, id); err != nil {
		return fmt.Errorf("delete logs: %w", err)
	}

	// action_nodes и workflow_executions удаляются каскадом
	tag, err := tx.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: workflow %s", ErrNotFound, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertActions вставляет узлы workflow в порядке объявления.
func insertActions(ctx context.Context, tx pgx.Tx, wf *domain.Workflow) error {
	for i, node := range wf.Actions() {
		paramsJSON, err := json.Marshal(node.Params)
		if err != nil {
			return fmt.Errorf("marshal params of %s: %w", node.ID, err)
		}
		next := node.Next
		if next == nil {
			next = []string{}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO action_nodes (workflow_id, id, position, type, params, next_ids)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, wf.ID, node.ID, i, node.Type, paramsJSON, next)
		if err != nil {
			return fmt.Errorf("insert action %s: %w", node.ID, err)
		}
	}
	return nil
}

// FindByID возвращает workflow по ID или (nil, nil), если его нет.
func (r *WorkflowRepo) FindByID(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return wf, err
}

// GetByID возвращает workflow по ID вместе с узлами.
func (r *WorkflowRepo) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	query := `
		SELECT id, title, description, trigger_type, schedule,
		       entry_action_id, created_by, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	wf, entry, err := scanWorkflow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadActions(ctx, wf, entry); err != nil {
		return nil, err
	}
	return wf, nil
}

// List возвращает все workflow, отсортированные по ID.
func (r *WorkflowRepo) List(ctx context.Context) ([]*domain.Workflow, error) {
	return r.list(ctx, `
		SELECT id, title, description, trigger_type, schedule,
		       entry_action_id, created_by, created_at, updated_at
		FROM workflows
		ORDER BY id
	`)
}

// ListByTrigger возвращает все workflow с указанным триггером.
func (r *WorkflowRepo) ListByTrigger(ctx context.Context, trigger domain.TriggerType) ([]*domain.Workflow, error) {
	return r.list(ctx, `
		SELECT id, title, description, trigger_type, schedule,
		       entry_action_id, created_by, created_at, updated_at
		FROM workflows
		WHERE trigger_type = $1
		ORDER BY id
	`, trigger)
}

func (r *WorkflowRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Workflow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	type item struct {
		wf    *domain.Workflow
		entry string
	}
	var items []item
	for rows.Next() {
		wf, entry, err := scanWorkflow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, item{wf, entry})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	// Узлы загружаем после закрытия rows: соединение одно на запрос
	out := make([]*domain.Workflow, 0, len(items))
	for _, it := range items {
		if err := r.loadActions(ctx, it.wf, it.entry); err != nil {
			return nil, err
		}
		out = append(out, it.wf)
	}
	return out, nil
}

// loadActions загружает узлы workflow в порядке position.
func (r *WorkflowRepo) loadActions(ctx context.Context, wf *domain.Workflow, entry string) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, params, next_ids
		FROM action_nodes
		WHERE workflow_id = $1
		ORDER BY position
	`, wf.ID)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node domain.ActionNode
		var paramsJSON []byte
		if err := rows.Scan(&node.ID, &node.Type, &paramsJSON, &node.Next); err != nil {
			return fmt.Errorf("scan action: %w", err)
		}
		if paramsJSON != nil {
			if err := json.Unmarshal(paramsJSON, &node.Params); err != nil {
				return fmt.Errorf("unmarshal params of %s: %w", node.ID, err)
			}
		}
		if err := wf.AddAction(node); err != nil {
			return fmt.Errorf("load action %s: %w", node.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list actions: %w", err)
	}

	if entry != "" {
		if err := wf.SetEntryAction(entry); err != nil {
			return fmt.Errorf("load workflow %s: %w", wf.ID, err)
		}
	}
	return nil
}

// scanWorkflow сканирует строку workflows. Второе значение — entry_action_id.
func scanWorkflow(row pgx.Row) (*domain.Workflow, string, error) {
	var (
		id, title, description string
		trigger                domain.TriggerType
		schedule, entry, owner *string
	)

	var createdAt, updatedAt time.Time
	err := row.Scan(&id, &title, &description, &trigger, &schedule, &entry, &owner, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("scan workflow: %w", err)
	}

	wf := domain.NewWorkflow(id, trigger)
	wf.Title = title
	wf.Description = description
	wf.Schedule = derefString(schedule)
	wf.CreatedBy = derefString(owner)
	wf.CreatedAt = createdAt
	wf.UpdatedAt = updatedAt

	return wf, derefString(entry), nil
}
