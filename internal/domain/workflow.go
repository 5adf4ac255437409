package domain

import (
	"fmt"
	"time"
)

// Workflow — цепочка action-узлов, которую выполняет движок.
//
// Узлы хранятся в одном упорядоченном слайсе (arena) плюс индекс id → позиция.
// Порядок добавления сохраняется и определяет точку входа по умолчанию.
//
// Инварианты:
//   - ID узлов уникальны
//   - граф next-ссылок ацикличен (проверяется при каждом AddAction)
type Workflow struct {
	// ID — идентификатор workflow.
	ID string `json:"id"`

	// Title — человекочитаемое название.
	Title string `json:"title,omitempty"`

	// Description — описание назначения workflow.
	Description string `json:"description,omitempty"`

	// TriggerType — как запускается workflow: "time" или "webhook".
	TriggerType TriggerType `json:"trigger_type"`

	// Schedule — cron-выражение для TriggerTime.
	// Для webhook-триггера игнорируется.
	Schedule string `json:"schedule,omitempty"`

	// CreatedBy — автор workflow.
	CreatedBy string `json:"created_by,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`

	// entryID — явная точка входа. Пустая строка — первый добавленный узел.
	entryID string

	nodes []ActionNode
	index map[string]int
}

// ActionNode — один шаг workflow.
type ActionNode struct {
	// ID — идентификатор узла, уникальный в рамках workflow.
	ID string `json:"id"`

	// Type — тип действия, по нему выбирается handler.
	Type ActionType `json:"type"`

	// Params — параметры действия. Интерпретируются только handler'ом.
	Params map[string]any `json:"params,omitempty"`

	// Next — ID следующих узлов. Движок переходит только по первому.
	Next []string `json:"next,omitempty"`
}

// NextID возвращает первый successor или пустую строку для терминального узла.
func (n *ActionNode) NextID() string {
	if len(n.Next) == 0 {
		return ""
	}
	return n.Next[0]
}

// NewWorkflow создаёт пустой workflow.
func NewWorkflow(id string, trigger TriggerType) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:          id,
		TriggerType: trigger,
		CreatedAt:   now,
		UpdatedAt:   now,
		index:       make(map[string]int),
	}
}

// AddAction добавляет узел в workflow.
//
// Узел отклоняется, если:
//   - ID пустой или уже занят
//   - тип неизвестен
//   - его next-ссылки замыкают цикл
//
// Ссылки на ещё не добавленные узлы допустимы: цикл будет пойман,
// когда добавят узел, который его замыкает.
func (w *Workflow) AddAction(node ActionNode) error {
	if node.ID == "" {
		return ErrEmptyActionID
	}
	if w.index == nil {
		w.index = make(map[string]int)
	}
	if _, exists := w.index[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, node.ID)
	}
	if !node.Type.IsValid() {
		return fmt.Errorf("%w: %q (action %s)", ErrUnknownActionType, node.Type, node.ID)
	}

	w.nodes = append(w.nodes, node)
	w.index[node.ID] = len(w.nodes) - 1

	if cycleAt, ok := w.findCycle(); ok {
		// Откатываем добавление — workflow остаётся прежним
		w.nodes = w.nodes[:len(w.nodes)-1]
		delete(w.index, node.ID)
		return fmt.Errorf("%w: at action %s", ErrCyclicWorkflow, cycleAt)
	}

	return nil
}

// findCycle выполняет DFS с маркером "в процессе" по всем узлам.
// Возвращает ID узла, на котором обнаружен цикл.
func (w *Workflow) findCycle() (string, bool) {
	const (
		unvisited = iota
		inProgress
		done
	)

	marks := make([]int, len(w.nodes))

	var visit func(i int) (string, bool)
	visit = func(i int) (string, bool) {
		switch marks[i] {
		case inProgress:
			return w.nodes[i].ID, true
		case done:
			return "", false
		}

		marks[i] = inProgress
		for _, nextID := range w.nodes[i].Next {
			j, ok := w.index[nextID]
			if !ok {
				continue
			}
			if at, found := visit(j); found {
				return at, true
			}
		}
		marks[i] = done
		return "", false
	}

	for i := range w.nodes {
		if at, found := visit(i); found {
			return at, true
		}
	}
	return "", false
}

// Action возвращает узел по ID.
func (w *Workflow) Action(id string) (*ActionNode, error) {
	i, ok := w.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	return &w.nodes[i], nil
}

// HasAction проверяет, есть ли узел с таким ID.
func (w *Workflow) HasAction(id string) bool {
	_, ok := w.index[id]
	return ok
}

// Actions возвращает узлы в порядке добавления.
func (w *Workflow) Actions() []ActionNode {
	out := make([]ActionNode, len(w.nodes))
	copy(out, w.nodes)
	return out
}

// Len возвращает количество узлов.
func (w *Workflow) Len() int {
	return len(w.nodes)
}

// EntryActionID возвращает точку входа.
//
// Явно заданная точка входа имеет приоритет; иначе — первый добавленный узел.
// Пустая строка означает, что в workflow нет узлов.
func (w *Workflow) EntryActionID() string {
	if w.entryID != "" {
		return w.entryID
	}
	if len(w.nodes) == 0 {
		return ""
	}
	return w.nodes[0].ID
}

// SetEntryAction фиксирует точку входа.
func (w *Workflow) SetEntryAction(id string) error {
	if !w.HasAction(id) {
		return fmt.Errorf("%w: entry %s", ErrActionNotFound, id)
	}
	w.entryID = id
	return nil
}

// ExplicitEntryActionID возвращает явно заданную точку входа (для сохранения в БД).
func (w *Workflow) ExplicitEntryActionID() string {
	return w.entryID
}
