package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Alloy/internal/domain"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/telemetry"
)

// Default configuration values.
const (
	defaultTick = 15 * time.Second
)

// WorkflowLister возвращает workflow по типу триггера.
type WorkflowLister interface {
	ListByTrigger(ctx context.Context, trigger domain.TriggerType) ([]*domain.Workflow, error)
}

// RequestPublisher ставит выполнение в очередь.
type RequestPublisher interface {
	PublishExecutionRequested(ctx context.Context, payload mq.ExecutionRequestedPayload) error
}

// Leader решает, должен ли этот экземпляр работать в текущем тике.
// Реализуется repo.AdvisoryLock.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
}

// entry — расписание одного workflow.
type entry struct {
	schedule string
	due      time.Time
}

// Scheduler — планировщик workflow с триггером time.
//
// Время следующего срабатывания хранится в памяти: после рестарта
// оно вычисляется заново от текущего момента, пропущенные за время
// простоя срабатывания не догоняются.
type Scheduler struct {
	workflows WorkflowLister
	publisher RequestPublisher
	leader    Leader
	logger    *slog.Logger
	tick      time.Duration
	now       func() time.Time

	next map[string]entry
}

// Config — конфигурация Scheduler.
type Config struct {
	Workflows WorkflowLister
	Publisher RequestPublisher

	// Leader — опционально; nil — экземпляр всегда лидер.
	Leader Leader

	Logger *slog.Logger

	// Tick — период проверки (default: 15s).
	Tick time.Duration

	// Now подменяется в тестах.
	Now func() time.Time
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tick := cfg.Tick
	if tick <= 0 {
		tick = defaultTick
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		workflows: cfg.Workflows,
		publisher: cfg.Publisher,
		leader:    cfg.Leader,
		logger:    logger,
		tick:      tick,
		now:       now,
		next:      make(map[string]entry),
	}
}

// Run вызывает Tick каждые cfg.Tick до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	tk := time.NewTicker(s.tick)
	defer tk.Stop()

	s.logger.Info("scheduler started", "tick", s.tick)

	for {
		select {
		case <-tk.C:
			s.step(ctx)

		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// step проверяет лидерство и выполняет Tick.
//
// Без лидерства план забывается: другой экземпляр мог уже отработать
// эти сроки, и после возврата lock'а они вычисляются заново.
func (s *Scheduler) step(ctx context.Context) {
	if s.leader != nil {
		ok, err := s.leader.TryAcquire(ctx)
		if err != nil {
			s.logger.Error("leader lock failed", "error", err)
		}
		if err != nil || !ok {
			// не лидер — пропускаем тик
			if len(s.next) > 0 {
				s.logger.Info("leadership lost, dropping planned fires", "workflows", len(s.next))
				clear(s.next)
			}
			return
		}
	}

	if err := s.Tick(ctx); err != nil {
		s.logger.Error("scheduler tick failed", "error", err)
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Загружает workflow с триггером time
// 2. Для новых или изменённых расписаний вычисляет next due
// 3. Для наступивших публикует execution.requested и сдвигает next due
//
// Ошибки одного workflow не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	// 1. Загружаем workflow
	wfs, err := s.workflows.ListByTrigger(ctx, domain.TriggerTime)
	if err != nil {
		return fmt.Errorf("list time workflows: %w", err)
	}

	seen := make(map[string]bool, len(wfs))
	var fired int

	for _, wf := range wfs {
		seen[wf.ID] = true
		logger := telemetry.WithWorkflowID(s.logger, wf.ID)

		// 2. Новое или изменённое расписание — только планируем
		cur, ok := s.next[wf.ID]
		if !ok || cur.schedule != wf.Schedule {
			due, err := CalculateNextDue(wf.Schedule, now)
			if err != nil {
				logger.Error("invalid schedule, skipping", "schedule", wf.Schedule, "error", err)
				delete(s.next, wf.ID)
				continue
			}
			s.next[wf.ID] = entry{schedule: wf.Schedule, due: due}
			logger.Debug("workflow scheduled", "next_due_at", due)
			continue
		}

		if now.Before(cur.due) {
			continue
		}

		// 3. Срабатывание
		if err := s.fire(ctx, wf.ID, cur.due); err != nil {
			// next due не сдвигаем: повтор на следующем тике с тем же id
			logger.Error("failed to publish scheduled execution", "due", cur.due, "error", err)
			continue
		}
		fired++

		due, err := CalculateNextDue(wf.Schedule, now)
		if err != nil {
			delete(s.next, wf.ID)
			continue
		}
		s.next[wf.ID] = entry{schedule: wf.Schedule, due: due}
	}

	// Удалённые workflow забываем
	for id := range s.next {
		if !seen[id] {
			delete(s.next, id)
		}
	}

	if fired > 0 {
		s.logger.Info("scheduler tick completed", "workflows", len(wfs), "fired", fired)
	}
	return nil
}

// fire публикует запрос на выполнение для одного срабатывания.
func (s *Scheduler) fire(ctx context.Context, workflowID string, due time.Time) error {
	executionID := ExecutionIDFor(workflowID, due)

	err := s.publisher.PublishExecutionRequested(ctx, mq.ExecutionRequestedPayload{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Source:      "scheduler",
	})
	if err != nil {
		return err
	}

	s.logger.Info("scheduled execution requested",
		"workflow_id", workflowID,
		"execution_id", executionID,
		"due", due,
	)
	return nil
}

// NextDue возвращает запланированное время срабатывания workflow.
func (s *Scheduler) NextDue(workflowID string) (time.Time, bool) {
	e, ok := s.next[workflowID]
	return e.due, ok
}
