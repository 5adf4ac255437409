package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Alloy/internal/domain"
)

// cronParser — стандартный 5-польный формат плюс дескрипторы (@hourly, @every 1h).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule разбирает cron-выражение workflow.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// Validate выполняет полную валидацию определения.
//
// Проверяет:
// - Наличие ID workflow и действий
// - Уникальность ID действий
// - Корректность типов действий и триггера
// - Cron-выражение для time-триггера
// - Валидность next и entry
// - Отсутствие циклов
func Validate(def *Definition) error {
	_, err := Build(def)
	return err
}

// Build валидирует определение и строит domain.Workflow.
func Build(def *Definition) (*domain.Workflow, error) {
	if def == nil {
		return nil, NewValidationError("", "actions", "definition is empty", ErrEmptyDefinition)
	}
	if def.ID == "" {
		return nil, NewValidationError("", "id", "workflow has empty ID", ErrEmptyWorkflowID)
	}

	trigger, err := validateTrigger(def)
	if err != nil {
		return nil, err
	}

	if len(def.Actions) == 0 {
		return nil, NewValidationError("", "actions", "workflow has no actions", ErrEmptyActions)
	}

	actionIDs := make(map[string]bool, len(def.Actions))
	for i := range def.Actions {
		if err := validateAction(&def.Actions[i], actionIDs); err != nil {
			return nil, err
		}
	}

	if err := validateSuccessors(def.Actions, actionIDs); err != nil {
		return nil, err
	}

	if def.Entry != "" && !actionIDs[def.Entry] {
		return nil, NewValidationError(def.Entry, "entry",
			fmt.Sprintf("entry refers to unknown action: %s", def.Entry), ErrUnknownEntry)
	}

	// Строим граф: AddAction ловит циклы
	wf := domain.NewWorkflow(def.ID, trigger)
	wf.Title = def.Title
	wf.Description = def.Description
	wf.Schedule = def.Schedule
	wf.CreatedBy = def.CreatedBy

	for _, a := range def.Actions {
		node := domain.ActionNode{
			ID:     a.ID,
			Type:   domain.ActionType(a.Type),
			Params: a.Params,
			Next:   a.Next,
		}
		if err := wf.AddAction(node); err != nil {
			if errors.Is(err, domain.ErrCyclicWorkflow) {
				return nil, NewValidationError(a.ID, "next",
					"next links form a cycle", ErrCyclicWorkflow)
			}
			return nil, NewValidationError(a.ID, "", err.Error(), err)
		}
	}

	if def.Entry != "" {
		if err := wf.SetEntryAction(def.Entry); err != nil {
			return nil, NewValidationError(def.Entry, "entry", err.Error(), ErrUnknownEntry)
		}
	}

	return wf, nil
}

// validateTrigger проверяет триггер. Пустой триггер — webhook.
func validateTrigger(def *Definition) (domain.TriggerType, error) {
	trigger := domain.TriggerType(def.Trigger)
	if trigger == "" {
		trigger = domain.TriggerWebhook
	}
	if !trigger.IsValid() {
		return "", NewValidationError("", "trigger",
			fmt.Sprintf("unknown trigger type: %s", def.Trigger), ErrUnknownTrigger)
	}

	if trigger == domain.TriggerTime {
		if def.Schedule == "" {
			return "", NewValidationError("", "schedule",
				"time trigger requires a schedule", ErrInvalidSchedule)
		}
		if _, err := ParseSchedule(def.Schedule); err != nil {
			return "", NewValidationError("", "schedule", err.Error(), ErrInvalidSchedule)
		}
	}
	return trigger, nil
}

// validateAction валидирует одно действие.
// actionIDs — уже встреченные ID (для проверки уникальности).
func validateAction(a *ActionDef, actionIDs map[string]bool) error {
	if a.ID == "" {
		return NewValidationError("", "id", "action has empty ID", ErrEmptyActionID)
	}

	if actionIDs[a.ID] {
		return NewValidationError(a.ID, "id",
			fmt.Sprintf("duplicate action ID: %s", a.ID), ErrDuplicateActionID)
	}
	actionIDs[a.ID] = true

	if a.Type == "" {
		return NewValidationError(a.ID, "type", "action has empty type", ErrUnknownActionType)
	}
	if !domain.ActionType(a.Type).IsValid() {
		return NewValidationError(a.ID, "type",
			fmt.Sprintf("unknown action type: %s", a.Type), ErrUnknownActionType)
	}

	for _, next := range a.Next {
		if next == a.ID {
			return NewValidationError(a.ID, "next", "action refers to itself", ErrCyclicWorkflow)
		}
	}
	return nil
}

// validateSuccessors проверяет, что все next ссылаются на существующие действия.
func validateSuccessors(actions []ActionDef, actionIDs map[string]bool) error {
	for i := range actions {
		a := &actions[i]
		for _, next := range a.Next {
			if !actionIDs[next] {
				return NewValidationError(a.ID, "next",
					fmt.Sprintf("next refers to unknown action: %s", next), ErrUnknownSuccessor)
			}
		}
	}
	return nil
}
