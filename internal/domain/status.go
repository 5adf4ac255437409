package domain

// TriggerType — способ запуска workflow.
type TriggerType string

const (
	// TriggerTime — запуск по расписанию (cron).
	TriggerTime TriggerType = "time"

	// TriggerWebhook — запуск внешним вызовом.
	TriggerWebhook TriggerType = "webhook"
)

// IsValid проверяет, что тип триггера известен.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerTime, TriggerWebhook:
		return true
	default:
		return false
	}
}

// ActionType — тип action-узла.
//
// Набор фиксирован: handler выбирается по этому тегу через реестр.
type ActionType string

const (
	// ActionLog — запись сообщения в лог.
	ActionLog ActionType = "log"

	// ActionDelay — пауза на заданное количество миллисекунд.
	ActionDelay ActionType = "delay"

	// ActionHTTP — исходящий HTTP-запрос.
	ActionHTTP ActionType = "http"
)

// IsValid проверяет, что тип действия входит в перечисление.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionLog, ActionDelay, ActionHTTP:
		return true
	default:
		return false
	}
}

// ActionTypes возвращает все известные типы действий.
func ActionTypes() []ActionType {
	return []ActionType{ActionLog, ActionDelay, ActionHTTP}
}

// LogStatus — итог выполнения узла в журнале.
type LogStatus string

const (
	// LogStatusSuccess — узел выполнен успешно.
	LogStatusSuccess LogStatus = "success"

	// LogStatusFailed — все попытки исчерпаны.
	LogStatusFailed LogStatus = "failed"

	// LogStatusSkipped — узел пропущен.
	LogStatusSkipped LogStatus = "skipped"
)

// String возвращает строковое представление LogStatus.
func (s LogStatus) String() string {
	return string(s)
}
