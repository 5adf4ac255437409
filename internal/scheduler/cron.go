package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Alloy/internal/engine"
)

// CalculateNextDue вычисляет следующее время выполнения по cron-выражению.
// Время возвращается в UTC.
func CalculateNextDue(expr string, from time.Time) (time.Time, error) {
	schedule, err := engine.ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}

	next := schedule.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron expression %q never fires", expr)
	}
	return next.UTC(), nil
}

// ExecutionIDFor детерминированно выводит execution id из workflow и
// времени срабатывания: повторная публикация того же срабатывания
// продолжает то же выполнение, а не создаёт новое.
func ExecutionIDFor(workflowID string, due time.Time) string {
	name := workflowID + "@" + due.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
