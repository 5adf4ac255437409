package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Alloy/internal/domain"
)

const paramMs = "ms"

// DelayHandler — handler для действия "delay".
//
// Приостанавливает выполнение на ms миллисекунд. Отмена context прерывает ожидание.
//
// Params:
//
//	{
//	    "ms": 1500  // обязательно, число >= 0
//	}
type DelayHandler struct{}

// NewDelayHandler создаёт DelayHandler.
func NewDelayHandler() *DelayHandler {
	return &DelayHandler{}
}

// Handle выполняет задержку.
func (h *DelayHandler) Handle(ctx context.Context, node *domain.ActionNode) error {
	ms, ok := paramNumber(node.Params, paramMs)
	if !ok {
		return fmt.Errorf("%w: delay action %s requires a numeric ms", ErrInvalidParams, node.ID)
	}
	if ms < 0 {
		return fmt.Errorf("%w: delay action %s requires a non-negative ms, got %v", ErrInvalidParams, node.ID, ms)
	}

	duration := time.Duration(ms * float64(time.Millisecond))
	if duration == 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
