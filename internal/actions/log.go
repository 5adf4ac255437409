package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Alloy/internal/domain"
)

// Ключи параметров log-действия.
const (
	paramMessage = "message"
	paramLevel   = "level"
)

// LogHandler — handler для действия "log".
//
// Пишет сообщение в slog с указанным уровнем.
//
// Params:
//
//	{
//	    "message": "order received",  // обязательно, непустая строка
//	    "level": "warn"               // info (default), warn, error, debug
//	}
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler создаёт LogHandler. nil — slog.Default().
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

// Handle пишет сообщение узла в лог.
func (h *LogHandler) Handle(ctx context.Context, node *domain.ActionNode) error {
	message := paramString(node.Params, paramMessage)
	if message == "" {
		return fmt.Errorf("%w: log action %s requires a non-empty message", ErrInvalidParams, node.ID)
	}

	level, err := parseLevel(paramString(node.Params, paramLevel))
	if err != nil {
		return fmt.Errorf("%w: log action %s: %v", ErrInvalidParams, node.ID, err)
	}

	h.logger.Log(ctx, level, message, "action_id", node.ID, "action", string(domain.ActionLog))
	return nil
}

// parseLevel переводит уровень из параметров в slog.Level.
func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown level %q", level)
	}
}
