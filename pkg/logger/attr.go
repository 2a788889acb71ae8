package logger

import (
	"log/slog"
	"strconv"
)

// Error creates an attribute for a single error under the key "error".
// A nil error yields an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under the key "errors", indexed by
// position. All-nil input yields an empty attribute.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Entity groups the entity coordinates every engine log line carries.
func Entity(entityType, entityID, attribute string) slog.Attr {
	return slog.Attr{Key: "entity", Value: slog.GroupValue(
		slog.String("type", entityType),
		slog.String("id", entityID),
		slog.String("attribute", attribute),
	)}
}

// TransitionAttr describes one state change as a grouped attribute.
func TransitionAttr(from, to, event string) slog.Attr {
	attrs := []slog.Attr{
		slog.String("from", from),
		slog.String("to", to),
	}
	if event != "" {
		attrs = append(attrs, slog.String("event", event))
	}
	return slog.Attr{Key: "transition", Value: slog.GroupValue(attrs...)}
}
