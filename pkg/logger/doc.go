// Package logger builds configured slog loggers for the transition engine
// and its workers: a factory with functional options, a handler decorator
// that injects context-scoped attributes into every record, and attribute
// helpers for the domain's common log fields.
//
//	log := logger.New(
//		logger.WithProduction("stateflow"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//	logger.SetAsDefault(log)
package logger
