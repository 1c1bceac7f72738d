// Package logger builds the process-wide slog logger from ServerConfig and
// threads request-scoped loggers, tagged with a trace ID, through
// context.Context.
package logger
