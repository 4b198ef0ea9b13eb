// Package logger provides structured logging on zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. WithContext attaches the
// trace and span IDs of the active OpenTelemetry span.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.WithContext(ctx).Info("request settled", logger.Fields("status", 200))
package logger
