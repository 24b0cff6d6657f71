// Package telemetry provides structured logging and optional tracing for
// the wplocal CLI.
//
// Logging is built on zerolog; components receive child loggers via
// Logger.Component. Tracing emits one span per provisioning or removal step
// and is disabled by default, since a local CLI run rarely has a collector
// to export to. Enable it in the tool configuration to get a stdout or OTLP
// trace of a run.
package telemetry
