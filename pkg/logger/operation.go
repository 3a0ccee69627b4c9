package logger

import (
	"time"
)

// OperationLogger tracks a named multi-step operation, logging each step
// with the elapsed time since the operation began.
type OperationLogger struct {
	operation string
	logger    Logger
	started   time.Time
}

// NewOperationLogger starts tracking an operation
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		operation: operation,
		logger:    logger.WithField("operation", operation),
		started:   time.Now(),
	}

	ol.logger.Debug("operation started")
	return ol
}

// WithField attaches an extra field to subsequent log lines
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.logger = ol.logger.WithField(key, value)
	return ol
}

// Step logs an intermediate step within the operation
func (ol *OperationLogger) Step(step string) {
	ol.logger.WithFields(Fields{
		"step":    step,
		"elapsed": time.Since(ol.started).String(),
	}).Debug("operation step")
}

// Success logs successful completion of the operation
func (ol *OperationLogger) Success(message string) {
	ol.logger.WithField("elapsed", time.Since(ol.started).String()).Info(message)
}

// Error logs a failure within the operation
func (ol *OperationLogger) Error(err error, message string) {
	ol.logger.WithError(err).WithField("elapsed", time.Since(ol.started).String()).Error(message)
}

// Warning logs a non-fatal issue within the operation
func (ol *OperationLogger) Warning(message string) {
	ol.logger.WithField("elapsed", time.Since(ol.started).String()).Warn(message)
}
