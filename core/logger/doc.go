// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and integrates with the Fiber web framework.
//
// # Context Awareness
//
// Two helpers attach correlation fields to log entries:
//   - WithRayID extracts the RayID (Request ID) from a Fiber context so that all
//     logs related to a specific HTTP request can be correlated.
//   - WithRunID attaches a sync run identifier so that all logs produced by one
//     engine run, including its retries, can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Server started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
