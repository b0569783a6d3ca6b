// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and a helper for request-scoped correlation.
//
// # Request Correlation
//
// Each deployment invocation is driven by a single orchestrator request.
// The WithRequest helper attaches the request id and type to the logger so
// that every log line from that invocation can be correlated back to the
// originating event.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Handler started")
//
//	// For one invocation:
//	l := logger.WithRequest(log, req.RequestID, string(req.RequestType))
//	l.Error("Deployment failed", zap.Error(err))
package logger
