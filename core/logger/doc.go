// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and both console and JSON encodings.
//
// # Correlation
//
// The WithRunID helper attaches a per-run identifier to the logger so that all
// lines emitted during one sync run can be correlated. WithUnit narrows the
// logger further to a single (provider, date) fetch unit, which is the
// granularity at which failures are reported and skipped.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("sync started")
//
//	// Inside the per-unit loop:
//	l := logger.WithUnit(log, "oura", "2025-01-10")
//	l.Warn("fetch failed", zap.Error(err))
package logger
