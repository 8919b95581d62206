// Package log builds the slog loggers of registry-validator.
//
// Every logger is wrapped in a SecureHandler that masks credentials before
// they reach the output: the PostgREST API key, bearer and JWT values, and
// passwords embedded in proxy or database URLs.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("store ready", "url", baseURL, "apikey", key) // apikey=***REDACTED***
package log
