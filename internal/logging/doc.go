// Package logging provides structured logging for the salina-uart bridge.
//
// This package wraps zap with convenience functions for the logging patterns
// used throughout the bridge: general leveled logging plus raw-wire dumps of
// UART and host-channel traffic.
//
// # Log Levels
//
//   - Debug: byte-level traffic (hex dumps, dropped lines, echo discards)
//   - Info: normal operations (ports opened, channels connected, exploit stages)
//   - Warn: non-fatal issues (write failures, client drops)
//   - Error: fatal issues (startup failures)
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. It is enabled
// either explicitly via Initialize("debug") or through the SALINA_LOG_LEVEL
// environment variable:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
