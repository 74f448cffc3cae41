// Package logger builds the zap logger used across app-host.
//
// Level "debug" selects zap's development config (ISO8601 times, caller info), any
// other level the production config. Format picks console or json encoding.
//
// WithRayID returns a child logger tagged with the request's ray id, so gateway and admin
// log lines can be joined with the X-Ray-ID response header.
//
// Pipe copies an instance's stdout or stderr into the logger, one entry per line:
//
//	go logger.Pipe(l.With(zap.Int("instance_port", port)), stdout, "stdout")
package logger
