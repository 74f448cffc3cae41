package logger

import (
	"bufio"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger based on the configuration.
func New(cfg *Config) (*zap.Logger, error) {
	var config zap.Config

	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
			config.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	// Set format based on configuration
	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"

	return config.Build()
}

// WithRayID returns a logger with the ray_id field set from the Fiber context.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	rid := c.Locals("ray_id")
	if str, ok := rid.(string); ok && str != "" {
		return l.With(zap.String("ray_id", str))
	}
	return l
}

// MaxLineBytes caps the message length Pipe logs for one line; the rest is dropped.
const MaxLineBytes = 64 * 1024

// Pipe logs every line read from r at info level until r is exhausted.
// It is used to forward instance stdout/stderr into the structured log.
// Lines longer than MaxLineBytes are truncated, and r is always read to the end so the
// writing process never blocks on a full pipe.
func Pipe(l *zap.Logger, r io.Reader, stream string) {
	br := bufio.NewReaderSize(r, 4096)
	var line []byte
	truncated := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if room := MaxLineBytes - len(line); len(chunk) > room {
			chunk = chunk[:max(room, 0)]
			truncated = true
		}
		line = append(line, chunk...)
		if err != nil {
			if len(line) > 0 {
				logLine(l, line, stream, truncated)
			}
			if err != io.EOF {
				l.Warn("Output stream closed", zap.String("stream", stream), zap.Error(err))
				_, _ = io.Copy(io.Discard, r)
			}
			return
		}
		if isPrefix {
			continue
		}
		logLine(l, line, stream, truncated)
		line, truncated = line[:0], false
	}
}

func logLine(l *zap.Logger, line []byte, stream string, truncated bool) {
	fields := []zap.Field{zap.String("stream", stream)}
	if truncated {
		fields = append(fields, zap.Bool("truncated", true))
	}
	l.Info(string(line), fields...)
}
