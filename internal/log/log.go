// Package log is a thin fiber-aware facade over a shared zap logger. Request
// metadata (ip, method, path, status, request id, tenant) is attached when a
// fiber context is passed.
package log

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// L returns the process-wide logger, building it on first use.
func L() *zap.Logger {
	once.Do(func() {
		if instance != nil {
			return
		}
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		logger, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		instance = logger
	})
	return instance
}

// Replace swaps the process logger; call before the first log line (tests,
// alternate sinks).
func Replace(l *zap.Logger) { instance = l }

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+7)
	zf = append(zf, zap.String("action", action))
	if c != nil {
		zf = append(zf,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			zf = append(zf, zap.String("req_id", rid))
		}
		if tenant, ok := c.Locals("tenant_id").(string); ok && tenant != "" {
			zf = append(zf, zap.String("tenant_id", tenant))
		}
	}
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}

	switch level {
	case "error":
		L().Error(action, zf...)
	case "warn":
		L().Warn(action, zf...)
	default:
		L().Info(action, zf...)
	}
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }

// Audit records a state-changing business action.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("info", c, action, nil, fields)
}

// Security records rejected or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}
