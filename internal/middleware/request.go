package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
)

const (
	TraceIDContextKey = "trace_id"
	TraceIDHeader     = "X-Request-ID"
)

// RequestID reuses an inbound correlation header or mints a new id, and
// echoes it on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := ""
		for _, header := range []string{TraceIDHeader, "X-Correlation-ID", "X-Trace-ID"} {
			if v := c.Get(header); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(TraceIDContextKey, id)
		c.Set(TraceIDHeader, id)
		return c.Next()
	}
}

func TraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(TraceIDContextKey).(string); ok {
		return id
	}
	return uuid.New().String()[:8]
}

// RequestLogger writes one access line per request, skipping /health.
func RequestLogger(log *logger.Logger) fiber.Handler {
	entry := log.WithComponent("http")
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := logrus.Fields{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
			"trace_id":    TraceID(c),
			"user":        Actor(c),
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			entry.WithFields(fields).Warn("request")
		} else {
			entry.WithFields(fields).Info("request")
		}
		return nil
	}
}

// Metrics records request counts and latency by route pattern. It must be
// registered ahead of RequestLogger, which resolves errors into responses.
func Metrics(m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
		}
		m.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}
