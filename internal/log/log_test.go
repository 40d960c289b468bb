package log

import (
	"errors"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestRequestScopedEvents(t *testing.T) {
	logs := observe(t)

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals("uid", int64(7))
		Audit(c, "order.create", map[string]any{"order_id": 1})
		Security(c, "authz.denied", nil)
		Error(c, "server.error", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 3)

	audit := entries[0].ContextMap()
	assert.Equal(t, "order.create", audit["action"])
	assert.Equal(t, true, audit["audit"])
	assert.Equal(t, int64(7), audit["user_id"])
	assert.Equal(t, "/x", audit["path"])
	assert.NotEmpty(t, audit["req_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNilCtx(t *testing.T) {
	logs := observe(t)
	Info(nil, "startup", map[string]any{"port": "8080"})
	require.Equal(t, 1, logs.FilterMessage("startup").Len())
}

func TestInitWritesFile(t *testing.T) {
	path := t.TempDir() + "/app.log"
	l, closeFn, err := Init("production", path)
	require.NoError(t, err)
	t.Cleanup(func() { SetLogger(nil) })

	l.Error("store unavailable", zap.String("driver", "pgx"))
	closeFn()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"store unavailable"`)
	assert.Contains(t, string(b), `"driver":"pgx"`)
}
