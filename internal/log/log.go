// Package log is the process logger. L returns the zap logger handed to the
// services; Info, Audit, Security and Error write request-scoped events with
// the request id, client ip, method, path and status taken from the fiber ctx.
package log

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.Logger]

func init() { base.Store(zap.NewNop()) }

// Init builds the logger for mode ("production" gives JSON, anything else a
// console encoder) writing to stdout and, when file is set, appending to file
// as well. The returned func flushes and closes the sinks.
func Init(mode, file string) (*zap.Logger, func(), error) {
	var enc zapcore.Encoder
	level := zap.DebugLevel
	switch strings.ToLower(mode) {
	case "prod", "production":
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
		level = zap.InfoLevel
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	var f *os.File
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, zapcore.Lock(f))
	}

	l := zap.New(zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level), zap.AddCaller())
	SetLogger(l)
	return l, func() {
		_ = l.Sync()
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// SetLogger replaces the process logger; nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

func L() *zap.Logger { return base.Load() }

func requestFields(c *fiber.Ctx, action string, fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+7)
	out = append(out, zap.String("action", action))
	if c != nil {
		out = append(out,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			out = append(out, zap.String("req_id", rid))
		}
		if uid, ok := c.Locals("uid").(int64); ok {
			out = append(out, zap.Int64("user_id", uid))
		}
	}
	if len(fields) > 0 {
		out = append(out, zap.Any("fields", fields))
	}
	return out
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, requestFields(c, action, fields)...)
}

// Audit records a state change made by a user, e.g. an order placed or a
// status moved.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, append(requestFields(c, action, fields), zap.Bool("audit", true))...)
}

// Security records denied or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	L().Warn(action, append(requestFields(c, action, fields), zap.Bool("security", true))...)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	L().Error(action, append(requestFields(c, action, fields), zap.Error(err))...)
}
