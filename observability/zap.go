// Package observability wires the engine's emit.Emitter interface to the
// production structured logger. The engine, lock, scheduler, and worker
// pool log through a *zap.Logger; ZapEmitter lets the same sink also receive
// the engine's lifecycle events without a second logging path.
package observability

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowforge/flowforge/emit"
)

// ZapEmitter adapts a *zap.Logger to emit.Emitter. Each event becomes one
// structured log line at Info level, or Error when Meta["error"] is set.
type ZapEmitter struct {
	logger *zap.Logger
}

// NewZapEmitter builds a ZapEmitter writing through logger.
func NewZapEmitter(logger *zap.Logger) *ZapEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapEmitter{logger: logger}
}

func (z *ZapEmitter) Emit(event emit.Event) {
	fields := []zap.Field{
		zap.String("instance_id", event.InstanceID),
		zap.String("activity_id", event.ActivityID),
		zap.Int("attempt", event.Attempt),
	}
	for k, v := range event.Meta {
		fields = append(fields, zap.Any(k, v))
	}
	if errMsg, ok := event.Meta["error"]; ok {
		z.logger.Error(event.Msg, append(fields, zap.Any("error", errMsg))...)
		return
	}
	z.logger.Info(event.Msg, fields...)
}

func (z *ZapEmitter) EmitBatch(_ context.Context, events []emit.Event) error {
	for _, e := range events {
		z.Emit(e)
	}
	return nil
}

// Flush syncs the underlying logger. Sync on a console-backed logger
// commonly returns an inappropriate-ioctl error on Linux; that is expected
// and intentionally ignored rather than surfaced as a Flush failure.
func (z *ZapEmitter) Flush(context.Context) error {
	_ = z.logger.Sync()
	return nil
}
