package logging

import (
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

// Sender is the outbound half of the bridge.
type Sender interface {
	Send(v any) error
}

// BridgeCore is a zapcore.Core that turns entries into chroma-log messages.
type BridgeCore struct {
	zapcore.LevelEnabler
	sender Sender
	source string
	fields []zapcore.Field
}

func NewBridgeCore(sender Sender, source string, enab zapcore.LevelEnabler) *BridgeCore {
	return &BridgeCore{LevelEnabler: enab, sender: sender, source: source}
}

func (c *BridgeCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *BridgeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *BridgeCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	if ent.LoggerName != "" {
		enc.AddString("logger", ent.LoggerName)
	}

	msg := types.ChromaLog{
		Type:      types.TypeChromaLog,
		Source:    c.source,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Timestamp: ent.Time.UnixMilli(),
	}
	if len(enc.Fields) > 0 {
		msg.Data = enc.Fields
	}
	return c.sender.Send(msg)
}

func (c *BridgeCore) Sync() error { return nil }
