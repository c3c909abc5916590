package goPasswordless

import (
	"io"

	"github.com/MrEthical07/goPasswordless/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapSink logs audit events through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}
