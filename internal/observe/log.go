// Package observe holds the invocation observers the hosts wire into the
// dispatcher: structured logging, command history and OpenTelemetry metrics.
package observe

import (
	"errors"

	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/command"
)

// Log writes one log line per finished invocation.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("commands")}
}

func fields(inv *command.Invocation) []zap.Field {
	return []zap.Field{
		zap.String("invocation", inv.ID),
		zap.String("command", inv.Node.FullName()),
		zap.String("args", inv.Args),
		zap.String("user", inv.Actor.ID),
		zap.String("channel", inv.Location.ChannelID),
		zap.String("guild", inv.Location.GuildID),
	}
}

func (l *Log) OnTerminated(inv *command.Invocation, message string) {
	l.logger.Info("Command terminated", append(fields(inv), zap.String("reason", message))...)
}

func (l *Log) OnCompleted(inv *command.Invocation) {
	l.logger.Info("Command completed", fields(inv)...)
}

func (l *Log) OnException(inv *command.Invocation, err error) {
	fs := append(fields(inv), zap.Error(err))
	var pe *command.PanicError
	if errors.As(err, &pe) {
		fs = append(fs, zap.ByteString("stack", pe.Stack))
	}
	l.logger.Error("Command failed", fs...)
}
