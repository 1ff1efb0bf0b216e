// Package infrastructure provides reusable infrastructure components for Go applications.
package infrastructure

import (
	"fmt"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FxLogger routes Fx's own events to a zap.Logger as structured entries.
// Successful wiring steps are logged at debug level, lifecycle milestones at info and failures at error.
type FxLogger struct {
	logger *zap.Logger
}

var _ fxevent.Logger = (*FxLogger)(nil)

// NewFxLogger creates an fxevent.Logger backed by logger.
// It is meant for fx.WithLogger.
func NewFxLogger(logger *zap.Logger) fxevent.Logger {
	return &FxLogger{logger: logger.Named("fx")}
}

// LogEvent implements fxevent.Logger.
func (l *FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("OnStart hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		l.hookResult("OnStart", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("OnStop hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		l.hookResult("OnStop", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		l.result(zapcore.DebugLevel, "Supplied", e.Err,
			zap.String("type", e.TypeName),
			moduleField(e.ModuleName))
	case *fxevent.Provided:
		l.result(zapcore.DebugLevel, "Provided", e.Err,
			zap.String("constructor", e.ConstructorName),
			zap.Strings("types", e.OutputTypeNames),
			moduleField(e.ModuleName))
	case *fxevent.Decorated:
		l.result(zapcore.DebugLevel, "Decorated", e.Err,
			zap.String("decorator", e.DecoratorName),
			zap.Strings("types", e.OutputTypeNames),
			moduleField(e.ModuleName))
	case *fxevent.Invoking:
		l.logger.Debug("Invoking",
			zap.String("function", e.FunctionName),
			moduleField(e.ModuleName))
	case *fxevent.Invoked:
		l.result(zapcore.DebugLevel, "Invoked", e.Err,
			zap.String("function", e.FunctionName),
			moduleField(e.ModuleName))
	case *fxevent.Stopping:
		l.logger.Info("Received signal", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		l.result(zapcore.InfoLevel, "Stopped", e.Err)
	case *fxevent.RollingBack:
		l.logger.Error("Start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		l.result(zapcore.InfoLevel, "Rolled back", e.Err)
	case *fxevent.Started:
		l.result(zapcore.InfoLevel, "Started", e.Err)
	case *fxevent.LoggerInitialized:
		l.result(zapcore.DebugLevel, "Initialized custom fxevent.Logger", e.Err,
			zap.String("constructor", e.ConstructorName))
	default:
		l.logger.Debug("Unhandled Fx event", zap.String("event", fmt.Sprintf("%T", event)))
	}
}

func (l *FxLogger) hookResult(hook, callee, caller, runtime string, err error) {
	fields := []zap.Field{zap.String("callee", callee), zap.String("caller", caller)}
	if err != nil {
		l.logger.Error(hook+" hook failed", append(fields, zap.Error(err))...)

		return
	}
	l.logger.Debug(hook+" hook executed", append(fields, zap.String("runtime", runtime))...)
}

// result logs msg at level, or at error level with the error attached when err is set.
func (l *FxLogger) result(level zapcore.Level, msg string, err error, fields ...zap.Field) {
	if err != nil {
		l.logger.Error(msg+" failed", append(fields, zap.Error(err))...)

		return
	}
	l.logger.Log(level, msg, fields...)
}

func moduleField(name string) zap.Field {
	if name == "" {
		return zap.Skip()
	}

	return zap.String("module", name)
}
