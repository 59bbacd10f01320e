package nifti

import "time"

// ModeFlag is a logging severity.  Messages below the current mode are dropped.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var (
	// Verbose forces debug messages regardless of the mode.
	Verbose bool

	mode = InfoMode
)

// Logger receives every message that passes the severity filter.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown flushes and closes any log file.
	Shutdown()
}

// SetLogMode sets the lowest severity that is logged.  SilentMode drops everything.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

// LogMode returns the current severity threshold.
func LogMode() ModeFlag {
	return mode
}

// DebugEnabled returns true if debug messages are logged.  Use it to skip work that
// only feeds a debug message.
func DebugEnabled() bool {
	return mode <= DebugMode || Verbose
}

func enabled(level ModeFlag) bool {
	if level == DebugMode {
		return DebugEnabled()
	}
	return mode <= level
}

func emit(l Logger, level ModeFlag, format string, args []interface{}) {
	if !enabled(level) {
		return
	}
	switch level {
	case DebugMode:
		l.Debugf(format, args...)
	case InfoMode:
		l.Infof(format, args...)
	case WarningMode:
		l.Warningf(format, args...)
	case ErrorMode:
		l.Errorf(format, args...)
	default:
		l.Criticalf(format, args...)
	}
}

func Debugf(format string, args ...interface{})    { emit(logger, DebugMode, format, args) }
func Infof(format string, args ...interface{})     { emit(logger, InfoMode, format, args) }
func Warningf(format string, args ...interface{})  { emit(logger, WarningMode, format, args) }
func Errorf(format string, args ...interface{})    { emit(logger, ErrorMode, format, args) }
func Criticalf(format string, args ...interface{}) { emit(logger, CriticalMode, format, args) }

// Shutdown closes any log file opened by LogConfig.SetLogger.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog appends the time elapsed since its creation to each message, e.g.,
//
//	timedLog := NewTimeLog()
//	...
//	timedLog.Debugf("read volume %d", t) // "read volume 3: 12.5ms"
type TimeLog struct {
	logger Logger
	start  time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{logger, time.Now()}
}

func (t TimeLog) timed(level ModeFlag, format string, args []interface{}) {
	if enabled(level) {
		emit(t.logger, level, format+": %s\n", append(args, time.Since(t.start)))
	}
}

func (t TimeLog) Debugf(format string, args ...interface{})    { t.timed(DebugMode, format, args) }
func (t TimeLog) Infof(format string, args ...interface{})     { t.timed(InfoMode, format, args) }
func (t TimeLog) Warningf(format string, args ...interface{})  { t.timed(WarningMode, format, args) }
func (t TimeLog) Errorf(format string, args ...interface{})    { t.timed(ErrorMode, format, args) }
func (t TimeLog) Criticalf(format string, args ...interface{}) { t.timed(CriticalMode, format, args) }
