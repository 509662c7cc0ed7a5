package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewWebLogger is NewLogger plus an exit handler that lets the web server shut down cleanly on Fatal.
func NewWebLogger(serviceName string, level string, stackDumpOnPanic bool, exitHandlerFn func()) *LoggerImpl {
	l := NewLogger(serviceName, level, stackDumpOnPanic)
	log.RegisterExitHandler(exitHandlerFn)
	return l
}

// NewLogger will create a new logger implementation.
// Output goes to stderr using text on a terminal and JSON otherwise, so log shippers get structured records.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	setOutput(os.Stderr)
	logLevel, err := log.ParseLevel(level)
	if err == nil {
		log.SetLevel(logLevel)
	} else {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	logger := log.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: logger, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}
}

func setOutput(writer io.Writer) {
	log.SetOutput(writer)
	if f, ok := writer.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// WithField returns a child logger that adds key=value to every entry.
func (l *LoggerImpl) WithField(key string, value interface{}) Logger {
	return &LoggerImpl{
		Logger:         l.Logger.WithField(key, value),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// WithFields returns a child logger that adds all fields to every entry.
func (l *LoggerImpl) WithFields(fields map[string]interface{}) Logger {
	return &LoggerImpl{
		Logger:         l.Logger.WithFields(fields),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in trace mode or when PrintStackDump is set).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else if l.LogLevelStr == "trace" {
		l.Logger.Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		if l.PrintStackDump {
			l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
		} else {
			l.Logger.Fatal(message...)
		}
	} else {
		if l.PrintStackDump { // if the user wants a stack dump without having to use debug|trace levels...
			l.Logger.Panic(message...)
		} else { // else log the message and quit without a stack dump...
			l.Logger.Fatal(message...)
		}
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
// Call Panic() to get a stack dump instead.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	setOutput(writer)
}
