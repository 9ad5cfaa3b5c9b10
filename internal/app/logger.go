package app

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Logger interface and implementations
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Warnf(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Warnf(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

type FileLogger struct {
	mu *sync.Mutex
	w  io.Writer
}

func NewFileLogger(w io.Writer) FileLogger { return FileLogger{mu: &sync.Mutex{}, w: w} }

func (l FileLogger) Infof(component string, format string, args ...interface{}) {
	l.write("INFO", component, format, args...)
}
func (l FileLogger) Warnf(component string, format string, args ...interface{}) {
	l.write("WARN", component, format, args...)
}
func (l FileLogger) Errorf(component string, format string, args ...interface{}) {
	l.write("ERROR", component, format, args...)
}

func (l FileLogger) write(level, component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	writeLog(l.w, level, component, format, args...)
}

// ConsoleLogger writes to a terminal, colouring the level tag when the
// terminal supports it.
type ConsoleLogger struct {
	mu  *sync.Mutex
	out *termenv.Output
}

func NewConsoleLogger(w io.Writer) ConsoleLogger {
	return ConsoleLogger{mu: &sync.Mutex{}, out: termenv.NewOutput(w)}
}

func (l ConsoleLogger) Infof(component string, format string, args ...interface{}) {
	l.write("INFO", "4", component, format, args...)
}
func (l ConsoleLogger) Warnf(component string, format string, args ...interface{}) {
	l.write("WARN", "3", component, format, args...)
}
func (l ConsoleLogger) Errorf(component string, format string, args ...interface{}) {
	l.write("ERROR", "1", component, format, args...)
}

func (l ConsoleLogger) write(level, color, component, format string, args ...interface{}) {
	tag := l.out.String(level).Foreground(l.out.Color(color)).Bold().String()
	l.mu.Lock()
	defer l.mu.Unlock()
	writeLog(l.out, tag, component, format, args...)
}

// TeeLogger fans every line out to several loggers.
type TeeLogger []Logger

func (t TeeLogger) Infof(component string, format string, args ...interface{}) {
	for _, l := range t {
		l.Infof(component, format, args...)
	}
}
func (t TeeLogger) Warnf(component string, format string, args ...interface{}) {
	for _, l := range t {
		l.Warnf(component, format, args...)
	}
}
func (t TeeLogger) Errorf(component string, format string, args ...interface{}) {
	for _, l := range t {
		l.Errorf(component, format, args...)
	}
}

func writeLog(w io.Writer, level, component, format string, args ...interface{}) {
	timestamp := time.Now().Format(time.RFC3339)
	msg := fmt.Sprintf(format, args...)
	_, _ = io.WriteString(w, timestamp+" ["+level+"] "+component+": "+msg+"\n")
}
