// Package logger provides leveled logging in text or JSON-lines form.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	}
	return "INFO"
}

// ParseLevel maps a config string to a Level. Unknown values mean InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

// Logger provides leveled logging.
type Logger struct {
	level  Level
	json   bool
	mu     sync.Mutex
	out    io.Writer
	logger *log.Logger
}

var defaultLogger *Logger

// Init initializes the default logger writing to stderr.
func Init(level string, format string) {
	InitWithWriter(level, format, os.Stderr)
}

// InitWithWriter initializes the default logger writing to w.
func InitWithWriter(level string, format string, w io.Writer) {
	l := &Logger{
		level: ParseLevel(level),
		json:  strings.ToLower(format) == "json",
		out:   w,
	}
	if !l.json {
		l.logger = log.New(w, "", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	}
	defaultLogger = l
}

type jsonEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

// output writes one entry. depth counts the frames between the caller of the
// package-level function and log.Output.
func (l *Logger) output(depth int, level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.json {
		_ = l.logger.Output(depth, "["+level.String()+"] "+msg)
		return
	}
	line, err := json.Marshal(jsonEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   strings.ToLower(level.String()),
		Message: msg,
	})
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}

func logAt(level Level, format string, args ...interface{}) {
	if defaultLogger != nil && defaultLogger.level <= level {
		defaultLogger.output(4, level, format, args...)
	}
}

func Debug(format string, args ...interface{}) {
	logAt(DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	logAt(InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	logAt(WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	logAt(ErrorLevel, format, args...)
}

func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.output(3, ErrorLevel, "[FATAL] "+format, args...)
	}
	os.Exit(1)
}
