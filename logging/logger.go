package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var levelColors = [...]string{
	"\033[36m",       // cyan
	"\033[38;5;195m", // pale blue
	"\033[33m",       // yellow
	"\033[31m",       // red
	"\033[35m",       // magenta
}

const colorReset = "\033[0m"

func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a LOG_LEVEL value to a LogLevel, defaulting to INFO
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds logger configuration options
type Config struct {
	Level       string // "debug", "info", "warn", "error", "fatal"
	Output      io.Writer
	Prefix      string
	EnableColor bool
	Format      string // "text" or "json"
}

// sink serialises writes from every logger sharing one output
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

// Logger is an immutable leveled logger; WithPrefix derives component loggers sharing its sink
type Logger struct {
	level  LogLevel
	prefix string
	color  bool
	json   bool
	out    *sink
}

// New creates a Logger; JSON output never carries colour codes
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	jsonFormat := strings.EqualFold(config.Format, FormatJSON)
	return &Logger{
		level:  ParseLevel(config.Level),
		prefix: config.Prefix,
		color:  config.EnableColor && !jsonFormat,
		json:   jsonFormat,
		out:    &sink{w: config.Output},
	}
}

// WithPrefix returns a logger whose prefix is nested under this one's ("App:RoundService")
func (l *Logger) WithPrefix(prefix string) *Logger {
	child := *l
	if l.prefix != "" {
		child.prefix = l.prefix + ":" + prefix
	} else {
		child.prefix = prefix
	}
	return &child
}

func (l *Logger) format(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	if l.json {
		line, err := json.Marshal(struct {
			Time      string `json:"time"`
			Level     string `json:"level"`
			Component string `json:"component,omitempty"`
			Message   string `json:"msg"`
		}{timestamp, level.String(), l.prefix, message})
		if err == nil {
			return string(line)
		}
	}

	prefix := ""
	if l.prefix != "" {
		prefix = "[" + l.prefix + "] "
	}
	line := fmt.Sprintf("%-5s %s %-30s%s", level, timestamp, prefix, message)
	if l.color {
		line = levelColors[level] + line + colorReset
	}
	return line
}

func (l *Logger) emit(level LogLevel, message string) {
	if level < l.level {
		return
	}
	line := l.format(level, message)

	l.out.mu.Lock()
	fmt.Fprintln(l.out.w, line)
	l.out.mu.Unlock()

	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debug(args ...interface{}) { l.emit(DEBUG, fmt.Sprint(args...)) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.emit(DEBUG, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(args ...interface{}) { l.emit(INFO, fmt.Sprint(args...)) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.emit(INFO, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(args ...interface{}) { l.emit(WARN, fmt.Sprint(args...)) }

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.emit(WARN, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(args ...interface{}) { l.emit(ERROR, fmt.Sprint(args...)) }

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.emit(ERROR, fmt.Sprintf(format, args...))
}

// Fatalf logs at FATAL and exits with status 1
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.emit(FATAL, fmt.Sprintf(format, args...))
}
