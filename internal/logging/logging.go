// Package logging writes the pipeline's append-only run log. Each line is
// `[timestamp] [LEVEL] message` with RFC3339 UTC timestamps, mirrored to the
// console with per-level colors.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type Level string

const (
	Info    Level = "INFO"
	Warn    Level = "WARN"
	Error   Level = "ERROR"
	Success Level = "SUCCESS"
)

var levelStyles = map[Level]lipgloss.Style{
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
}

// Logger appends leveled lines to a log file and mirrors them to a console
// writer. A nil console suppresses mirroring (used by tests).
type Logger struct {
	file    *os.File
	console io.Writer
	now     func() time.Time
}

// Open creates the log directory if needed and opens the log file for
// appending. Console output goes to stderr.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return &Logger{file: f, console: os.Stderr, now: time.Now}, nil
}

// New returns a Logger writing only to console, for contexts where no log
// file is configured yet (e.g. pre-flight failures).
func New(console io.Writer) *Logger {
	return &Logger{console: console, now: time.Now}
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) log(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ts := l.now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("[%s] [%s] %s\n", ts, level, msg)

	if l.file != nil {
		l.file.WriteString(line)
	}
	if l.console != nil {
		label := "[" + string(level) + "]"
		if s, ok := levelStyles[level]; ok {
			label = s.Render(label)
		}
		fmt.Fprintf(l.console, "%s %s\n", label, msg)
	}
}

func (l *Logger) Infof(format string, args ...any)    { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)    { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.log(Error, format, args...) }
func (l *Logger) Successf(format string, args ...any) { l.log(Success, format, args...) }
