package mocks

import (
	"fmt"
	"strings"
	"sync"
)

// LoggerMock records messages sent through the application logger.
type LoggerMock struct {
	mu    sync.Mutex
	lines []string
}

func (l *LoggerMock) record(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s", level, message))
}

func (l *LoggerMock) Print(message string)   { l.record("PRINT", message) }
func (l *LoggerMock) Trace(message string)   { l.record("TRACE", message) }
func (l *LoggerMock) Debug(message string)   { l.record("DEBUG", message) }
func (l *LoggerMock) Info(message string)    { l.record("INFO", message) }
func (l *LoggerMock) Warning(message string) { l.record("WARN", message) }
func (l *LoggerMock) Error(message string)   { l.record("ERROR", message) }
func (l *LoggerMock) Fatal(message string)   { l.record("FATAL", message) }

// Lines returns a copy of everything logged so far.
func (l *LoggerMock) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Contains reports whether any line at level contains substr.
func (l *LoggerMock) Contains(level, substr string) bool {
	for _, line := range l.Lines() {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
