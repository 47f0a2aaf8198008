// Package observer provides the leveled diagnostic log shared by every component.
//
// Entries are kept in memory for later inspection and forwarded to a zap logger.
package observer

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the severity of a diagnostic entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Observer receives diagnostic events.
type Observer interface {
	Log(level Level, msg string, fields ...zap.Field)
}

// Entry is one recorded diagnostic event.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
}

// Memory is an append-only in-memory Observer.
type Memory struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time
}

// NewMemory creates a Memory observer forwarding to logger.
// maxEntries <= 0 keeps every entry; otherwise the oldest entries are dropped.
func NewMemory(logger *zap.Logger, maxEntries int) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		maxEntries: maxEntries,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Log records the event and forwards it to zap.
func (m *Memory) Log(level Level, msg string, fields ...zap.Field) {
	entry := Entry{
		Timestamp: m.now(),
		Level:     level,
		Message:   msg,
		Data:      fieldsToMap(fields),
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		m.entries = append(m.entries[:0:0], m.entries[len(m.entries)-m.maxEntries:]...)
	}
	m.mu.Unlock()

	if ce := m.logger.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

// Logs returns a copy of the recorded entries in insertion order.
func (m *Memory) Logs() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fieldsToMap(fields []zap.Field) map[string]any {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

// Nop discards every event.
type Nop struct{}

// Log does nothing.
func (Nop) Log(Level, string, ...zap.Field) {}
