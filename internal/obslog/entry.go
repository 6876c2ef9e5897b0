package obslog

import (
	"fmt"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Component identifies which part of the remapper emitted an entry.
type Component string

const (
	ComponentReader    Component = "reader"
	ComponentCompiler  Component = "compiler"
	ComponentEngine    Component = "engine"
	ComponentProjector Component = "projector"
	ComponentLoop      Component = "loop"
	ComponentControl   Component = "control"
)

// Entry is a single recorded log line.
type Entry struct {
	Timestamp time.Time
	Component Component
	Level     Level
	Message   string
	Data      map[string]interface{}
}

// Format renders the entry the way layerkeyctl/layerkeycheck print it.
func (e *Entry) Format() string {
	ts := e.Timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] [%s] %s: %s", ts, e.Component, e.Level, e.Message)
}
