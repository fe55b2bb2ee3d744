// Package codegraphlog wraps the standard logger with the tag-prefixed
// style used across the CLI and its components: "component: message".
package codegraphlog

import "log"

// Logger tags every message with a component name, matching the
// "detector: ..." / "decompose MCP server ..." convention used elsewhere
// in this codebase.
type Logger struct {
	component string
}

func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf(l.component+": "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	log.Printf(l.component+": warning: "+format, args...)
}
