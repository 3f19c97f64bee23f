package dto

import (
	"fmt"
	"strings"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row-level change delivered by the change feed. The
// postgres triggers, the rabbitmq relay and the redis relay all use this shape.
type ChangeEvent struct {
	Table     string         `json:"table"`
	Type      EventType      `json:"type"`
	Record    map[string]any `json:"record,omitempty"`
	OldRecord map[string]any `json:"old_record,omitempty"`
}

// Normalize upper-cases the event type so feeds may send any case.
func (e *ChangeEvent) Normalize() {
	e.Type = EventType(strings.ToUpper(strings.TrimSpace(string(e.Type))))
}

// String returns the named column of the new row, or "" when absent or null.
func (e ChangeEvent) String(column string) string {
	v, ok := e.Record[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether the new row carries column.
func (e ChangeEvent) Has(column string) bool {
	_, ok := e.Record[column]
	return ok
}
