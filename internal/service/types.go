// Package service defines the backend-agnostic task model and store contracts.
package service

import (
	"fmt"
	"strings"
	"time"
)

// Status is the progress state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in cycle order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// Next returns the status that follows s in the quick-toggle cycle:
// todo -> in-progress -> completed -> todo.
func (s Status) Next() Status {
	switch s {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusTodo
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus parses a status name (case-insensitive, trimmed).
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

// Priority is the importance of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority parses a priority name (case-insensitive, trimmed).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// Task represents a single task document.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Fields are the caller-supplied fields of a new task.
// The owner, id and timestamps are assigned by the store.
type Fields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
}

// Validate checks the enumerations of f.
func (f Fields) Validate() error {
	if !f.Priority.Valid() {
		return fmt.Errorf("invalid priority: %s", f.Priority)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("invalid status: %s", f.Status)
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil
}

// Validate checks the enumerations present in p.
func (p Patch) Validate() error {
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("invalid priority: %s", *p.Priority)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid status: %s", *p.Status)
	}
	return nil
}

// Document returns the store document fields carried by p.
func (p Patch) Document() map[string]any {
	doc := make(map[string]any, 4)
	if p.Title != nil {
		doc["title"] = *p.Title
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.Priority != nil {
		doc["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		doc["status"] = string(*p.Status)
	}
	return doc
}

// Apply returns t with p merged in. Timestamps are not touched.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// StatusPatch returns a patch that only changes the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}
