package service

import (
	"fmt"
	"strings"
)

// Filter selects a subset of an already loaded task list.
type Filter string

// FilterAll keeps every task.
const FilterAll Filter = "all"

// Filters lists every filter in display order.
var Filters = []Filter{
	FilterAll,
	Filter(StatusTodo),
	Filter(StatusInProgress),
	Filter(StatusCompleted),
	Filter(PriorityHigh),
	Filter(PriorityMedium),
	Filter(PriorityLow),
}

// ParseFilter parses a filter name. Empty means all.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid filter: %s", s)
}

// Label returns the human-readable name of f.
func (f Filter) Label() string {
	switch f {
	case FilterAll, "":
		return "All"
	case Filter(StatusTodo):
		return "Todo"
	case Filter(StatusInProgress):
		return "In Progress"
	case Filter(StatusCompleted):
		return "Completed"
	case Filter(PriorityHigh):
		return "High Priority"
	case Filter(PriorityMedium):
		return "Medium Priority"
	case Filter(PriorityLow):
		return "Low Priority"
	}
	return string(f)
}

// Match reports whether t is selected by f.
// Status filters match the status exactly, priority filters the priority.
func (f Filter) Match(t Task) bool {
	switch {
	case f == FilterAll || f == "":
		return true
	case Status(f).Valid():
		return t.Status == Status(f)
	default:
		return t.Priority == Priority(f)
	}
}

// Apply returns the tasks selected by f, preserving order.
// The input slice is not modified.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
