package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"quicktasks/internal/service"
)

// MinIDPrefix is the shortest id prefix accepted as a task reference.
const MinIDPrefix = 4

// TaskRef is a parsed task reference: either a 1-based position in the
// unfiltered list or an id (prefix).
type TaskRef struct {
	Num int    // 1-based position, 0 if an id was given
	ID  string // id or id prefix, empty if a position was given
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args[0].
//
// Parsing rules:
// 1. If the arg is all digits -> position
// 2. If the arg is at least MinIDPrefix characters of [A-Za-z0-9-] -> id prefix
// 3. Otherwise -> error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	ref := strings.TrimSpace(args[0])

	if isAllDigits(ref) {
		num, err := strconv.Atoi(ref)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %s", ref)
		}
		return TaskRef{Num: num}, nil
	}

	if len(ref) >= MinIDPrefix && isIDChars(ref) {
		return TaskRef{ID: ref}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
}

// Resolve finds the referenced task in tasks, which must be in snapshot
// order.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID == "" {
		if r.Num < 1 || r.Num > len(tasks) {
			return service.Task{}, fmt.Errorf("task number out of range: %d", r.Num)
		}
		return tasks[r.Num-1], nil
	}

	var matches []service.Task
	for _, t := range tasks {
		if t.ID == r.ID {
			return t, nil
		}
		if strings.HasPrefix(t.ID, r.ID) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return service.Task{}, fmt.Errorf("task not found: %s", r.ID)
	case 1:
		return matches[0], nil
	default:
		return service.Task{}, fmt.Errorf("ambiguous task reference: %s", r.ID)
	}
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isIDChars(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
