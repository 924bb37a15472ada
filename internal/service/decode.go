package service

import (
	"fmt"
	"time"
)

// DecodeTask maps a loosely-typed store document onto a Task.
//
// Missing text fields become empty, a missing priority becomes medium and a
// missing status becomes todo. Present fields of the wrong type, or
// enumeration values outside the known sets, are rejected.
func DecodeTask(id, userID string, doc map[string]any, createdAt, updatedAt time.Time) (Task, error) {
	if id == "" {
		return Task{}, fmt.Errorf("task document has no id")
	}
	if userID == "" {
		return Task{}, fmt.Errorf("task %s: missing userId", id)
	}

	t := Task{
		ID:        id,
		UserID:    userID,
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	var err error
	if t.Title, err = optionalString(doc, "title"); err != nil {
		return Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	if t.Description, err = optionalString(doc, "description"); err != nil {
		return Task{}, fmt.Errorf("task %s: %w", id, err)
	}

	if s, err := optionalString(doc, "priority"); err != nil {
		return Task{}, fmt.Errorf("task %s: %w", id, err)
	} else if s != "" {
		if t.Priority, err = ParsePriority(s); err != nil {
			return Task{}, fmt.Errorf("task %s: %w", id, err)
		}
	}

	if s, err := optionalString(doc, "status"); err != nil {
		return Task{}, fmt.Errorf("task %s: %w", id, err)
	} else if s != "" {
		if t.Status, err = ParseStatus(s); err != nil {
			return Task{}, fmt.Errorf("task %s: %w", id, err)
		}
	}

	return t, nil
}

func optionalString(doc map[string]any, key string) (string, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, v)
	}
	return s, nil
}

// FieldsDocument returns the store document for a new task.
func FieldsDocument(f Fields) map[string]any {
	return map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"priority":    string(f.Priority),
		"status":      string(f.Status),
	}
}
