// Package card implements the task card: one task plus a local status
// override that gives immediate feedback while a status change is in
// flight. The next authoritative task replaces the override.
package card

import (
	"context"
	"fmt"
	"io"

	"quicktasks/internal/output"
	"quicktasks/internal/service"
)

// StatusChanger receives status changes made on a card.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, id string, s service.Status) error
}

// Card is a task with an optional local status override.
type Card struct {
	task     service.Task
	override *service.Status
	changer  StatusChanger
}

// New creates a card for task.
func New(task service.Task, changer StatusChanger) *Card {
	return &Card{task: task, changer: changer}
}

// Task returns the authoritative task.
func (c *Card) Task() service.Task {
	return c.task
}

// Status returns the status to draw.
func (c *Card) Status() service.Status {
	if c.override != nil {
		return *c.override
	}
	return c.task.Status
}

// Pending reports whether the drawn status differs from the task.
func (c *Card) Pending() bool {
	return c.override != nil && *c.override != c.task.Status
}

// Cycle advances the status todo -> in-progress -> completed -> todo and
// forwards it.
func (c *Card) Cycle(ctx context.Context) error {
	return c.Select(ctx, c.Status().Next())
}

// Select sets the status and forwards it. The override stays in place
// even if forwarding fails; the next snapshot wins.
func (c *Card) Select(ctx context.Context, s service.Status) error {
	if !s.Valid() {
		return fmt.Errorf("invalid status: %s", s)
	}
	c.override = &s
	return c.changer.ChangeStatus(ctx, c.task.ID, s)
}

// Reconcile installs the authoritative task and drops the override.
func (c *Card) Reconcile(task service.Task) {
	c.task = task
	c.override = nil
}

// Render draws the card as row num.
func (c *Card) Render(w io.Writer, st *output.Styles, num int) {
	st.FormatTask(w, num, c.task, c.Status())
}
