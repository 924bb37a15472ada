package controller

import "quicktasks/internal/service"

// OpenEditor opens the task editor. A nil task opens it for a new task
// and clears the selection; otherwise task becomes the selection.
func (c *Controller) OpenEditor(task *service.Task) {
	c.mu.Lock()
	c.selected = copyTask(task)
	c.editorOpen = true
	hooks := c.hooksLocked()
	c.mu.Unlock()
	runHooks(hooks)
}

// CloseEditor closes the editor without saving.
func (c *Controller) CloseEditor() {
	c.mu.Lock()
	c.editorOpen = false
	hooks := c.hooksLocked()
	c.mu.Unlock()
	runHooks(hooks)
}

// EditorOpen reports whether the editor is open.
func (c *Controller) EditorOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editorOpen
}

// RequestDelete selects task id from the list and opens the delete
// confirmation prompt. An id that is not in the list leaves nothing
// selected.
func (c *Controller) RequestDelete(id string) {
	c.mu.Lock()
	task := c.findLocked(id)
	c.mu.Unlock()
	c.OpenDelete(task)
}

// OpenDelete makes task the selection and opens the delete confirmation
// prompt. Callers that hold a task without a mounted list use it directly.
func (c *Controller) OpenDelete(task *service.Task) {
	c.mu.Lock()
	c.selected = copyTask(task)
	c.deleteOpen = true
	hooks := c.hooksLocked()
	c.mu.Unlock()
	runHooks(hooks)
}

// CancelDelete closes the delete confirmation prompt.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	c.deleteOpen = false
	hooks := c.hooksLocked()
	c.mu.Unlock()
	runHooks(hooks)
}

// DeletePending reports whether the delete confirmation prompt is open.
func (c *Controller) DeletePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteOpen
}

// Select makes task id from the list the selection without opening the
// editor or the prompt. It reports whether the task was found.
func (c *Controller) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = c.findLocked(id)
	return c.selected != nil
}

// Selected returns a copy of the selected task.
func (c *Controller) Selected() (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return service.Task{}, false
	}
	return *c.selected, true
}

// SetFilter changes the filter. The list is not refetched.
func (c *Controller) SetFilter(f service.Filter) {
	c.mu.Lock()
	c.filter = f
	hooks := c.hooksLocked()
	c.mu.Unlock()
	runHooks(hooks)
}

// Filter returns the active filter.
func (c *Controller) Filter() service.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Tasks returns the full list in snapshot order.
func (c *Controller) Tasks() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]service.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Visible returns the tasks selected by the active filter.
func (c *Controller) Visible() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Apply(c.tasks)
}

// State returns the load state of the current mount.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the subscription error of the current mount, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Owner returns the uid the controller is mounted for.
func (c *Controller) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// OnChange registers fn to run after every state change. Hooks run on the
// goroutine that caused the change, without the controller lock held.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func (c *Controller) hooksLocked() []func() {
	if len(c.hooks) == 0 {
		return nil
	}
	out := make([]func(), len(c.hooks))
	copy(out, c.hooks)
	return out
}

func (c *Controller) findLocked(id string) *service.Task {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return copyTask(&c.tasks[i])
		}
	}
	return nil
}

func copyTask(t *service.Task) *service.Task {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
