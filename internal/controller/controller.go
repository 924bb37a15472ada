// Package controller implements the task list state machine shared by the
// CLI and the HTTP surface.
//
// A Controller is mounted for one user. While mounted it holds exactly one
// live subscription and replaces its task list wholesale on every
// snapshot. Mutations go straight to the store and are never applied
// locally; the next snapshot reflects them. Every mutating action reports
// its outcome through a notify.Notifier.
package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"quicktasks/internal/identity"
	"quicktasks/internal/notify"
	"quicktasks/internal/service"
)

// Notification texts.
const (
	MsgCreated       = "Task created successfully"
	MsgUpdated       = "Task updated successfully"
	MsgDeleted       = "Task deleted successfully"
	MsgLoginToCreate = "You must be logged in to create tasks"
	MsgFetchFailed   = "Failed to fetch tasks"
	MsgTitleRequired = "Title is required"
)

// State is the load state of the task list.
type State int

const (
	// Loading means no snapshot has arrived yet.
	Loading State = iota
	// Ready means at least one snapshot or a subscription error arrived.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// Users resolves the current user.
type Users interface {
	CurrentUser(ctx context.Context) (identity.User, error)
}

// UserFunc adapts a function to Users.
type UserFunc func(ctx context.Context) (identity.User, error)

// CurrentUser implements Users.
func (f UserFunc) CurrentUser(ctx context.Context) (identity.User, error) { return f(ctx) }

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFilter sets the initial filter.
func WithFilter(f service.Filter) Option {
	return func(c *Controller) { c.filter = f }
}

// Controller is the task list state machine.
type Controller struct {
	users    Users
	store    service.Store
	watcher  service.Watcher
	notifier notify.Notifier
	logger   *log.Logger

	mu          sync.Mutex
	owner       string
	gen         int
	state       State
	ready       chan struct{}
	tasks       []service.Task
	lastErr     error
	filter      service.Filter
	selected    *service.Task
	editorOpen  bool
	deleteOpen  bool
	unsubscribe service.Unsubscribe
	hooks       []func()
}

// New creates an unmounted Controller.
func New(users Users, store service.Store, watcher service.Watcher, notifier notify.Notifier, opts ...Option) *Controller {
	c := &Controller{
		users:    users,
		store:    store,
		watcher:  watcher,
		notifier: notifier,
		logger:   log.New(io.Discard, "", 0),
		filter:   service.FilterAll,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount resolves the current user and opens the live subscription,
// disposing any previous one. It returns service.ErrUnauthenticated when
// nobody is signed in; no task data is loaded in that case.
//
// A subscription that cannot be opened is reported like a subscription
// error: the controller becomes Ready with an empty list.
func (c *Controller) Mount(ctx context.Context) error {
	c.Unmount()

	user, err := c.users.CurrentUser(ctx)
	if err != nil {
		return service.ErrUnauthenticated
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.owner = user.UID
	c.state = Loading
	c.ready = make(chan struct{})
	c.tasks = nil
	c.lastErr = nil
	c.mu.Unlock()

	unsubscribe, err := c.watcher.Subscribe(ctx, user.UID,
		func(tasks []service.Task) { c.onSnapshot(gen, tasks) },
		func(err error) { c.onError(gen, err) },
	)
	if err != nil {
		c.onError(gen, err)
		return nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

// Unmount disposes the subscription. No snapshot is applied afterwards.
// It must not be called from an OnChange hook.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.gen++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// WaitReady blocks until the first snapshot or subscription error of the
// current mount.
func (c *Controller) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()

	select {
	case <-ready:
		return nil
	default:
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) onSnapshot(gen int, tasks []service.Task) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	kept := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.UserID != c.owner {
			c.logger.Printf("dropping task %s owned by %s", t.ID, t.UserID)
			continue
		}
		kept = append(kept, t)
	}
	c.tasks = kept
	c.markReadyLocked()
	hooks := c.hooksLocked()
	c.mu.Unlock()

	runHooks(hooks)
}

func (c *Controller) onError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.lastErr = err
	c.markReadyLocked()
	hooks := c.hooksLocked()
	c.mu.Unlock()

	c.logger.Printf("error fetching tasks: %v", err)
	c.notifier.Notify(notify.Error(MsgFetchFailed))
	runHooks(hooks)
}

func (c *Controller) markReadyLocked() {
	if c.state == Ready {
		return
	}
	c.state = Ready
	close(c.ready)
}

// Create adds a task for the current user. The owner is always the
// current user and the status is always todo, whatever f carries.
// It returns the new task id.
func (c *Controller) Create(ctx context.Context, f service.Fields) (string, error) {
	user, err := c.users.CurrentUser(ctx)
	if err != nil {
		c.notifier.Notify(notify.Error(MsgLoginToCreate))
		return "", service.ErrUnauthenticated
	}

	f.Title = strings.TrimSpace(f.Title)
	f.Status = service.StatusTodo
	if f.Priority == "" {
		f.Priority = service.PriorityMedium
	}
	if f.Title == "" {
		c.notifier.Notify(notify.Error(MsgTitleRequired))
		return "", errors.New(MsgTitleRequired)
	}
	if err := f.Validate(); err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return "", err
	}

	id, err := c.store.Create(ctx, user.UID, f)
	if err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return "", err
	}

	c.mu.Lock()
	c.editorOpen = false
	hooks := c.hooksLocked()
	c.mu.Unlock()

	c.notifier.Notify(notify.Success(MsgCreated))
	runHooks(hooks)
	return id, nil
}

// Update applies p to the selected task. Without a selection it does
// nothing.
func (c *Controller) Update(ctx context.Context, p service.Patch) error {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if selected == nil {
		return nil
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		c.notifier.Notify(notify.Error(MsgTitleRequired))
		return errors.New(MsgTitleRequired)
	}
	if err := p.Validate(); err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return err
	}

	if err := c.store.Update(ctx, selected.ID, p); err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return err
	}

	c.mu.Lock()
	c.editorOpen = false
	hooks := c.hooksLocked()
	c.mu.Unlock()

	c.notifier.Notify(notify.Success(MsgUpdated))
	runHooks(hooks)
	return nil
}

// ConfirmDelete deletes the selected task and closes the confirmation
// prompt. Without a selection it does nothing.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if selected == nil {
		return nil
	}

	if err := c.store.Delete(ctx, selected.ID); err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return err
	}

	c.mu.Lock()
	c.deleteOpen = false
	hooks := c.hooksLocked()
	c.mu.Unlock()

	c.notifier.Notify(notify.Success(MsgDeleted))
	runHooks(hooks)
	return nil
}

// ChangeStatus sets the status of task id. Only failures are notified.
func (c *Controller) ChangeStatus(ctx context.Context, id string, s service.Status) error {
	s, err := service.ParseStatus(string(s))
	if err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return err
	}
	if err := c.store.Update(ctx, id, service.StatusPatch(s)); err != nil {
		c.notifier.Notify(notify.Error(err.Error()))
		return err
	}
	return nil
}
