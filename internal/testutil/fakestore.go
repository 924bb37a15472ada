// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quicktasks/internal/service"
)

// FakeStore is an in-memory implementation of service.Backend for testing.
// Snapshots are delivered synchronously from the goroutine that performed
// the write, after the write is visible.
type FakeStore struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int
	clock  time.Time
	subs   map[int]*fakeSub
	subSeq int
	writes int

	// Unavailable makes every call fail with service.ErrStoreUnavailable.
	Unavailable bool

	// Error injection for testing
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
	ListErr      error
	GetErr       error
	SubscribeErr error
}

type fakeSub struct {
	mu         sync.Mutex
	owner      string
	active     bool
	onSnapshot service.SnapshotFunc
	onError    service.ErrorFunc
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		subs:  make(map[int]*fakeSub),
	}
}

// tick returns a strictly increasing timestamp. Caller holds f.mu.
func (f *FakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

// AddTask seeds a task without counting it as a write or notifying
// subscribers.
func (f *FakeStore) AddTask(ownerID, id, title string, priority service.Priority, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	t := service.Task{
		ID:        id,
		UserID:    ownerID,
		Title:     title,
		Priority:  priority,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Writes returns the number of create, update and delete calls that reached
// the store.
func (f *FakeStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Task returns the stored task with id.
func (f *FakeStore) Task(id string) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// ActiveSubscriptions returns the number of open subscriptions.
func (f *FakeStore) ActiveSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Create implements service.Store.
func (f *FakeStore) Create(ctx context.Context, ownerID string, fields service.Fields) (string, error) {
	if f.Unavailable {
		return "", service.ErrStoreUnavailable
	}
	if f.CreateErr != nil {
		return "", service.Remote("create", f.CreateErr)
	}
	f.mu.Lock()
	f.writes++
	f.nextID++
	now := f.tick()
	t := service.Task{
		ID:          fmt.Sprintf("task-%d", f.nextID),
		UserID:      ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		Status:      fields.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, t)
	f.mu.Unlock()

	f.publish(ownerID)
	return t.ID, nil
}

// Update implements service.Store.
func (f *FakeStore) Update(ctx context.Context, id string, p service.Patch) error {
	if f.Unavailable {
		return service.ErrStoreUnavailable
	}
	if f.UpdateErr != nil {
		return service.Remote("update", f.UpdateErr)
	}
	f.mu.Lock()
	f.writes++
	owner := ""
	for i, t := range f.tasks {
		if t.ID == id {
			updated := p.Apply(t)
			updated.UpdatedAt = f.tick()
			f.tasks[i] = updated
			owner = t.UserID
			break
		}
	}
	f.mu.Unlock()

	if owner == "" {
		return service.Remote("update", fmt.Errorf("no document to update: %s: %w", id, service.ErrNotFound))
	}
	f.publish(owner)
	return nil
}

// Delete implements service.Store.
func (f *FakeStore) Delete(ctx context.Context, id string) error {
	if f.Unavailable {
		return service.ErrStoreUnavailable
	}
	if f.DeleteErr != nil {
		return service.Remote("delete", f.DeleteErr)
	}
	f.mu.Lock()
	f.writes++
	owner := ""
	for i, t := range f.tasks {
		if t.ID == id {
			owner = t.UserID
			f.tasks = append(f.tasks[:i:i], f.tasks[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	if owner != "" {
		f.publish(owner)
	}
	return nil
}

// ListForOwner implements service.Store.
func (f *FakeStore) ListForOwner(ctx context.Context, ownerID string) ([]service.Task, error) {
	if f.Unavailable {
		return nil, service.ErrStoreUnavailable
	}
	if f.ListErr != nil {
		return nil, service.Remote("list", f.ListErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ownedLocked(ownerID), nil
}

// Get implements service.Store.
func (f *FakeStore) Get(ctx context.Context, id string) (service.Task, error) {
	if f.Unavailable {
		return service.Task{}, service.ErrStoreUnavailable
	}
	if f.GetErr != nil {
		return service.Task{}, service.Remote("get", f.GetErr)
	}
	t, ok := f.Task(id)
	if !ok {
		return service.Task{}, service.Remote("get", fmt.Errorf("task %s: %w", id, service.ErrNotFound))
	}
	return t, nil
}

func (f *FakeStore) ownedLocked(ownerID string) []service.Task {
	out := []service.Task{}
	for _, t := range f.tasks {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out
}

// Subscribe implements service.Watcher.
func (f *FakeStore) Subscribe(ctx context.Context, ownerID string, onSnapshot service.SnapshotFunc, onError service.ErrorFunc) (service.Unsubscribe, error) {
	if f.Unavailable {
		return nil, service.ErrStoreUnavailable
	}
	if f.SubscribeErr != nil {
		return nil, service.Remote("subscribe", f.SubscribeErr)
	}

	sub := &fakeSub{owner: ownerID, active: true, onSnapshot: onSnapshot, onError: onError}

	f.mu.Lock()
	f.subSeq++
	key := f.subSeq
	f.subs[key] = sub
	initial := f.ownedLocked(ownerID)
	f.mu.Unlock()

	sub.deliver(initial)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, key)
			f.mu.Unlock()

			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		})
	}
	return unsubscribe, nil
}

// FailSubscriptions ends every open subscription with err.
func (f *FakeStore) FailSubscriptions(err error) {
	f.mu.Lock()
	subs := make([]*fakeSub, 0, len(f.subs))
	for key, s := range f.subs {
		subs = append(subs, s)
		delete(f.subs, key)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		if s.active {
			s.active = false
			if s.onError != nil {
				s.onError(service.Remote("subscribe", err))
			}
		}
		s.mu.Unlock()
	}
}

// publish delivers the current snapshot of ownerID to its subscribers.
func (f *FakeStore) publish(ownerID string) {
	f.mu.Lock()
	var subs []*fakeSub
	for _, s := range f.subs {
		if s.owner == ownerID {
			subs = append(subs, s)
		}
	}
	snapshot := f.ownedLocked(ownerID)
	f.mu.Unlock()

	for _, s := range subs {
		s.deliver(snapshot)
	}
}

func (s *fakeSub) deliver(tasks []service.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	snapshot := make([]service.Task, len(tasks))
	copy(snapshot, tasks)
	s.onSnapshot(snapshot)
}

// ErrFake is a generic injected backend failure.
var ErrFake = errors.New("backend unavailable")
