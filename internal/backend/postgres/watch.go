package postgres

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"

	"quicktasks/internal/service"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
)

var errListenerLost = errors.New("lost connection to the database")

// Subscribe implements service.Watcher.
//
// Each subscription owns a pq.Listener on the task_changes channel and
// re-reads the owner's tasks whenever a change for that owner arrives.
// Losing the listener connection ends the subscription with an error.
// The returned Unsubscribe must not be called from inside a callback.
func (s *Store) Subscribe(ctx context.Context, ownerID string, onSnapshot service.SnapshotFunc, onError service.ErrorFunc) (service.Unsubscribe, error) {
	if _, err := s.handle(); err != nil {
		return nil, err
	}
	if s.connStr == "" {
		return nil, service.ErrStoreUnavailable
	}

	lost := make(chan error, 1)
	listener := pq.NewListener(s.connStr, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if ev != pq.ListenerEventDisconnected && ev != pq.ListenerEventConnectionAttemptFailed {
			return
		}
		if err == nil {
			err = errListenerLost
		}
		select {
		case lost <- err:
		default:
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, service.Remote("subscribe", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer listener.Close()
		s.watch(ctx, ownerID, listener, lost, onSnapshot, onError)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (s *Store) watch(ctx context.Context, ownerID string, listener *pq.Listener, lost <-chan error, onSnapshot service.SnapshotFunc, onError service.ErrorFunc) {
	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("subscription for %s ended: %v", ownerID, err)
		if onError != nil {
			onError(service.Remote("subscribe", err))
		}
	}

	refresh := func() bool {
		tasks, err := s.ListForOwner(ctx, ownerID)
		if err != nil {
			fail(err)
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		onSnapshot(tasks)
		return true
	}

	if !refresh() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-lost:
			fail(err)
			return
		case n := <-listener.Notify:
			// A nil notification follows a reconnect; anything may have
			// changed in between.
			if n != nil && n.Extra != ownerID {
				continue
			}
			drain(listener.Notify)
			if !refresh() {
				return
			}
		}
	}
}

// drain discards queued notifications so a burst of changes produces one
// snapshot.
func drain(ch <-chan *pq.Notification) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
