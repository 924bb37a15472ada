// Package notify carries transient user-facing notifications.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Variant is the visual kind of a notification.
type Variant int

const (
	// Default is a success or informational notification.
	Default Variant = iota
	// Destructive is an error notification.
	Destructive
)

// Notification is a short title and description shown to the user.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// IsError reports whether n is an error notification.
func (n Notification) IsError() bool {
	return n.Variant == Destructive
}

// Success returns a success notification.
func Success(description string) Notification {
	return Notification{Title: "Success", Description: description}
}

// Error returns an error notification.
func Error(description string) Notification {
	return Notification{Title: "Error", Description: description, Variant: Destructive}
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to a Notifier.
type Func func(n Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) { f(n) }

// Writer prints success notifications to out and errors to errOut,
// one line each. Quiet suppresses success output.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

// NewWriter creates a Writer notifier.
func NewWriter(out, errOut io.Writer, quiet bool) *Writer {
	return &Writer{out: out, errOut: errOut, quiet: quiet}
}

// Notify implements Notifier.
func (w *Writer) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.IsError() {
		fmt.Fprintf(w.errOut, "error: %s\n", n.Description)
		return
	}
	if !w.quiet {
		fmt.Fprintln(w.out, n.Description)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.list))
	copy(out, r.list)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) == 0 {
		return Notification{}, false
	}
	return r.list[len(r.list)-1], true
}

// Reset drops the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = nil
}
