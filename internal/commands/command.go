// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"quicktasks/internal/backend/googletasks"
	"quicktasks/internal/config"
	"quicktasks/internal/controller"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/identity"
	"quicktasks/internal/notify"
	"quicktasks/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a signed-in user.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// NeedsBackend returns true if the command talks to the task store or
	// the account store.
	NeedsBackend() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// env is nil if neither NeedsAuth() nor NeedsBackend() is true.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int
}

// GoogleSource reads tasks from Google Tasks.
type GoogleSource interface {
	ResolveList(ctx context.Context, name string) (googletasks.TaskList, error)
	OpenTasks(ctx context.Context, listID string) ([]googletasks.Item, error)
}

// Env carries the collaborators of a command run.
type Env struct {
	// Backend is the task store and live subscription channel.
	Backend service.Backend

	// Gateway signs users in and out.
	Gateway *identity.Local

	// Accounts and Tokens back the gateway. serve builds its own
	// stateless gateway from them.
	Accounts identity.Accounts
	Tokens   *identity.Tokens

	// User is the signed-in user. Set by the dispatcher for commands that
	// need auth.
	User identity.User

	// Logger receives diagnostic output. Discards unless --debug.
	Logger *log.Logger

	// Google opens a Google Tasks source for import-google.
	Google func(ctx context.Context) (GoogleSource, error)

	// Migrate applies the database schema. Run by migrate and serve only.
	// May be nil.
	Migrate func(ctx context.Context) error

	// Cleanup releases the backend. May be nil.
	Cleanup func()
}

// Close runs Cleanup if set.
func (e *Env) Close() {
	if e != nil && e.Cleanup != nil {
		e.Cleanup()
	}
}

// newController builds a controller that reports notifications on the
// command's output streams.
func newController(cfg *config.Config, env *Env, out, errOut io.Writer, opts ...controller.Option) *controller.Controller {
	opts = append([]controller.Option{controller.WithLogger(env.Logger)}, opts...)
	return controller.New(env.Gateway, env.Backend, env.Backend, notify.NewWriter(out, errOut, cfg.Quiet), opts...)
}

// exitCodeFor maps an error already reported to the user to an exit code.
func exitCodeFor(err error) int {
	var authErr *identity.Error
	var remote *service.RemoteError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, service.ErrUnauthenticated), errors.As(err, &authErr):
		return exitcode.AuthError
	case errors.Is(err, service.ErrStoreUnavailable), errors.As(err, &remote):
		return exitcode.BackendError
	}
	return exitcode.UserError
}

// mountAndWait mounts ctrl and waits for the first snapshot. On failure it
// reports the error and returns a non-zero exit code.
func mountAndWait(ctx context.Context, ctrl *controller.Controller, errOut io.Writer) int {
	if err := ctrl.Mount(ctx); err != nil {
		fmt.Fprintln(errOut, "error: not logged in (run: quicktasks login)")
		return exitcode.AuthError
	}
	if err := ctrl.WaitReady(ctx); err != nil {
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}
	if ctrl.Err() != nil {
		return exitcode.BackendError
	}
	return exitcode.Success
}

// lookupTask resolves the task reference in args against the mounted
// snapshot. It returns the 1-based position of the task, or a non-zero exit
// code after reporting the error.
func lookupTask(ctrl *controller.Controller, args []string, errOut io.Writer) (int, service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 0, service.Task{}, exitcode.UserError
	}
	tasks := ctrl.Tasks()
	task, err := ref.Resolve(tasks)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 0, service.Task{}, exitcode.UserError
	}
	for i, t := range tasks {
		if t.ID == task.ID {
			return i + 1, task, exitcode.Success
		}
	}
	return 0, task, exitcode.Success
}
