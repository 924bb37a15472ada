// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	"quicktasks/internal/commands"
	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/identity"
)

// LogPrefix prefixes every debug log line.
const LogPrefix = "quicktasks: "

// EnvFactory creates the collaborators of commands that need the backend.
// errOut receives interactive prompts such as the Google sign-in URL.
type EnvFactory func(ctx context.Context, cfg *config.Config, logger *log.Logger, errOut io.Writer) (*commands.Env, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  EnvFactory
}

// NewDispatcher creates a new dispatcher with the given registry and env factory.
func NewDispatcher(registry *commands.Registry, factory EnvFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagErrorMessage(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	if !cmd.NeedsAuth() && !cmd.NeedsBackend() {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	if d.factory == nil {
		fmt.Fprintln(errOut, "error: backend not configured")
		return exitcode.BackendError
	}
	logger := NewLogger(debug, errOut)
	env, err := d.factory(ctx, cfg, logger, errOut)
	if err != nil {
		var authErr *identity.Error
		if errors.As(err, &authErr) {
			fmt.Fprintf(errOut, "error: %s\n", authErr.Message)
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
	defer env.Close()
	if env.Logger == nil {
		env.Logger = logger
	}

	// Commands that need a user redirect to login when nobody is signed in.
	if cmd.NeedsAuth() {
		u, err := env.Gateway.CurrentUser(ctx)
		if err != nil {
			logger.Printf("no session: %v", err)
			fmt.Fprintln(errOut, "error: not logged in (run: quicktasks login)")
			return exitcode.AuthError
		}
		env.User = u
	}

	return cmd.Run(ctx, cfg, env, positionalArgs, out, errOut)
}

// flagErrorMessage turns a flag package error into the CLI's wording.
func flagErrorMessage(err error) string {
	errStr := err.Error()

	// Check for missing flag value
	if strings.HasPrefix(errStr, "flag needs an argument:") {
		flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
		return "flag needs an argument: " + flagName
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimPrefix(errStr, "flag provided but not defined: ")
	}

	return errStr
}

// NewLogger returns the diagnostic logger: stderr with LogPrefix when
// debug is set, discarding otherwise.
func NewLogger(debug bool, errOut io.Writer) *log.Logger {
	if !debug {
		return log.New(io.Discard, LogPrefix, 0)
	}
	return log.New(errOut, LogPrefix, log.LstdFlags|log.Lmsgprefix)
}
