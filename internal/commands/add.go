package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/service"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{})
}

// taskFlags are the flags shared by add and create.
type taskFlags struct {
	priority    string
	description string
}

func (f *taskFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.priority, "priority", "", "")
	fs.StringVar(&f.priority, "p", "", "")
	fs.StringVar(&f.description, "description", "", "")
	fs.StringVar(&f.description, "d", "", "")
}

// AddCmd implements the add command.
type AddCmd struct {
	taskFlags
}

// SetPriority sets the priority flag (for testing).
func (c *AddCmd) SetPriority(p string) {
	c.priority = p
}

// SetDescription sets the description flag (for testing).
func (c *AddCmd) SetDescription(d string) {
	c.description = d
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "quicktasks add [--priority <p>] [--description <d>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool    { return true }
func (c *AddCmd) NeedsBackend() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) { c.register(fs) }

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, env, c.taskFlags, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	taskFlags
}

func (c *CreateCmd) Name() string      { return "create" }
func (c *CreateCmd) Aliases() []string { return nil }
func (c *CreateCmd) Synopsis() string  { return "Create a task (alias for add)" }
func (c *CreateCmd) Usage() string {
	return "quicktasks create [--priority <p>] [--description <d>] <title...>"
}
func (c *CreateCmd) NeedsAuth() bool    { return true }
func (c *CreateCmd) NeedsBackend() bool { return true }

func (c *CreateCmd) RegisterFlags(fs *flag.FlagSet) { c.register(fs) }

func (c *CreateCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, env, c.taskFlags, args, out, errOut)
}

// runAdd is the shared implementation for add and create commands.
func runAdd(ctx context.Context, cfg *config.Config, env *Env, flags taskFlags, args []string, out, errOut io.Writer) int {
	fields := service.Fields{
		Title:       strings.Join(args, " "),
		Description: strings.TrimSpace(flags.description),
	}
	if flags.priority != "" {
		p, err := service.ParsePriority(flags.priority)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		fields.Priority = p
	}

	ctrl := newController(cfg, env, out, errOut)
	id, err := ctrl.Create(ctx, fields)
	if err != nil {
		return exitCodeFor(err)
	}
	env.Logger.Printf("created task %s", id)
	return exitcode.Success
}
