package commands

import (
	"context"
	"flag"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "quicktasks rm <ref>" }
func (c *RmCmd) NeedsAuth() bool    { return true }
func (c *RmCmd) NeedsBackend() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	ctrl := newController(cfg, env, out, errOut)
	defer ctrl.Unmount()

	if code := mountAndWait(ctx, ctrl, errOut); code != exitcode.Success {
		return code
	}
	_, task, code := lookupTask(ctrl, args, errOut)
	if code != exitcode.Success {
		return code
	}

	// Naming the task on the command line is the confirmation.
	ctrl.RequestDelete(task.ID)
	if err := ctrl.ConfirmDelete(ctx); err != nil {
		return exitCodeFor(err)
	}
	return exitcode.Success
}
