package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"quicktasks/internal/card"
	"quicktasks/internal/config"
	"quicktasks/internal/controller"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/output"
	"quicktasks/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command. Without a status it advances
// the task one step through todo, in-progress and completed.
type StatusCmd struct{}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return nil }
func (c *StatusCmd) Synopsis() string   { return "Cycle or set the status of a task" }
func (c *StatusCmd) Usage() string      { return "quicktasks status <ref> [" + statusChoices() + "]" }
func (c *StatusCmd) NeedsAuth() bool    { return true }
func (c *StatusCmd) NeedsBackend() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	var target service.Status
	if len(args) > 1 {
		s, err := service.ParseStatus(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		target = s
	}
	return runStatus(ctx, cfg, env, args, target, out, errOut)
}

// statusChoices lists the statuses in cycle order, e.g. "todo|in-progress|completed".
func statusChoices() string {
	names := make([]string, len(service.Statuses))
	for i, s := range service.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

// runStatus changes the status of the referenced task through its card.
// An empty target cycles. The card is drawn with the new status unless
// quiet.
func runStatus(ctx context.Context, cfg *config.Config, env *Env, args []string, target service.Status, out, errOut io.Writer) int {
	ctrl := newController(cfg, env, out, errOut)
	defer ctrl.Unmount()

	if code := mountAndWait(ctx, ctrl, errOut); code != exitcode.Success {
		return code
	}
	num, task, code := lookupTask(ctrl, args, errOut)
	if code != exitcode.Success {
		return code
	}

	c := card.New(task, ctrl)
	var err error
	if target == "" {
		err = c.Cycle(ctx)
	} else {
		err = c.Select(ctx, target)
	}
	if err != nil {
		return exitCodeFor(err)
	}

	reconcile(c, ctrl)
	if !cfg.Quiet {
		c.Render(out, output.NewStyles(out), num)
	}
	return exitcode.Success
}

// reconcile hands the card the snapshot of its task if that snapshot is
// newer than the task the card was drawn from. A snapshot from before the
// change leaves the override in place.
func reconcile(c *card.Card, ctrl *controller.Controller) {
	current := c.Task()
	for _, t := range ctrl.Tasks() {
		if t.ID == current.ID {
			if t.UpdatedAt.After(current.UpdatedAt) {
				c.Reconcile(t)
			}
			return
		}
	}
}
