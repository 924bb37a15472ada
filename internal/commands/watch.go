package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/controller"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/output"
	"quicktasks/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: the list, redrawn on every
// snapshot until interrupted.
type WatchCmd struct {
	filter string
}

func (c *WatchCmd) Name() string       { return "watch" }
func (c *WatchCmd) Aliases() []string  { return nil }
func (c *WatchCmd) Synopsis() string   { return "List tasks and follow changes" }
func (c *WatchCmd) Usage() string      { return "quicktasks watch [--filter <filter>]" }
func (c *WatchCmd) NeedsAuth() bool    { return true }
func (c *WatchCmd) NeedsBackend() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.filter, "f", "", "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	filter, err := service.ParseFilter(c.filter)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctrl := newController(cfg, env, out, errOut, controller.WithFilter(filter))
	changed := make(chan struct{}, 1)
	ctrl.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer ctrl.Unmount()

	if code := mountAndWait(ctx, ctrl, errOut); code != exitcode.Success {
		return code
	}
	// The first snapshot is drawn below.
	select {
	case <-changed:
	default:
	}

	st := output.NewStyles(out)
	for {
		if ctx.Err() != nil {
			return exitcode.Success
		}
		if ctrl.Err() != nil {
			return exitcode.BackendError
		}
		renderList(out, st, ctrl, false)
		fmt.Fprintln(out)

		select {
		case <-ctx.Done():
			return exitcode.Success
		case <-changed:
		}
	}
}
