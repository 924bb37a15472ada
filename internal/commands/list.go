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
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `quicktasks` (no args) and `quicktasks list`.
type ListCmd struct {
	filter string
}

// SetFilter sets the filter (for testing).
func (c *ListCmd) SetFilter(filter string) {
	c.filter = filter
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "quicktasks list [--filter <filter>]" }
func (c *ListCmd) NeedsAuth() bool    { return true }
func (c *ListCmd) NeedsBackend() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.filter, "f", "", "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	filter, err := service.ParseFilter(c.filter)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctrl := newController(cfg, env, out, errOut, controller.WithFilter(filter))
	defer ctrl.Unmount()

	if code := mountAndWait(ctx, ctrl, errOut); code != exitcode.Success {
		return code
	}

	renderList(out, output.NewStyles(out), ctrl, cfg.Quiet)
	return exitcode.Success
}

// renderList prints the tasks matching the active filter. Rows are numbered
// by their position in the unfiltered list so the numbers stay valid task
// references whatever the filter.
func renderList(w io.Writer, st *output.Styles, ctrl *controller.Controller, quiet bool) {
	filter := ctrl.Filter()
	if filter != service.FilterAll {
		st.FormatFilterBar(w, filter)
	}

	shown := 0
	for i, t := range ctrl.Tasks() {
		if !filter.Match(t) {
			continue
		}
		st.FormatTask(w, i+1, t, t.Status)
		shown++
	}

	if shown == 0 && !quiet {
		st.FormatEmpty(w, filter)
	}
}
