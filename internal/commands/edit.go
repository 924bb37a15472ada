package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given, so an
// explicit empty description can be told apart from no flag at all.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
	priority    optString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change the title, description or priority of a task" }
func (c *EditCmd) Usage() string {
	return "quicktasks edit [--title <t>] [--description <d>] [--priority <p>] <ref>"
}
func (c *EditCmd) NeedsAuth() bool    { return true }
func (c *EditCmd) NeedsBackend() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.priority = optString{}, optString{}, optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.priority, "priority", "")
	fs.Var(&c.priority, "p", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	patch := service.Patch{
		Title:       c.title.ptr(),
		Description: c.description.ptr(),
	}
	if c.priority.set {
		p, err := service.ParsePriority(c.priority.value)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		patch.Priority = &p
	}
	if patch.IsEmpty() {
		fmt.Fprintln(errOut, "error: nothing to change (use --title, --description or --priority)")
		return exitcode.UserError
	}

	ctrl := newController(cfg, env, out, errOut)
	defer ctrl.Unmount()

	if code := mountAndWait(ctx, ctrl, errOut); code != exitcode.Success {
		return code
	}
	_, task, code := lookupTask(ctrl, args, errOut)
	if code != exitcode.Success {
		return code
	}

	ctrl.OpenEditor(&task)
	if err := ctrl.Update(ctx, patch); err != nil {
		return exitCodeFor(err)
	}
	return exitcode.Success
}
