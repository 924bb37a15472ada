package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"quicktasks/internal/config"
	"quicktasks/internal/controller"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/notify"
	"quicktasks/internal/service"
)

func init() {
	Register(&ImportGoogleCmd{})
}

// ImportGoogleCmd copies the open tasks of a Google Tasks list into the
// signed-in user's tasks.
type ImportGoogleCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *ImportGoogleCmd) SetListName(name string) {
	c.listName = name
}

func (c *ImportGoogleCmd) Name() string       { return "import-google" }
func (c *ImportGoogleCmd) Aliases() []string  { return nil }
func (c *ImportGoogleCmd) Synopsis() string   { return "Import open tasks from Google Tasks" }
func (c *ImportGoogleCmd) Usage() string      { return "quicktasks import-google [--list <list-name>]" }
func (c *ImportGoogleCmd) NeedsAuth() bool    { return true }
func (c *ImportGoogleCmd) NeedsBackend() bool { return true }

func (c *ImportGoogleCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *ImportGoogleCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if env.Google == nil {
		fmt.Fprintln(errOut, "error: Google import is not available")
		return exitcode.AuthError
	}
	src, err := env.Google(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	list, err := src.ResolveList(ctx, c.listName)
	if err != nil {
		return reportGoogleError(err, errOut)
	}
	items, err := src.OpenTasks(ctx, list.ID)
	if err != nil {
		return reportGoogleError(err, errOut)
	}

	// Per-task notifications are collected, not printed.
	rec := &notify.Recorder{}
	ctrl := controller.New(env.Gateway, env.Backend, env.Backend, rec, controller.WithLogger(env.Logger))

	imported := 0
	for _, item := range items {
		_, err := ctrl.Create(ctx, service.Fields{Title: item.Title, Description: item.Notes})
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to import %q: %v\n", item.Title, err)
			if imported > 0 && !cfg.Quiet {
				fmt.Fprintf(out, "Imported %d of %d tasks\n", imported, len(items))
			}
			return exitCodeFor(err)
		}
		imported++
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "Imported %d tasks from %s\n", imported, list.Title)
	}
	return exitcode.Success
}

func reportGoogleError(err error, errOut io.Writer) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "list not found"), strings.HasPrefix(msg, "ambiguous list name"):
		return exitcode.UserError
	case strings.Contains(msg, "run: quicktasks login --google"):
		return exitcode.AuthError
	}
	return exitcode.BackendError
}
