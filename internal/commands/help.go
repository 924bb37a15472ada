package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "quicktasks help [<command>]" }
func (c *HelpCmd) NeedsAuth() bool    { return false }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n", cmd.Synopsis(), cmd.Usage())
		return exitcode.Success
	}

	fmt.Fprint(out, helpText)
	fmt.Fprintln(out, "\nCommands:")
	DefaultRegistry.WriteSynopses(out)
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const helpText = `Usage:
  quicktasks                                   List tasks
  quicktasks list [--filter <filter>]          List tasks (filters: all, todo, in-progress,
                                               completed, high, medium, low)
  quicktasks watch [--filter <filter>]         List tasks and redraw on every change
  quicktasks add [--priority <p>] [--description <d>] <title...>
  quicktasks edit [--title <t>] [--description <d>] [--priority <p>] <ref>
  quicktasks status <ref> [todo|in-progress|completed]
  quicktasks done <ref>
  quicktasks rm <ref>
  quicktasks login [--google] [--email <e> --password <p>]
  quicktasks register --email <e> --password <p>
  quicktasks logout
  quicktasks whoami
  quicktasks import-google [--list <list-name>]
  quicktasks migrate
  quicktasks serve [--addr <host:port>]

A <ref> is a task number as shown by list, or a task id prefix of at
least 4 characters.
`

const commonFlagsText = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
