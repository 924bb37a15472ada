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
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Sign out" }
func (c *LogoutCmd) Usage() string      { return "quicktasks logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool    { return false }
func (c *LogoutCmd) NeedsBackend() bool { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	if err := env.Gateway.SignOut(ctx); err != nil {
		return reportAuthError(err, errOut)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "Logged out successfully")
	}
	return exitcode.Success
}

// WhoamiCmd prints the signed-in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Print the signed-in user" }
func (c *WhoamiCmd) Usage() string      { return "quicktasks whoami" }
func (c *WhoamiCmd) NeedsAuth() bool    { return true }
func (c *WhoamiCmd) NeedsBackend() bool { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "%s (%s)\n", env.User.Email, env.User.Provider)
	return exitcode.Success
}
