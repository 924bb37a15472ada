package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"quicktasks/internal/config"
	"quicktasks/internal/exitcode"
	"quicktasks/internal/identity"
	"quicktasks/internal/web"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the HTTP surface.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string       { return "serve" }
func (c *ServeCmd) Aliases() []string  { return nil }
func (c *ServeCmd) Synopsis() string   { return "Serve the HTTP API" }
func (c *ServeCmd) Usage() string      { return "quicktasks serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsAuth() bool    { return false }
func (c *ServeCmd) NeedsBackend() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = cfg.Addr()
	}

	if code := migrate(ctx, env, errOut); code != exitcode.Success {
		return code
	}

	// Each request carries its own token; the server keeps no session.
	gateway := identity.NewLocal(identity.Options{
		Accounts:         env.Accounts,
		Tokens:           env.Tokens,
		Sessions:         identity.NopSessions{},
		AllowEmailSignup: cfg.EmailSignupAllowed(),
	})
	srv := web.New(gateway, env.Backend, web.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         env.Logger,
	})

	if !cfg.Quiet {
		fmt.Fprintf(out, "Listening on %s\n", addr)
	}
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
