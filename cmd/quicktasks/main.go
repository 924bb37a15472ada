// Package main is the entry point for the quicktasks CLI.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"quicktasks/internal/backend/googletasks"
	"quicktasks/internal/backend/postgres"
	"quicktasks/internal/cli"
	"quicktasks/internal/commands"
	"quicktasks/internal/config"
	"quicktasks/internal/identity"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newEnv)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newEnv connects the store and builds the identity gateway for one run.
func newEnv(ctx context.Context, cfg *config.Config, logger *log.Logger, errOut io.Writer) (*commands.Env, error) {
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return nil, err
	}
	tokens, err := identity.NewTokens([]byte(cfg.Auth.Secret), ttl)
	if err != nil {
		return nil, err
	}

	// Without a database URL every store call fails with "store unavailable".
	store := postgres.New(nil, "", logger)
	if cfg.Database.URL != "" {
		store, err = postgres.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
	}

	opts := identity.Options{
		Accounts:         store.Accounts(),
		Tokens:           tokens,
		Sessions:         identity.FileSessions{Path: cfg.SessionPath()},
		AllowEmailSignup: cfg.EmailSignupAllowed(),
	}
	if cfg.HasOAuthClient() {
		opts.Google = &identity.GoogleFlow{
			ClientPath: cfg.OAuthClientPath(),
			TokenPath:  cfg.GoogleTokenPath(),
			Prompt:     errOut,
		}
	}

	return &commands.Env{
		Backend:  store,
		Gateway:  identity.NewLocal(opts),
		Accounts: opts.Accounts,
		Tokens:   tokens,
		Logger:   logger,
		Google: func(ctx context.Context) (commands.GoogleSource, error) {
			client, err := googletasks.New(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		Migrate: store.Migrate,
		Cleanup: func() {
			if err := store.Close(); err != nil {
				logger.Printf("close store: %v", err)
			}
		},
	}, nil
}
