// Package identity implements the identity gateway: email/password and
// Google accounts, and sessions carried as signed tokens.
package identity

import (
	"context"
	"errors"
)

// Providers that can authenticate a user.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is an authenticated identity.
type User struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Session is the result of a successful sign-in.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Gateway is the identity provider contract used by the rest of the app.
type Gateway interface {
	// CurrentUser returns the signed-in user or service.ErrUnauthenticated.
	CurrentUser(ctx context.Context) (User, error)

	SignInWithEmail(ctx context.Context, email, password string) (Session, error)
	SignUpWithEmail(ctx context.Context, email, password string) (Session, error)
	SignInWithGoogle(ctx context.Context) (Session, error)
	SignOut(ctx context.Context) error
}

// Account is a stored user record.
type Account struct {
	UID           string
	Email         string
	PasswordHash  string
	GoogleSubject string
	Disabled      bool
}

// Accounts persists user records.
type Accounts interface {
	// CreateAccount stores a new email/password account.
	// Returns ErrEmailTaken if the email is already registered.
	CreateAccount(ctx context.Context, email, passwordHash string) (Account, error)

	// AccountByEmail returns ErrAccountNotFound if there is no such account.
	AccountByEmail(ctx context.Context, email string) (Account, error)

	// UpsertGoogleAccount returns the account linked to subject, linking or
	// creating one by email if needed.
	UpsertGoogleAccount(ctx context.Context, subject, email string) (Account, error)
}

var (
	// ErrAccountNotFound is returned by Accounts when no account matches.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken is returned by Accounts when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
)
