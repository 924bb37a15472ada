package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"quicktasks/internal/identity"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// failureRetention bounds how long failed sign-ins are kept. It is longer
// than the gateway's limiter window.
const failureRetention = time.Hour

const selectAccount = `SELECT id, email, password_hash, coalesce(google_subject, ''), disabled FROM users`

// Accounts implements identity.Accounts on the users table.
type Accounts struct {
	store *Store
}

// Accounts returns the account store sharing s's connection pool.
func (s *Store) Accounts() *Accounts {
	return &Accounts{store: s}
}

// CreateAccount implements identity.Accounts.
func (a *Accounts) CreateAccount(ctx context.Context, email, passwordHash string) (identity.Account, error) {
	db, err := a.store.handle()
	if err != nil {
		return identity.Account{}, err
	}
	acct := identity.Account{UID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		acct.UID, acct.Email, acct.PasswordHash)
	if isUniqueViolation(err) {
		return identity.Account{}, identity.ErrEmailTaken
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

// AccountByEmail implements identity.Accounts.
func (a *Accounts) AccountByEmail(ctx context.Context, email string) (identity.Account, error) {
	db, err := a.store.handle()
	if err != nil {
		return identity.Account{}, err
	}
	return scanAccount(db.QueryRowContext(ctx, selectAccount+` WHERE email = $1`, email))
}

// UpsertGoogleAccount implements identity.Accounts. An existing account
// with the same email is linked to the Google subject.
func (a *Accounts) UpsertGoogleAccount(ctx context.Context, subject, email string) (identity.Account, error) {
	db, err := a.store.handle()
	if err != nil {
		return identity.Account{}, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return identity.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	acct, err := scanAccount(tx.QueryRowContext(ctx, selectAccount+` WHERE google_subject = $1`, subject))
	if err == nil {
		return acct, tx.Commit()
	}
	if !errors.Is(err, identity.ErrAccountNotFound) {
		return identity.Account{}, err
	}

	acct, err = scanAccount(tx.QueryRowContext(ctx,
		`UPDATE users SET google_subject = $1 WHERE email = $2
		 RETURNING id, email, password_hash, coalesce(google_subject, ''), disabled`,
		subject, email))
	if errors.Is(err, identity.ErrAccountNotFound) {
		acct = identity.Account{UID: uuid.NewString(), Email: email, GoogleSubject: subject}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, email, google_subject) VALUES ($1, $2, $3)`,
			acct.UID, acct.Email, acct.GoogleSubject)
		if err != nil {
			return identity.Account{}, fmt.Errorf("create google account: %w", err)
		}
	} else if err != nil {
		return identity.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return identity.Account{}, fmt.Errorf("commit: %w", err)
	}
	return acct, nil
}

// FailedAttempts implements identity.Attempts.
func (a *Accounts) FailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	db, err := a.store.handle()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx,
		`SELECT count(*) FROM login_failures WHERE email = $1 AND failed_at > $2`,
		email, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return n, nil
}

// RecordFailure implements identity.Attempts. Failures older than the
// retention period are dropped for the same email.
func (a *Accounts) RecordFailure(ctx context.Context, email string, at time.Time) error {
	db, err := a.store.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO login_failures (email, failed_at) VALUES ($1, $2)`, email, at); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM login_failures WHERE email = $1 AND failed_at < $2`,
		email, at.Add(-failureRetention)); err != nil {
		return fmt.Errorf("prune login failures: %w", err)
	}
	return nil
}

// ClearFailures implements identity.Attempts.
func (a *Accounts) ClearFailures(ctx context.Context, email string) error {
	db, err := a.store.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM login_failures WHERE email = $1`, email); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}

func scanAccount(row scanner) (identity.Account, error) {
	var acct identity.Account
	err := row.Scan(&acct.UID, &acct.Email, &acct.PasswordHash, &acct.GoogleSubject, &acct.Disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("read account: %w", err)
	}
	return acct, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
