package testutil

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"quicktasks/internal/identity"
	"quicktasks/internal/service"
)

// FakeAccounts is an in-memory implementation of identity.Accounts.
type FakeAccounts struct {
	mu       sync.Mutex
	accounts []identity.Account
	nextID   int

	// Failed sign-ins, shared by every gateway over this store.
	identity.MemoryAttempts

	// Error injection for testing
	Err error
}

// NewFakeAccounts creates an empty FakeAccounts.
func NewFakeAccounts() *FakeAccounts {
	return &FakeAccounts{}
}

// AddPasswordAccount seeds an email/password account. The password is
// hashed with bcrypt.MinCost to keep tests fast.
func (f *FakeAccounts) AddPasswordAccount(uid, email, password string) identity.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := identity.Account{UID: uid, Email: email, PasswordHash: string(hash)}
	f.accounts = append(f.accounts, acct)
	return acct
}

// Disable marks the account with email as disabled.
func (f *FakeAccounts) Disable(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.accounts {
		if f.accounts[i].Email == email {
			f.accounts[i].Disabled = true
		}
	}
}

// CreateAccount implements identity.Accounts.
func (f *FakeAccounts) CreateAccount(ctx context.Context, email, passwordHash string) (identity.Account, error) {
	if f.Err != nil {
		return identity.Account{}, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return identity.Account{}, identity.ErrEmailTaken
		}
	}
	f.nextID++
	acct := identity.Account{UID: fmt.Sprintf("user-%d", f.nextID), Email: email, PasswordHash: passwordHash}
	f.accounts = append(f.accounts, acct)
	return acct, nil
}

// AccountByEmail implements identity.Accounts.
func (f *FakeAccounts) AccountByEmail(ctx context.Context, email string) (identity.Account, error) {
	if f.Err != nil {
		return identity.Account{}, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return identity.Account{}, identity.ErrAccountNotFound
}

// UpsertGoogleAccount implements identity.Accounts.
func (f *FakeAccounts) UpsertGoogleAccount(ctx context.Context, subject, email string) (identity.Account, error) {
	if f.Err != nil {
		return identity.Account{}, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.GoogleSubject == subject {
			return a, nil
		}
	}
	for i, a := range f.accounts {
		if a.Email == email {
			f.accounts[i].GoogleSubject = subject
			return f.accounts[i], nil
		}
	}
	f.nextID++
	acct := identity.Account{UID: fmt.Sprintf("user-%d", f.nextID), Email: email, GoogleSubject: subject}
	f.accounts = append(f.accounts, acct)
	return acct, nil
}

// FakeGoogle is a GoogleProvider returning a fixed account or error.
type FakeGoogle struct {
	Account identity.GoogleAccount
	Err     error
	Calls   int
}

// SignIn implements identity.GoogleProvider.
func (g *FakeGoogle) SignIn(ctx context.Context) (identity.GoogleAccount, error) {
	g.Calls++
	if g.Err != nil {
		return identity.GoogleAccount{}, g.Err
	}
	return g.Account, nil
}

// StaticUsers resolves a fixed user, or service.ErrUnauthenticated when
// User is nil.
type StaticUsers struct {
	mu   sync.Mutex
	User *identity.User
}

// NewStaticUsers returns a resolver signed in as uid.
func NewStaticUsers(uid string) *StaticUsers {
	return &StaticUsers{User: &identity.User{UID: uid, Email: uid + "@example.com", Provider: identity.ProviderPassword}}
}

// SignOut clears the user.
func (s *StaticUsers) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.User = nil
}

// CurrentUser returns the configured user.
func (s *StaticUsers) CurrentUser(ctx context.Context) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.User == nil {
		return identity.User{}, service.ErrUnauthenticated
	}
	return *s.User, nil
}
