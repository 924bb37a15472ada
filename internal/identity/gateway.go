package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"quicktasks/internal/service"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Options configures a Local gateway.
type Options struct {
	Accounts Accounts
	Tokens   *Tokens
	Sessions SessionStore

	// Google runs the Google sign-in flow. Nil disables Google sign-in.
	Google GoogleProvider

	// AllowEmailSignup enables SignUpWithEmail.
	AllowEmailSignup bool

	// Attempts records failed password attempts. Nil uses Accounts when it
	// implements Attempts, otherwise an in-memory count.
	Attempts Attempts

	// Now is the limiter clock. Nil means time.Now.
	Now func() time.Time
}

// Local is a Gateway backed by an account store and signed session tokens.
type Local struct {
	accounts    Accounts
	tokens      *Tokens
	sessions    SessionStore
	google      GoogleProvider
	allowSignup bool
	limiter     *attemptLimiter
}

// NewLocal creates a Local gateway.
func NewLocal(opts Options) *Local {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = &MemorySessions{}
	}
	attempts := opts.Attempts
	if attempts == nil {
		if a, ok := opts.Accounts.(Attempts); ok {
			attempts = a
		} else {
			attempts = &MemoryAttempts{}
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Local{
		accounts:    opts.Accounts,
		tokens:      opts.Tokens,
		sessions:    sessions,
		google:      opts.Google,
		allowSignup: opts.AllowEmailSignup,
		limiter:     &attemptLimiter{attempts: attempts, now: now},
	}
}

// CurrentUser implements Gateway.
func (g *Local) CurrentUser(ctx context.Context) (User, error) {
	token, err := g.sessions.Load()
	if err != nil {
		return User{}, service.ErrUnauthenticated
	}
	u, err := g.tokens.Verify(token)
	if err != nil {
		return User{}, service.ErrUnauthenticated
	}
	return u, nil
}

// Verify returns the user carried by a bearer token.
func (g *Local) Verify(token string) (User, error) {
	u, err := g.tokens.Verify(token)
	if err != nil {
		return User{}, service.ErrUnauthenticated
	}
	return u, nil
}

// SignInWithEmail implements Gateway.
func (g *Local) SignInWithEmail(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	blocked, err := g.limiter.blocked(ctx, email)
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}
	if blocked {
		return Session{}, newError(CodeTooManyRequests, "")
	}

	acct, err := g.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return Session{}, newError(CodeUserNotFound, "")
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}
	if acct.Disabled {
		return Session{}, newError(CodeUserDisabled, "")
	}
	if acct.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		if err := g.limiter.fail(ctx, email); err != nil {
			return Session{}, newError(CodeInternal, err.Error())
		}
		return Session{}, newError(CodeWrongPassword, "")
	}
	if err := g.limiter.reset(ctx, email); err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}

	return g.start(User{UID: acct.UID, Email: acct.Email, Provider: ProviderPassword})
}

// SignUpWithEmail implements Gateway.
func (g *Local) SignUpWithEmail(ctx context.Context, email, password string) (Session, error) {
	if !g.allowSignup {
		return Session{}, newError(CodeOperationNotAllowed, "")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < MinPasswordLength {
		return Session{}, newError(CodeWeakPassword, "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}

	acct, err := g.accounts.CreateAccount(ctx, email, string(hash))
	if errors.Is(err, ErrEmailTaken) {
		return Session{}, newError(CodeEmailAlreadyInUse, "")
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}

	return g.start(User{UID: acct.UID, Email: acct.Email, Provider: ProviderPassword})
}

// SignInWithGoogle implements Gateway.
func (g *Local) SignInWithGoogle(ctx context.Context) (Session, error) {
	if g.google == nil {
		return Session{}, newError(CodeGoogleNotConfigured, "Google sign-in is not configured (oauth_client.json not found)")
	}
	ga, err := g.google.SignIn(ctx)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return Session{}, ie
		}
		return Session{}, newError(CodeGoogleSignInFailed, err.Error())
	}

	acct, err := g.accounts.UpsertGoogleAccount(ctx, ga.Subject, ga.Email)
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}
	if acct.Disabled {
		return Session{}, newError(CodeUserDisabled, "")
	}

	return g.start(User{UID: acct.UID, Email: acct.Email, Provider: ProviderGoogle})
}

// SignOut implements Gateway. Signing out without a session succeeds.
func (g *Local) SignOut(ctx context.Context) error {
	if err := g.sessions.Clear(); err != nil {
		return newError(CodeInternal, err.Error())
	}
	return nil
}

func (g *Local) start(u User) (Session, error) {
	token, err := g.tokens.Issue(u)
	if err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}
	if err := g.sessions.Save(token); err != nil {
		return Session{}, newError(CodeInternal, err.Error())
	}
	return Session{User: u, Token: token}, nil
}

// normalizeEmail trims and lowercases email and rejects anything that is
// not a bare address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", newError(CodeInvalidEmail, "")
	}
	return email, nil
}
