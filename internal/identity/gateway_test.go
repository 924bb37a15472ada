package identity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quicktasks/internal/identity"
	"quicktasks/internal/service"
	"quicktasks/internal/testutil"
)

func newGateway(t *testing.T, accounts *testutil.FakeAccounts, google identity.GoogleProvider) *identity.Local {
	t.Helper()
	tokens, err := identity.NewTokens([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("failed to create tokens: %v", err)
	}
	return identity.NewLocal(identity.Options{
		Accounts:         accounts,
		Tokens:           tokens,
		Sessions:         identity.FileSessions{Path: filepath.Join(t.TempDir(), "session.json")},
		Google:           google,
		AllowEmailSignup: true,
	})
}

func authCode(t *testing.T, err error) identity.Code {
	t.Helper()
	var ie *identity.Error
	if !errors.As(err, &ie) {
		t.Fatalf("expected *identity.Error, got %T (%v)", err, err)
	}
	return ie.Code
}

func TestCurrentUser_NoSession(t *testing.T) {
	g := newGateway(t, testutil.NewFakeAccounts(), nil)
	_, err := g.CurrentUser(context.Background())
	if !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSignInWithEmail_Success(t *testing.T) {
	accounts := testutil.NewFakeAccounts()
	accounts.AddPasswordAccount("u1", "ada@example.com", "hunter22")
	g := newGateway(t, accounts, nil)
	ctx := context.Background()

	sess, err := g.SignInWithEmail(ctx, "  Ada@Example.com ", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User.UID != "u1" || sess.Token == "" {
		t.Errorf("unexpected session %+v", sess)
	}

	u, err := g.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("expected current user, got %v", err)
	}
	if u.UID != "u1" || u.Email != "ada@example.com" || u.Provider != identity.ProviderPassword {
		t.Errorf("unexpected user %+v", u)
	}

	if err := g.SignOut(ctx); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if _, err := g.CurrentUser(ctx); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated after sign out, got %v", err)
	}
	if err := g.SignOut(ctx); err != nil {
		t.Errorf("second sign out should succeed, got %v", err)
	}
}

func TestSignInWithEmail_Errors(t *testing.T) {
	accounts := testutil.NewFakeAccounts()
	accounts.AddPasswordAccount("u1", "ada@example.com", "hunter22")
	accounts.AddPasswordAccount("u2", "off@example.com", "hunter22")
	accounts.Disable("off@example.com")
	g := newGateway(t, accounts, nil)
	ctx := context.Background()

	cases := []struct {
		email, password string
		code            identity.Code
		message         string
	}{
		{"not-an-email", "x", identity.CodeInvalidEmail, "Please enter a valid email address."},
		{"nobody@example.com", "x", identity.CodeUserNotFound, "No account found with this email. Please register first."},
		{"ada@example.com", "wrong", identity.CodeWrongPassword, "Incorrect password. Please try again."},
		{"off@example.com", "hunter22", identity.CodeUserDisabled, "This account has been disabled. Please contact support."},
	}
	for _, tc := range cases {
		_, err := g.SignInWithEmail(ctx, tc.email, tc.password)
		if code := authCode(t, err); code != tc.code {
			t.Errorf("%s: expected code %s, got %s", tc.email, tc.code, code)
		}
		if err.Error() != tc.message {
			t.Errorf("%s: expected message %q, got %q", tc.email, tc.message, err.Error())
		}
	}
}

func TestSignInWithEmail_TooManyRequests(t *testing.T) {
	accounts := testutil.NewFakeAccounts()
	accounts.AddPasswordAccount("u1", "ada@example.com", "hunter22")
	g := newGateway(t, accounts, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.SignInWithEmail(ctx, "ada@example.com", "wrong")
		if code := authCode(t, err); code != identity.CodeWrongPassword {
			t.Fatalf("attempt %d: expected wrong-password, got %s", i+1, code)
		}
	}
	_, err := g.SignInWithEmail(ctx, "ada@example.com", "hunter22")
	if code := authCode(t, err); code != identity.CodeTooManyRequests {
		t.Errorf("expected too-many-requests, got %s", code)
	}
}

func TestSignUpWithEmail(t *testing.T) {
	accounts := testutil.NewFakeAccounts()
	g := newGateway(t, accounts, nil)
	ctx := context.Background()

	sess, err := g.SignUpWithEmail(ctx, "new@example.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User.Email != "new@example.com" {
		t.Errorf("unexpected user %+v", sess.User)
	}

	_, err = g.SignUpWithEmail(ctx, "new@example.com", "secret1")
	if code := authCode(t, err); code != identity.CodeEmailAlreadyInUse {
		t.Errorf("expected email-already-in-use, got %s", code)
	}

	_, err = g.SignUpWithEmail(ctx, "other@example.com", "12345")
	if code := authCode(t, err); code != identity.CodeWeakPassword {
		t.Errorf("expected weak-password, got %s", code)
	}

	if _, err := g.SignInWithEmail(ctx, "new@example.com", "secret1"); err != nil {
		t.Errorf("expected sign in with new account, got %v", err)
	}
}

func TestSignUpWithEmail_Disabled(t *testing.T) {
	tokens, _ := identity.NewTokens([]byte("k"), time.Hour)
	g := identity.NewLocal(identity.Options{Accounts: testutil.NewFakeAccounts(), Tokens: tokens})

	_, err := g.SignUpWithEmail(context.Background(), "new@example.com", "secret1")
	if code := authCode(t, err); code != identity.CodeOperationNotAllowed {
		t.Errorf("expected operation-not-allowed, got %s", code)
	}
}

func TestSignInWithGoogle(t *testing.T) {
	accounts := testutil.NewFakeAccounts()
	accounts.AddPasswordAccount("u1", "ada@example.com", "hunter22")
	google := &testutil.FakeGoogle{Account: identity.GoogleAccount{Subject: "g-123", Email: "ada@example.com"}}
	g := newGateway(t, accounts, google)

	sess, err := g.SignInWithGoogle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User.UID != "u1" {
		t.Errorf("expected google account linked to u1, got %q", sess.User.UID)
	}
	if sess.User.Provider != identity.ProviderGoogle {
		t.Errorf("expected google provider, got %q", sess.User.Provider)
	}
}

func TestSignInWithGoogle_NotConfigured(t *testing.T) {
	g := newGateway(t, testutil.NewFakeAccounts(), nil)
	_, err := g.SignInWithGoogle(context.Background())
	if code := authCode(t, err); code != identity.CodeGoogleNotConfigured {
		t.Errorf("expected google-not-configured, got %s", code)
	}
}

func TestSignInWithGoogle_FlowErrorFallsBackToRawMessage(t *testing.T) {
	google := &testutil.FakeGoogle{Err: errors.New("oauth callback timed out")}
	g := newGateway(t, testutil.NewFakeAccounts(), google)
	_, err := g.SignInWithGoogle(context.Background())
	if err == nil || err.Error() != "oauth callback timed out" {
		t.Errorf("expected raw message, got %v", err)
	}
}

func TestMessageFor_Fallbacks(t *testing.T) {
	if got := identity.MessageFor("auth/unknown", "raw provider text"); got != "raw provider text" {
		t.Errorf("expected raw message, got %q", got)
	}
	if got := identity.MessageFor("auth/unknown", ""); got != identity.DefaultMessage {
		t.Errorf("expected default message, got %q", got)
	}
	if got := identity.MessageFor(identity.CodeTooManyRequests, "ignored"); got != "Too many failed attempts. Please try again later." {
		t.Errorf("unexpected mapped message %q", got)
	}
}

func TestTokens_RejectsForeignSecretAndExpiry(t *testing.T) {
	a, _ := identity.NewTokens([]byte("a"), time.Hour)
	b, _ := identity.NewTokens([]byte("b"), time.Hour)
	tok, err := a.Issue(identity.User{UID: "u1", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Error("expected verification failure with another secret")
	}
	if u, err := a.Verify(tok); err != nil || u.UID != "u1" {
		t.Errorf("expected valid token, got %+v (%v)", u, err)
	}

	expired, _ := identity.NewTokens([]byte("a"), -time.Minute)
	tok, _ = expired.Issue(identity.User{UID: "u1"})
	if _, err := a.Verify(tok); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestNewTokens_EmptySecret(t *testing.T) {
	if _, err := identity.NewTokens(nil, time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestFileSessions_Mode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := identity.FileSessions{Path: path}
	if _, err := s.Load(); !errors.Is(err, identity.ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if err := s.Save("tok"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
	if tok, err := s.Load(); err != nil || tok != "tok" {
		t.Errorf("expected tok, got %q (%v)", tok, err)
	}
}
