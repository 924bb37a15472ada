package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	// OAuth scopes requested at Google sign-in. Tasks read access is
	// requested up front so import-google can reuse the token.
	openIDScope    = "openid"
	emailScope     = "https://www.googleapis.com/auth/userinfo.email"
	tasksReadScope = "https://www.googleapis.com/auth/tasks.readonly"

	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

// GoogleScopes are the scopes requested by GoogleFlow.
var GoogleScopes = []string{openIDScope, emailScope, tasksReadScope}

// GoogleAccount is the Google identity resolved after sign-in.
type GoogleAccount struct {
	Subject string
	Email   string
}

// GoogleProvider runs an interactive Google sign-in.
type GoogleProvider interface {
	SignIn(ctx context.Context) (GoogleAccount, error)
}

// GoogleFlow signs in through the OAuth loopback flow with PKCE.
type GoogleFlow struct {
	// ClientPath is the oauth_client.json downloaded from the Cloud console.
	ClientPath string

	// TokenPath receives the Google token (mode 0600).
	TokenPath string

	// Prompt receives the URL the user must open.
	Prompt io.Writer
}

// SignIn implements GoogleProvider.
func (f *GoogleFlow) SignIn(ctx context.Context) (GoogleAccount, error) {
	clientJSON, err := os.ReadFile(f.ClientPath)
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, GoogleScopes...)
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)

	fmt.Fprintln(f.Prompt, "Open this URL in your browser:")
	fmt.Fprintln(f.Prompt, authURL)

	code, err := waitForCode(ctx, listener, state)
	if err != nil {
		return GoogleAccount{}, err
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if err := saveToken(f.TokenPath, token); err != nil {
		return GoogleAccount{}, fmt.Errorf("failed to save token: %w", err)
	}

	svc, err := googleoauth2.NewService(exchangeCtx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(exchangeCtx).Do()
	if err != nil {
		return GoogleAccount{}, fmt.Errorf("failed to fetch Google account: %w", err)
	}
	if info.Id == "" {
		return GoogleAccount{}, fmt.Errorf("google account has no id")
	}
	return GoogleAccount{Subject: info.Id, Email: info.Email}, nil
}

// waitForCode serves the OAuth callback until a code arrives.
func waitForCode(ctx context.Context, listener net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("oauth state mismatch"):
			default:
			}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(oauthCallbackTimeout):
		return "", fmt.Errorf("oauth callback timed out")
	case <-ctx.Done():
		return "", fmt.Errorf("cancelled")
	}
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
