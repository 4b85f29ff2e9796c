// Command sheets-auth obtains a Google OAuth token for the sheets ledger
// backend and saves it to GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"finreport/internal/cli"
	"finreport/internal/config"
	"finreport/internal/ledger/google"
	"finreport/internal/log"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.BootstrapLogger().WithComponent(log.ComponentCLI)
	cfg := config.Load()

	tokenFile := cfg.GoogleOAuthTokenFile
	if tokenFile == "" {
		tokenFile = "token.json"
	}

	oauthCfg, err := google.OAuthConfig(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		logger.Error("OAuth client unavailable", log.FieldError, err)
		os.Exit(1)
	}
	oauthCfg.RedirectURL = "http://localhost:" + cfg.OAuthRedirectPort + "/callback"

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, authTimeout)
	defer cancelTimeout()

	ln, err := net.Listen("tcp", ":"+cfg.OAuthRedirectPort)
	if err != nil {
		logger.Error("Failed to listen for OAuth callback", log.FieldError, err)
		os.Exit(1)
	}
	tok, err := authorize(ctx, oauthCfg, ln, uuid.NewString(), logger)
	if err != nil {
		logger.Error("Authorization failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := google.SaveToken(tokenFile, tok); err != nil {
		logger.Error("Failed to save token", log.FieldError, err, log.FieldFile, tokenFile)
		os.Exit(1)
	}
	logger.Info("Saved OAuth token", log.FieldFile, tokenFile)
}

// authorize runs the browser flow: it prints the consent URL, waits for the
// redirect on ln and exchanges the code.
func authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, state string, logger *log.Logger) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			sendErr(errCh, fmt.Errorf("consent denied: %s", q.Get("error")))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codeCh <- q.Get("code"):
			default:
			}
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	logger.Info("Waiting for OAuth callback", "redirect_url", cfg.RedirectURL)

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
