package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthOptions selects user OAuth instead of a service account. It is used
// when TokenFile is set.
type OAuthOptions struct {
	// ClientJSON takes precedence over ClientFile.
	ClientJSON string
	ClientFile string
	TokenFile  string
}

func (o OAuthOptions) enabled() bool {
	return strings.TrimSpace(o.TokenFile) != ""
}

// OAuthConfig builds the installed-app OAuth config for read-only access to
// spreadsheets.
func OAuthConfig(clientJSON, clientFile string) (*oauth2.Config, error) {
	var data []byte
	switch {
	case strings.TrimSpace(clientJSON) != "":
		data = []byte(clientJSON)
	case strings.TrimSpace(clientFile) != "":
		b, err := os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := googleoauth.ConfigFromJSON(data, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

// ReadToken loads a token saved by SaveToken.
func ReadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open oauth token: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("oauth token %s holds no credentials", path)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}
