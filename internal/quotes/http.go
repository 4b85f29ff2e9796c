// Package quotes fetches currency rates and stock close prices for a date.
package quotes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Yahoo rejects requests without a browser-like User-Agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	ErrStatus    = errors.New("unexpected status")
	ErrNoQuote   = errors.New("quote not present in response")
	ErrMalformed = errors.New("malformed response")
)

// NewHTTPClient returns a client with a cookie jar, which the stock API needs
// to keep its session cookies between calls.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, body)
}
