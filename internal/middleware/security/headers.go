package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers the API sets. Empty values are
// not sent.
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
	CacheControl        string
}

// DefaultHeadersConfig suits a JSON-only API that is never framed or cached.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, kv := range [][2]string{
		{"X-Content-Type-Options", cfg.XContentTypeOptions},
		{"X-Frame-Options", cfg.XFrameOptions},
		{"Content-Security-Policy", cfg.CSP},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginResource},
		{"Cache-Control", cfg.CacheControl},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

// Middleware sets the headers before calling next. HSTS is sent over TLS only.
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for _, kv := range h.static {
			hdr.Set(kv[0], kv[1])
		}
		if r.TLS != nil && h.hsts != "" {
			hdr.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
