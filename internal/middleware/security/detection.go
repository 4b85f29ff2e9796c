package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"
)

const maxURLLength = 2048

var (
	probeMarkers = []string{
		"../", "..\\", ".env", ".git", "wp-admin", "phpmyadmin",
		"etc/passwd", "<script", "union select", "cmd.exe",
	}
	probeMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	privateNetworks = []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"}
)

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like probes.
type Detector struct {
	flagged atomic.Int64
	proxies []netip.Prefix
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range privateNetworks {
		_ = d.AddTrustedProxy(cidr)
	}
	return d
}

// AddTrustedProxy trusts forwarded headers sent from cidr. Not safe to call
// once the detector serves requests.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("trusted proxy %q: %w", cidr, err)
	}
	d.proxies = append(d.proxies, p.Masked())
	return nil
}

// DetectSuspiciousRequest flags and counts scanner-looking requests.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if !looksLikeProbe(r) {
		return false
	}
	d.flagged.Add(1)
	return true
}

func looksLikeProbe(r *http.Request) bool {
	if slices.Contains(probeMethods, r.Method) || len(r.URL.String()) > maxURLLength {
		return true
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	return slices.ContainsFunc(probeMarkers, func(m string) bool {
		return strings.Contains(target, m)
	})
}

func (d *Detector) SuspiciousRequests() int64 {
	return d.flagged.Load()
}

// ExtractClientIP returns the caller's address. X-Forwarded-For and then
// X-Real-IP are consulted only when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !d.trusted(peer) {
		return peer
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}

func (d *Detector) trusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return slices.ContainsFunc(d.proxies, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}
