package util

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies is the set of peers whose forwarding headers are believed.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses CIDR or bare IP entries. Empty input trusts nobody
// and yields a nil set.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var prefixes []netip.Prefix
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(prefixes) == 0 {
		return nil, nil
	}
	return &TrustedProxies{prefixes: prefixes}, nil
}

// Contains reports whether addr falls inside a trusted range.
func (t *TrustedProxies) Contains(addr netip.Addr) bool {
	if t == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address used as the rate limit key.
// X-Forwarded-For and X-Real-IP are honored only when the direct peer is trusted;
// the forwarded chain is walked right to left to the first untrusted hop.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	remote, ok := parseAddr(hostOnly(r.RemoteAddr))
	if !ok {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(remote) {
		return remote.String()
	}

	var chain []netip.Addr
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(part); ok {
			chain = append(chain, addr)
		}
	}
	if len(chain) > 0 {
		for i := len(chain) - 1; i >= 0; i-- {
			if !trusted.Contains(chain[i]) {
				return chain[i].String()
			}
		}
		return chain[0].String()
	}
	if xrip, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return xrip.String()
	}
	return remote.String()
}

func hostOnly(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func parseAddr(raw string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
