package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedRealIP sets RemoteAddr from X-Forwarded-For or X-Real-IP when the
// connection comes from one of the trusted proxy networks. Entries are CIDRs
// or single addresses. With no entries the headers are never read, so a client
// cannot pick the address the rate limiters key on.
func TrustedRealIP(proxies []string) (func(http.Handler) http.Handler, error) {
	trusted := make([]netip.Prefix, 0, len(proxies))
	for _, raw := range proxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			trusted = append(trusted, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", raw)
		}
		a = a.Unmap()
		trusted = append(trusted, netip.PrefixFrom(a, a.BitLen()))
	}

	isTrusted := func(a netip.Addr) bool {
		a = a.Unmap()
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			peer, ok := remoteAddr(r.RemoteAddr)
			if ok && isTrusted(peer) {
				if client, found := forwardedClient(r, isTrusted); found {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func remoteAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr(), true
	}
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	a, err := netip.ParseAddr(host)
	return a, err == nil
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy. X-Real-IP is used when there is no chain.
func forwardedClient(r *http.Request, isTrusted func(netip.Addr) bool) (netip.Addr, bool) {
	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(h, ",")...)
	}
	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		last = a.Unmap()
		if !isTrusted(last) {
			return last, true
		}
	}
	if last.IsValid() {
		return last, true
	}
	if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}
