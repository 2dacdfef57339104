package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// clientIPFromRequest resolves the client address for a request. The
// transport peer wins unless it is a trusted proxy, in which case the
// Forwarded (then X-Forwarded-For) chain is walked right to left and the
// first untrusted hop is taken as the client.
func clientIPFromRequest(r *http.Request, trusted *proxyMatcher) net.IP {
	remoteIP := remoteIPFromRequest(r)
	if remoteIP == nil {
		return nil
	}
	if trusted == nil || !trusted.IsTrusted(remoteIP) {
		return remoteIP
	}

	candidates := parseForwardedFor(r.Header.Get("Forwarded"))
	if len(candidates) == 0 {
		candidates = parseXForwardedFor(r.Header.Get("X-Forwarded-For"))
	}
	if len(candidates) == 0 {
		return remoteIP
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		if !trusted.IsTrusted(candidates[i]) {
			return candidates[i]
		}
	}
	// Every hop is a trusted proxy; the leftmost entry is the best guess.
	return candidates[0]
}

// parseForwardedFor extracts the for= addresses from an RFC 7239 Forwarded
// header, in order.
func parseForwardedFor(header string) []net.IP {
	if header == "" {
		return nil
	}

	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for _, param := range strings.Split(part, ";") {
			param = strings.TrimSpace(param)
			kv := strings.SplitN(param, "=", 2)
			if len(kv) != 2 || !strings.EqualFold(strings.TrimSpace(kv[0]), "for") {
				continue
			}
			if ip := parseForwardedIP(kv[1]); ip != nil {
				out = append(out, ip)
			}
		}
	}
	return out
}

// parseXForwardedFor extracts the addresses from an X-Forwarded-For header,
// in order. Unparseable entries are dropped.
func parseXForwardedFor(header string) []net.IP {
	if header == "" {
		return nil
	}

	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		if ip := parseForwardedIP(part); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

// parseForwardedIP normalizes one forwarded-for value: quotes and brackets
// stripped, optional port and IPv6 zone removed.
func parseForwardedIP(value string) net.IP {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "\"")
	if value == "" || strings.EqualFold(value, "unknown") {
		return nil
	}

	host := value
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end != -1 {
			host = host[1:end]
		}
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.Count(host, ":") > 1 {
		host = strings.Trim(host, "[]")
	}

	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

// remoteIPFromRequest parses the transport peer address from RemoteAddr.
func remoteIPFromRequest(r *http.Request) net.IP {
	if r == nil {
		return nil
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return nil
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

// proxyMatcher answers whether an address belongs to the configured set of
// trusted proxies. A nil matcher trusts nothing.
type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

// newProxyMatcher parses a list of IPs and CIDR ranges. Invalid entries are
// skipped with a warning; if nothing parses, the matcher is nil.
func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	if len(entries) == 0 {
		return nil
	}

	ips := make(map[string]struct{})
	var nets []*net.IPNet

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				if logger != nil {
					logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				}
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			if logger != nil {
				logger.Warn("invalid trusted proxy IP", "entry", entry)
			}
			continue
		}
		ips[ip.String()] = struct{}{}
	}

	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &proxyMatcher{ips: ips, nets: nets}
}

// IsTrusted reports whether ip is one of the trusted proxies.
func (m *proxyMatcher) IsTrusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
