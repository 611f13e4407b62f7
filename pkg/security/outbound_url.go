package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateEndpointURL checks that a completions endpoint URL is safe to
// dial. HTTPS against a public host is always accepted. Plain HTTP and
// loopback/private/link-local targets are only accepted when allowLocal is
// set (used for tests and self-hosted gateways).
func ValidateEndpointURL(rawURL string, allowLocal bool) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid endpoint URL")
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !allowLocal {
			return errors.New("http scheme is only allowed for local endpoints")
		}
	default:
		return errors.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.New("endpoint URL host is required")
	}

	if allowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Errorf("local hostname %q is not allowed", host)
	}

	// IP literals are checked without DNS lookups.
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	addr = addr.Unmap()

	if addr.Zone() != "" || addr.IsUnspecified() || addr.IsMulticast() {
		return errors.Errorf("disallowed IP address %q", host)
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return errors.Errorf("local network IP %q is not allowed", host)
	}

	return nil
}
