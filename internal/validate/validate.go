// Package validate holds input checks shared by the CLI and the SDK
// surface.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
)

// IdentRe matches valid identifiers used for device IDs and labels.
// Must start with alphanumeric, followed by alphanumeric, dots, hyphens,
// or underscores.
var IdentRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxIdentLen is the maximum length for identifiers.
const MaxIdentLen = 128

// Ident validates a string as a valid identifier.
func Ident(s string) bool {
	return len(s) > 0 && len(s) <= MaxIdentLen && IdentRe.MatchString(s)
}

// WSURL ensures the URL uses the ws or wss scheme and has a non-empty host,
// so a stored collector endpoint can never point at a local file or another
// protocol.
func WSURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "":
		return fmt.Errorf("URL missing scheme: %s", rawURL)
	default:
		return fmt.Errorf("URL scheme %q not allowed (only ws/wss)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host: %s", rawURL)
	}
	return nil
}
