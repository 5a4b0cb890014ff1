package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// urlShellMeta are characters that must never reach an OS opener or a proxy
// target unescaped.
const urlShellMeta = ";&|`$()<>\"'\\\n\r "

// ValidateURL checks a URL before it is handed to the OS browser opener.
func ValidateURL(rawURL string) error {
	u, err := parseHTTP(rawURL)
	if err != nil {
		return err
	}
	if u.User != nil {
		return fmt.Errorf("URL must not carry credentials")
	}
	return nil
}

// ProxyTarget parses and checks an upstream for the dev server proxy. Only
// scheme, host and an optional base path are allowed.
func ProxyTarget(rawURL string) (*url.URL, error) {
	u, err := parseHTTP(rawURL)
	if err != nil {
		return nil, err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("proxy target %q must not have a query or fragment", rawURL)
	}
	return u, nil
}

func parseHTTP(rawURL string) (*url.URL, error) {
	if i := strings.IndexAny(rawURL, urlShellMeta); i >= 0 {
		return nil, fmt.Errorf("URL contains forbidden character %q", rawURL[i])
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a hostname")
	}
	return u, nil
}
