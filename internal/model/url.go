package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for targets that can't be fetched.
var ErrInvalidURL = errors.New("Invalid URL provided")

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Host == "" || u.Hostname() == "" {
		return ErrInvalidURL
	}
	return nil
}

// CanonicalURL reduces raw to the form used for de-duplication: lower-cased
// scheme and host, no fragment, no trailing slash. Unparseable input is only
// trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
