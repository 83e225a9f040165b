// Package trust decides whether a resource identifier may be fetched
// directly. Federation means most identifiers point at third-party servers;
// credentials are only ever presented to the session's home server or an
// optional co-located local server, and everything else must go through the
// authenticated proxy the actor advertises.
package trust

import (
	"fmt"
	"net/url"
)

// Perimeter is the set of origins the session may address directly.
type Perimeter struct {
	home  string
	local string
}

// New builds a perimeter from the home server origin and an optional local
// server origin. Either argument may carry a path; only the origin is kept.
func New(home string, local string) (Perimeter, error) {
	h, err := origin(home)
	if err != nil {
		return Perimeter{}, fmt.Errorf("home server: %w", err)
	}
	var l string
	if local != "" {
		l, err = origin(local)
		if err != nil {
			return Perimeter{}, fmt.Errorf("local server: %w", err)
		}
	}
	return Perimeter{home: h, local: l}, nil
}

// Trusted reports whether the identifier's origin matches the home or local
// origin. Malformed identifiers are never trusted. No network I/O.
func (p Perimeter) Trusted(identifier string) bool {
	o, err := origin(identifier)
	if err != nil {
		return false
	}
	return o == p.home || (p.local != "" && o == p.local)
}

// Origins returns the perimeter's origins, home first.
func (p Perimeter) Origins() []string {
	if p.local == "" {
		return []string{p.home}
	}
	return []string{p.home, p.local}
}

// origin normalises a URL to its scheme://host form, stripping default
// ports so that https://x.example and https://x.example:443 compare equal.
func origin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("identifier %q has no origin", raw)
	}
	host := u.Host
	switch {
	case u.Scheme == "https" && u.Port() == "443":
		host = u.Hostname()
	case u.Scheme == "http" && u.Port() == "80":
		host = u.Hostname()
	}
	return u.Scheme + "://" + host, nil
}
