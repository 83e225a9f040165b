// package nodeinfo discovers what software a federation server runs.
package nodeinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/carlmjohnson/requests"
)

// Node describes a server per the nodeinfo schema.
// https://github.com/jhass/nodeinfo
type Node struct {
	Version           string   `json:"version"`
	Software          Software `json:"software"`
	OpenRegistrations bool     `json:"openRegistrations"`
}

// Software names the server implementation.
type Software struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// index is the well-known discovery document listing the schema
// documents a server offers.
type index struct {
	Links []link `json:"links"`
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Fetch reads the well-known nodeinfo index at origin and returns the
// newest schema document it advertises.
func Fetch(ctx context.Context, origin string) (*Node, error) {
	var idx index
	err := requests.URL(strings.TrimSuffix(origin, "/") + "/.well-known/nodeinfo").
		ToJSON(&idx).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("nodeinfo index %s: %w", origin, err)
	}
	href := pick(idx.Links)
	if href == "" {
		return nil, fmt.Errorf("nodeinfo index %s advertises no schema links", origin)
	}
	var node Node
	if err := requests.URL(href).ToJSON(&node).Fetch(ctx); err != nil {
		return nil, fmt.Errorf("nodeinfo document %s: %w", href, err)
	}
	return &node, nil
}

// pick prefers the newest schema version on offer.
func pick(links []link) string {
	for _, version := range []string{"/2.1", "/2.0", "/1.1", "/1.0"} {
		for _, l := range links {
			if strings.HasSuffix(l.Rel, version) && l.Href != "" {
				return l.Href
			}
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}
