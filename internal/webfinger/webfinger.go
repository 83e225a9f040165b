// package webfinger resolves acct: handles to actor documents.
package webfinger

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

// ActivityPub returns the href of the actor document advertised by the
// webfinger response.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Type == "application/activity+json" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("no ActivityPub link found")
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type"`
	Href     string `json:"href"`
	Template string `json:"template"`
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL for the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// Fetch retrieves the webfinger document for this Acct from its host.
func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).
		Accept("application/jrd+json").
		ToJSON(&webfinger).
		Fetch(ctx)
	return &webfinger, err
}

// Resolve fetches the webfinger document and returns the actor IRI it
// advertises.
func (a *Acct) Resolve(ctx context.Context) (string, error) {
	wf, err := a.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("webfinger %s: %w", a.String(), err)
	}
	return wf.ActivityPub()
}

// Parse splits a handle such as "@alice@hub.example.com", "alice@hub.example.com"
// or "acct:alice@hub.example.com" into its user and host parts. A handle
// without a host returns an Acct with an empty Host; callers may fill in a
// default.
func Parse(query string) (*Acct, error) {
	query = strings.TrimPrefix(query, "acct:")
	query = strings.TrimPrefix(query, "@")

	// In case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(query, "@", 2)
	switch len(parts) {
	case 1:
		return &Acct{
			User: parts[0],
		}, nil
	case 2:
		return &Acct{
			User: parts[0],
			Host: parts[1],
		}, nil
	default:
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
}
