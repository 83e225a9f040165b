package activity

import "net/url"

// Actor is the typed view of an actor document: a federated identity with
// inbox/outbox endpoints and capability advertisements. Immutable once
// fetched; profile updates are observed by re-fetching.
// https://www.w3.org/TR/activitypub/#actor-objects
type Actor struct {
	AtContext any    `json:"@context,omitempty"`
	ID        string `json:"id"`
	Type      string `json:"type,omitempty"`

	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferredUsername,omitempty"`
	Summary           string `json:"summary,omitempty"`
	Icon              *Ref   `json:"icon,omitempty"`

	Inbox     string `json:"inbox,omitempty"`
	Outbox    string `json:"outbox,omitempty"`
	Followers string `json:"followers,omitempty"`
	Following string `json:"following,omitempty"`

	Endpoints *Endpoints `json:"endpoints,omitempty"`
	Streams   *Streams   `json:"streams,omitempty"`
}

// Endpoints are per-actor capability advertisements. A missing endpoint
// means the actor's server does not support the capability.
type Endpoints struct {
	ProxyURL                   string `json:"proxyUrl,omitempty"`
	UploadMedia                string `json:"uploadMedia,omitempty"`
	Friends                    string `json:"friends,omitempty"`
	OAuthAuthorizationEndpoint string `json:"oauthAuthorizationEndpoint,omitempty"`
	OAuthTokenEndpoint         string `json:"oauthTokenEndpoint,omitempty"`
	SharedInbox                string `json:"sharedInbox,omitempty"`
}

// Streams are per-actor auxiliary collections.
type Streams struct {
	Blocked string `json:"blocked,omitempty"`
	Avatars string `json:"avatars,omitempty"`
}

// ProxyURL returns the authenticated proxy endpoint, or "".
func (a *Actor) ProxyURL() string {
	if a == nil || a.Endpoints == nil {
		return ""
	}
	return a.Endpoints.ProxyURL
}

// UploadMediaURL returns the media upload endpoint, or "".
func (a *Actor) UploadMediaURL() string {
	if a == nil || a.Endpoints == nil {
		return ""
	}
	return a.Endpoints.UploadMedia
}

// FriendsURL returns the friends collection endpoint, or "".
func (a *Actor) FriendsURL() string {
	if a == nil || a.Endpoints == nil {
		return ""
	}
	return a.Endpoints.Friends
}

// BlockedURL returns the blocklist collection, or "".
func (a *Actor) BlockedURL() string {
	if a == nil || a.Streams == nil {
		return ""
	}
	return a.Streams.Blocked
}

// Handle returns the actor's user@host form, or the preferred username
// alone when the id does not parse as a URL.
func (a *Actor) Handle() string {
	if a == nil {
		return ""
	}
	host := hostOf(a.ID)
	if host == "" {
		return a.PreferredUsername
	}
	return a.PreferredUsername + "@" + host
}

func hostOf(iri string) string {
	u, err := url.Parse(iri)
	if err != nil {
		return ""
	}
	return u.Host
}
