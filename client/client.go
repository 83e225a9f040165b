// Package client speaks the activity-stream protocol on behalf of one
// logged-in session. It decides how each resource may be reached (directly,
// or through the proxy the actor advertises), builds protocol-correct
// activities, and paginates result collections. Nothing here retries
// automatically; transient failures surface to the caller.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/gorilla/schema"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/trust"
)

// Scope is a capability granted to the session at login. Servers may narrow
// the requested set; operations gated on a scope the server withheld either
// no-op (presence) or fail with a CapabilityError.
type Scope string

const (
	ScopeViewProfile  Scope = "viewProfile"
	ScopeViewFriends  Scope = "viewFriends"
	ScopeViewPublic   Scope = "viewPublic"
	ScopePostLocation Scope = "postLocation"
	ScopeAddFriends   Scope = "addFriends"
	ScopeAddBlocks    Scope = "addBlocks"
)

// DefaultScopes is the capability set requested when the caller does not
// choose their own.
var DefaultScopes = []Scope{
	ScopeViewProfile,
	ScopeViewFriends,
	ScopeViewPublic,
	ScopePostLocation,
	ScopeAddFriends,
	ScopeAddBlocks,
}

// ParseScopes splits the wire form of a scope grant, a space-separated
// list, preserving order.
func ParseScopes(raw string) []Scope {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	scopes := make([]Scope, len(fields))
	for i, f := range fields {
		scopes[i] = Scope(f)
	}
	return scopes
}

// ScopeString joins scopes into their wire form.
func ScopeString(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}

// Credential is the session's proof of identity: a bearer token bound to a
// home server, plus the scopes the server actually granted. ActorID names
// the actor the token was issued to, so a stored credential can resume a
// session without another interactive login.
type Credential struct {
	Token      string  `json:"token"`
	HomeServer string  `json:"homeServer"`
	ActorID    string  `json:"actorId,omitempty"`
	Scopes     []Scope `json:"scopes,omitempty"`
}

// HasScope reports whether the credential carries the given scope.
func (c Credential) HasScope(s Scope) bool {
	for _, have := range c.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

// Client performs all federation traffic for one session. The pagination
// cursors and the current place are single-writer state: callers must
// serialize operations per collection kind, and presence operations, rather
// than issuing them concurrently.
type Client struct {
	cred        Credential
	actor       *activity.Actor
	perimeter   trust.Perimeter
	log         *slog.Logger
	next        http.RoundTripper
	localServer string

	place *activity.Object
	pages PaginationState
}

// Option configures a Client.
type Option func(*Client)

// WithLocalServer adds a second trusted origin for co-located deployments
// where the venue runs its own activity server beside the home server.
func WithLocalServer(origin string) Option {
	return func(c *Client) { c.localServer = origin }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTransport sets the underlying round tripper. The default is
// http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.next = rt }
}

// New builds a client for the given session credential and actor document.
func New(cred Credential, actor *activity.Actor, opts ...Option) (*Client, error) {
	if actor == nil {
		return nil, fmt.Errorf("client: actor document required")
	}
	c := &Client{
		cred:  cred,
		actor: actor,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	perimeter, err := trust.New(cred.HomeServer, c.localServer)
	if err != nil {
		return nil, err
	}
	c.perimeter = perimeter
	return c, nil
}

// Bootstrap builds a client from a stored credential alone, fetching the
// actor document the credential names. This is how a session resumes
// without an interactive login.
func Bootstrap(ctx context.Context, cred Credential, opts ...Option) (*Client, error) {
	if cred.ActorID == "" {
		return nil, fmt.Errorf("client: credential does not name an actor")
	}
	boot, err := New(cred, &activity.Actor{ID: cred.ActorID}, opts...)
	if err != nil {
		return nil, err
	}
	actor, err := boot.FetchActor(ctx, cred.ActorID)
	if err != nil {
		return nil, fmt.Errorf("fetching session actor: %w", err)
	}
	return New(cred, actor, opts...)
}

// Actor returns the session actor document.
func (c *Client) Actor() *activity.Actor { return c.actor }

// RefreshActor re-fetches the session actor document, picking up profile
// changes and new capability advertisements. Pagination cursors are
// unaffected.
func (c *Client) RefreshActor(ctx context.Context) (*activity.Actor, error) {
	actor, err := c.FetchActor(ctx, c.actor.ID)
	if err != nil {
		return nil, err
	}
	c.actor = actor
	return actor, nil
}

// Credential returns the session credential.
func (c *Client) Credential() Credential { return c.cred }

// Trusted reports whether the identifier may be addressed directly.
func (c *Client) Trusted(identifier string) bool {
	return c.perimeter.Trusted(identifier)
}

// RoundTrip implements http.RoundTripper. Every request carries the session
// bearer token, so requests for untrusted origins are refused before they
// leave the process.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	if !c.perimeter.Trusted(req.URL.String()) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, req.URL.Redacted())
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	next := c.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// Fetch retrieves the resource at id into v. Trusted identifiers are read
// directly; anything else goes through the proxy endpoint the session actor
// advertises, or fails with a CapabilityError when there is none.
func (c *Client) Fetch(ctx context.Context, id string, v any) error {
	if c.perimeter.Trusted(id) {
		return requests.URL(id).
			Accept(activity.ContentType).
			Transport(c).
			AddValidator(remoteCheck(id)).
			CheckContentType("application/activity+json", "application/ld+json", "application/json").
			ToJSON(v).
			Fetch(ctx)
	}
	proxy := c.actor.ProxyURL()
	if proxy == "" {
		return &CapabilityError{Capability: "proxy"}
	}
	if !c.perimeter.Trusted(proxy) {
		return fmt.Errorf("%w: proxy %s", ErrInvalidTarget, proxy)
	}
	form, err := formValues(proxyQuery{ID: id})
	if err != nil {
		return err
	}
	return requests.URL(proxy).
		Accept(activity.ContentType).
		BodyForm(form).
		Transport(c).
		AddValidator(remoteCheck(proxy)).
		CheckContentType("application/activity+json", "application/ld+json", "application/json").
		ToJSON(v).
		Fetch(ctx)
}

// FetchObject retrieves a single object or activity.
func (c *Client) FetchObject(ctx context.Context, id string) (*activity.Object, error) {
	var obj activity.Object
	if err := c.Fetch(ctx, id, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// FetchActor retrieves an actor document.
func (c *Client) FetchActor(ctx context.Context, id string) (*activity.Actor, error) {
	var actor activity.Actor
	if err := c.Fetch(ctx, id, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}

// PostActivity delivers act to the session actor's outbox and returns the
// location of the created resource. The outbox must be on a trusted origin,
// and the activity's actor must be, or is stamped to be, the session actor.
func (c *Client) PostActivity(ctx context.Context, act *activity.Object) (string, error) {
	outbox := c.actor.Outbox
	if !c.perimeter.Trusted(outbox) {
		return "", fmt.Errorf("%w: %s", ErrInvalidOutbox, outbox)
	}
	if err := c.stamp(act); err != nil {
		return "", err
	}
	var location string
	err := requests.URL(outbox).
		Header("Content-Type", activity.ContentType).
		BodyJSON(act).
		Transport(c).
		AddValidator(remoteCheck(outbox)).
		Handle(captureLocation(&location)).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	c.log.Debug("posted activity", "type", act.Type, "location", location)
	return location, nil
}

// stamp fills in the activity envelope fields the protocol requires:
// the vocabulary context and the session actor. An activity already naming
// a different actor is refused.
func (c *Client) stamp(act *activity.Object) error {
	if act.AtContext == nil {
		act.AtContext = activity.Context
	}
	switch got := act.ActorIRI(); got {
	case "":
		act.Actor = activity.IRIRef(c.actor.ID)
	case c.actor.ID:
	default:
		return fmt.Errorf("%w: %s", ErrActorMismatch, got)
	}
	return nil
}

// remoteCheck turns any non-success response into a *RemoteError carrying
// the status and a truncated body. Registered in place of the default
// validator so the body is captured before it is discarded.
func remoteCheck(url string) requests.ResponseHandler {
	return func(resp *http.Response) error {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &RemoteError{
			Status: resp.StatusCode,
			URL:    url,
			Body:   strings.TrimSpace(string(body)),
		}
	}
}

// captureLocation records the Location header of the created resource and
// drains the body so the connection can be reused.
func captureLocation(location *string) requests.ResponseHandler {
	return func(resp *http.Response) error {
		*location = resp.Header.Get("Location")
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
}

var formEncoder = schema.NewEncoder()

// proxyQuery is the form body of a proxied read.
type proxyQuery struct {
	ID string `schema:"id"`
}

func formValues(v any) (url.Values, error) {
	values := make(url.Values)
	if err := formEncoder.Encode(v, values); err != nil {
		return nil, err
	}
	return values, nil
}
