// Package oauth obtains session credentials from a home server using the
// authorization-code grant. The interactive Flow hands the user to their
// server's consent page and catches the redirect on a loopback listener;
// Static wraps a pre-provisioned token for scripts and tests.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/schema"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/internal/webfinger"
)

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithPrompt replaces how the authorization URL reaches the user. The
// default prints it to stderr for the user to open themselves.
func WithPrompt(prompt func(authURL string) error) FlowOption {
	return func(f *Flow) { f.prompt = prompt }
}

// WithListenAddr sets the loopback address for the redirect listener. The
// default picks a free port on 127.0.0.1.
func WithListenAddr(addr string) FlowOption {
	return func(f *Flow) { f.listen = addr }
}

// WithTransport sets the round tripper for token and profile requests.
func WithTransport(rt http.RoundTripper) FlowOption {
	return func(f *Flow) { f.transport = rt }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) FlowOption {
	return func(f *Flow) { f.log = log }
}

// Flow is the interactive authorization-code grant.
type Flow struct {
	clientID  string
	prompt    func(authURL string) error
	listen    string
	transport http.RoundTripper
	log       *slog.Logger
}

// NewFlow builds a Flow for the registered client id.
func NewFlow(clientID string, opts ...FlowOption) *Flow {
	f := &Flow{
		clientID: clientID,
		listen:   "127.0.0.1:0",
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.prompt == nil {
		f.prompt = func(authURL string) error {
			_, err := fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n  %s\n\n", authURL)
			return err
		}
	}
	return f
}

// Login authenticates against the target's home server and returns the
// granted credential plus the session actor document.
//
// The target is either a user@host handle, resolved through webfinger, or
// a server URL, in which case the token response must carry a "me" member
// identifying the actor. The server may narrow the requested scopes; the
// credential records what was actually granted.
func (f *Flow) Login(ctx context.Context, target string, scopes []client.Scope) (client.Credential, *activity.Actor, error) {
	if len(scopes) == 0 {
		scopes = client.DefaultScopes
	}
	actorIRI, home, err := f.resolve(ctx, target)
	if err != nil {
		return client.Credential{}, nil, err
	}
	endpoints := f.discover(ctx, actorIRI, home)

	ln, err := net.Listen("tcp", f.listen)
	if err != nil {
		return client.Credential{}, nil, fmt.Errorf("redirect listener: %w", err)
	}
	redirectURI := "http://" + ln.Addr().String() + "/callback"
	state := uuid.New().String()
	result := make(chan callbackQuery, 1)

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		var cb callbackQuery
		if err := queryDecoder.Decode(&cb, req.URL.Query()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case result <- cb:
		default:
			// first redirect wins
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, loginDonePage)
	})
	srv := &http.Server{Handler: r}
	go srv.Serve(ln)
	defer srv.Close()

	authURL, err := authorizeURL(endpoints.authorize, f.clientID, redirectURI, client.ScopeString(scopes), state)
	if err != nil {
		return client.Credential{}, nil, err
	}
	if err := f.prompt(authURL); err != nil {
		return client.Credential{}, nil, fmt.Errorf("authorization prompt: %w", err)
	}

	var cb callbackQuery
	select {
	case cb = <-result:
	case <-ctx.Done():
		return client.Credential{}, nil, ctx.Err()
	}
	switch {
	case cb.Error != "":
		return client.Credential{}, nil, fmt.Errorf("authorization refused: %s", strings.TrimSpace(cb.Error+" "+cb.ErrorDescription))
	case cb.State != state:
		return client.Credential{}, nil, errors.New("authorization response state mismatch")
	case cb.Code == "":
		return client.Credential{}, nil, errors.New("authorization response carried no code")
	}

	tok, err := f.exchange(ctx, endpoints.token, cb.Code, redirectURI)
	if err != nil {
		return client.Credential{}, nil, err
	}
	if actorIRI == "" {
		if actorIRI = tok.Me; actorIRI == "" {
			return client.Credential{}, nil, errors.New("token response did not identify the actor")
		}
	}
	granted := client.ParseScopes(tok.Scope)
	if len(granted) == 0 {
		// servers may omit the grant when it matches the request.
		granted = scopes
	}

	actor, err := fetchActor(ctx, f.transport, actorIRI, tok.AccessToken)
	if err != nil {
		return client.Credential{}, nil, err
	}
	cred := client.Credential{
		Token:      tok.AccessToken,
		HomeServer: home,
		ActorID:    actor.ID,
		Scopes:     granted,
	}
	f.log.Info("logged in", "actor", actor.ID, "scopes", tok.Scope)
	return cred, actor, nil
}

// resolve maps the login target to an actor IRI (when knowable up front)
// and a home origin.
func (f *Flow) resolve(ctx context.Context, target string) (actorIRI, home string, err error) {
	switch {
	case strings.Contains(target, "://"):
		home, err = originOf(target)
		return "", home, err
	case strings.Contains(target, "@"):
		acct, err := webfinger.Parse(target)
		if err != nil {
			return "", "", err
		}
		if acct.Host == "" {
			return "", "", fmt.Errorf("handle %q has no host", target)
		}
		iri, err := acct.Resolve(ctx)
		if err != nil {
			return "", "", err
		}
		home, err = originOf(iri)
		return iri, home, err
	default:
		return "", "", fmt.Errorf("login target %q: want a user@host handle or a server url", target)
	}
}

type oauthEndpoints struct {
	authorize string
	token     string
}

// discover reads the oauth endpoints from the actor's public profile,
// falling back to the conventional paths on the home origin.
func (f *Flow) discover(ctx context.Context, actorIRI, home string) oauthEndpoints {
	eps := oauthEndpoints{
		authorize: home + "/oauth/authorize",
		token:     home + "/oauth/token",
	}
	if actorIRI == "" {
		return eps
	}
	var actor activity.Actor
	rb := requests.URL(actorIRI).
		Accept(activity.ContentType).
		CheckStatus(http.StatusOK).
		ToJSON(&actor)
	if f.transport != nil {
		rb = rb.Transport(f.transport)
	}
	if err := rb.Fetch(ctx); err != nil {
		f.log.Warn("reading oauth endpoints from profile", "url", actorIRI, "error", err)
		return eps
	}
	if actor.Endpoints != nil {
		if actor.Endpoints.OAuthAuthorizationEndpoint != "" {
			eps.authorize = actor.Endpoints.OAuthAuthorizationEndpoint
		}
		if actor.Endpoints.OAuthTokenEndpoint != "" {
			eps.token = actor.Endpoints.OAuthTokenEndpoint
		}
	}
	return eps
}

// tokenRequest is the form body of the code exchange.
type tokenRequest struct {
	GrantType   string `schema:"grant_type"`
	Code        string `schema:"code"`
	ClientID    string `schema:"client_id"`
	RedirectURI string `schema:"redirect_uri"`
}

// tokenResponse is the token endpoint's reply. Me identifies the actor
// when the login target was a bare server url.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at,omitempty"`
	Me          string `json:"me,omitempty"`
}

func (f *Flow) exchange(ctx context.Context, endpoint, code, redirectURI string) (*tokenResponse, error) {
	form, err := formValues(tokenRequest{
		GrantType:   "authorization_code",
		Code:        code,
		ClientID:    f.clientID,
		RedirectURI: redirectURI,
	})
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	rb := requests.URL(endpoint).
		BodyForm(form).
		CheckStatus(http.StatusOK).
		ToJSON(&tok)
	if f.transport != nil {
		rb = rb.Transport(f.transport)
	}
	if err := rb.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token exchange: response carried no access token")
	}
	return &tok, nil
}

// Static authenticates with a pre-provisioned bearer token. The login
// target is ignored; the actor document is fetched to verify the token
// and learn the server's capability advertisements.
type Static struct {
	Token     string
	ActorID   string
	Transport http.RoundTripper
}

func (s Static) Login(ctx context.Context, _ string, scopes []client.Scope) (client.Credential, *activity.Actor, error) {
	if s.Token == "" || s.ActorID == "" {
		return client.Credential{}, nil, errors.New("static login needs a token and an actor id")
	}
	if len(scopes) == 0 {
		scopes = client.DefaultScopes
	}
	actor, err := fetchActor(ctx, s.Transport, s.ActorID, s.Token)
	if err != nil {
		return client.Credential{}, nil, err
	}
	home, err := originOf(actor.ID)
	if err != nil {
		return client.Credential{}, nil, err
	}
	cred := client.Credential{
		Token:      s.Token,
		HomeServer: home,
		ActorID:    actor.ID,
		Scopes:     scopes,
	}
	return cred, actor, nil
}

func fetchActor(ctx context.Context, rt http.RoundTripper, id, token string) (*activity.Actor, error) {
	var actor activity.Actor
	rb := requests.URL(id).
		Accept(activity.ContentType).
		Header("Authorization", "Bearer "+token).
		CheckStatus(http.StatusOK).
		CheckContentType("application/activity+json", "application/ld+json", "application/json").
		ToJSON(&actor)
	if rt != nil {
		rb = rb.Transport(rt)
	}
	if err := rb.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetching actor %s: %w", id, err)
	}
	return &actor, nil
}

func authorizeURL(endpoint, clientID, redirectURI, scope, state string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("authorize endpoint: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute url: %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// callbackQuery is the redirect's query string.
type callbackQuery struct {
	Code             string `schema:"code"`
	State            string `schema:"state"`
	Error            string `schema:"error"`
	ErrorDescription string `schema:"error_description"`
}

var (
	formEncoder  = schema.NewEncoder()
	queryDecoder = newQueryDecoder()
)

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func formValues(v any) (url.Values, error) {
	values := make(url.Values)
	if err := formEncoder.Encode(v, values); err != nil {
		return nil, err
	}
	return values, nil
}

const loginDonePage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Signed in</title></head>
<body><p>Signed in. You can close this window and return to the terminal.</p></body>
</html>
`
