// Package foyer lets an application join a federated social presence
// network: sign in against a home server, announce yourself at a place,
// see which friends are online and where, and exchange short messages.
//
// A Session ties the pieces together. Login or Resume establishes the
// session client, Connect brings up the real-time event stream, and the
// presence, friend and feed operations build on both. The lower layers
// remain importable on their own for applications that want different
// plumbing: client speaks the wire protocol, social derives display
// state from raw activities, presence runs the arrive/leave lifecycle.
package foyer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/oauth"
	"github.com/foyerspace/foyer/realtime"
	"github.com/foyerspace/foyer/sanitize"
	"github.com/foyerspace/foyer/social"
	"github.com/foyerspace/foyer/store"
)

// Session lifecycle errors. Operations invoked out of order fail fast
// rather than misbehaving.
var (
	ErrNotLoggedIn      = errors.New("session is not logged in")
	ErrNotConnected     = errors.New("session has no event stream; call Connect first")
	ErrAlreadyConnected = errors.New("session event stream already connected")
)

// Authenticator obtains a session credential and the matching actor
// document. The interactive implementation lives in the oauth package;
// anything that can produce a bearer token will do.
type Authenticator interface {
	Login(ctx context.Context, target string, scopes []client.Scope) (client.Credential, *activity.Actor, error)
}

// Channel is the real-time connection a session drives: connectivity
// reporting, server push notifications, and the leave-on-disconnect
// obligation the presence lifecycle arms. The websocket implementation
// lives in the realtime package.
type Channel interface {
	Connect(ctx context.Context) error
	Connected() bool
	Disconnect() error
	OnConnect(fn func()) (cancel func())
	OnFriendsChanged(fn func()) (cancel func())
	OnInbox(fn func(activity.Object)) (cancel func())
	ArmLeaveOnDisconnect(place *activity.Object)
	DisarmLeaveOnDisconnect()
}

// Config carries the session collaborators. The zero value works: an
// interactive login flow, an in-memory store, the standard display
// sanitizer and the websocket channel.
type Config struct {
	// ClientID identifies this application to the authorization server.
	// Defaults to "foyer".
	ClientID string

	// Scopes are the capabilities requested at login. The server may
	// grant fewer. Defaults to client.DefaultScopes.
	Scopes []client.Scope

	// LocalServer adds a second trusted origin for venues that run an
	// activity server beside the user's home server.
	LocalServer string

	// Authenticator performs Login. Defaults to the interactive oauth
	// flow for ClientID.
	Authenticator Authenticator

	// Store persists the credential and the directory caches between
	// runs. Defaults to an in-memory store that lives as long as the
	// process.
	Store store.Store

	// Sanitizer reduces remote markup for display. Defaults to the
	// sanitize package's policy.
	Sanitizer social.Sanitizer

	// NewChannel builds the real-time channel at Connect time. Defaults
	// to the realtime websocket implementation.
	NewChannel func(cred client.Credential, actor *activity.Actor) (Channel, error)

	// Transport overrides the HTTP round tripper on protocol and login
	// traffic. The websocket channel dials on its own.
	Transport http.RoundTripper

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (cfg *Config) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

func (cfg *Config) clientID() string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "foyer"
}

func (cfg *Config) authenticator() Authenticator {
	if cfg.Authenticator != nil {
		return cfg.Authenticator
	}
	opts := []oauth.FlowOption{oauth.WithLogger(cfg.logger())}
	if cfg.Transport != nil {
		opts = append(opts, oauth.WithTransport(cfg.Transport))
	}
	return oauth.NewFlow(cfg.clientID(), opts...)
}

func (cfg *Config) newChannel(cred client.Credential, actor *activity.Actor) (Channel, error) {
	if cfg.NewChannel != nil {
		return cfg.NewChannel(cred, actor)
	}
	return realtime.New(cred, actor, realtime.WithLogger(cfg.logger()))
}

func (cfg *Config) clientOptions() []client.Option {
	opts := []client.Option{client.WithLogger(cfg.logger())}
	if cfg.LocalServer != "" {
		opts = append(opts, client.WithLocalServer(cfg.LocalServer))
	}
	if cfg.Transport != nil {
		opts = append(opts, client.WithTransport(cfg.Transport))
	}
	return opts
}

// New builds a Session around cfg. Nothing touches the network until
// Login, Resume or Connect.
func New(cfg Config) *Session {
	s := &Session{
		cfg:   cfg,
		log:   cfg.logger(),
		store: cfg.Store,
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	s.sanitizer = cfg.Sanitizer
	if s.sanitizer == nil {
		s.sanitizer = sanitize.NewPolicy()
	}
	return s
}
