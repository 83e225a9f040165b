package foyer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/internal/nodeinfo"
	"github.com/foyerspace/foyer/internal/webfinger"
	"github.com/foyerspace/foyer/presence"
	"github.com/foyerspace/foyer/social"
	"github.com/foyerspace/foyer/store"
)

// Session is one user's connection to the network. Establish it with
// Login or Resume, bring up the event stream with Connect, then drive
// presence and the social operations.
//
// A Session is built for the protocol's cooperative model: operations
// are safe to call from the channel's event handlers, but callers must
// not issue the same operation concurrently with itself. Pagination in
// particular (Feed) owns its cursor.
type Session struct {
	cfg       Config
	log       *slog.Logger
	store     store.Store
	sanitizer social.Sanitizer

	mu      sync.Mutex
	client  *client.Client
	channel Channel
	life    *presence.Lifecycle
	blocked map[string]struct{}
}

// Login authenticates against the target's home server and persists the
// granted credential. The target is a user@host handle or a server URL;
// what it accepts exactly is up to the configured Authenticator.
func (s *Session) Login(ctx context.Context, target string) error {
	cred, actor, err := s.cfg.authenticator().Login(ctx, target, s.cfg.Scopes)
	if err != nil {
		return err
	}
	c, err := client.New(cred, actor, s.cfg.clientOptions()...)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	s.store.SetActor(ctx, actor)
	if acct, err := webfinger.Parse(target); err == nil && acct.Host != "" {
		s.store.SetActorID(ctx, acct.User+"@"+acct.Host, actor.ID)
	}

	s.mu.Lock()
	s.client = c
	s.blocked = nil
	s.mu.Unlock()

	s.noteServerSoftware(ctx, cred.HomeServer)
	return nil
}

// Resume rebuilds the session from the stored credential without an
// interactive login. Returns ErrNotLoggedIn when nothing is stored.
func (s *Session) Resume(ctx context.Context) error {
	cred, ok, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLoggedIn
	}

	var c *client.Client
	if actor, ok := s.store.Actor(ctx, cred.ActorID); ok {
		c, err = client.New(cred, actor, s.cfg.clientOptions()...)
	} else {
		c, err = client.Bootstrap(ctx, cred, s.cfg.clientOptions()...)
		if err == nil {
			s.store.SetActor(ctx, c.Actor())
		}
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.client = c
	s.blocked = nil
	s.mu.Unlock()

	s.noteServerSoftware(ctx, cred.HomeServer)
	return nil
}

// Logout leaves the current place if presence is announced, tears down
// the event stream, and clears the stored credential.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	life := s.life
	s.mu.Unlock()
	if life != nil && life.Online() {
		if err := life.Exit(ctx); err != nil {
			s.log.Warn("leaving on logout", "error", err)
		}
	}
	if err := s.Disconnect(); err != nil {
		s.log.Warn("disconnecting on logout", "error", err)
	}

	s.mu.Lock()
	s.client = nil
	s.blocked = nil
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

// Connect dials the real-time channel and readies the presence
// lifecycle. ctx bounds the initial dial; once established the stream
// self-heals until Disconnect.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	c, ch := s.client, s.channel
	s.mu.Unlock()
	if c == nil {
		return ErrNotLoggedIn
	}
	if ch != nil {
		return ErrAlreadyConnected
	}

	channel, err := s.cfg.newChannel(c.Credential(), c.Actor())
	if err != nil {
		return err
	}
	if err := channel.Connect(ctx); err != nil {
		return err
	}
	life := presence.New(poster{c}, channel,
		presence.WithLogger(s.log),
		presence.WithLocationSharing(c.Credential().HasScope(client.ScopePostLocation)),
	)

	s.mu.Lock()
	s.channel = channel
	s.life = life
	s.mu.Unlock()
	return nil
}

// Disconnect tears down the event stream. Presence state is dropped
// with it: the leave-on-disconnect obligation left with the server
// covers an exit that never got posted.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.life = nil
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.Disconnect()
}

// Close is Disconnect, for defer-friendly lifecycle plumbing.
func (s *Session) Close() error { return s.Disconnect() }

// Connected reports whether the event stream is currently established.
func (s *Session) Connected() bool {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	return ch != nil && ch.Connected()
}

// Actor returns the session actor document, or nil before login.
func (s *Session) Actor() *activity.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	return s.client.Actor()
}

// Credential returns the session credential. ok is false before login.
func (s *Session) Credential() (cred client.Credential, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return client.Credential{}, false
	}
	return s.client.Credential(), true
}

// Client exposes the protocol layer for operations the façade does not
// cover. It shares the session's cursors; treat it as the same
// single-writer resource.
func (s *Session) Client() *client.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Enter announces presence at place. Requires Login and Connect.
func (s *Session) Enter(ctx context.Context, place *activity.Object) error {
	life, err := s.lifecycle()
	if err != nil {
		return err
	}
	return life.Enter(ctx, place)
}

// Exit retracts the current presence announcement.
func (s *Session) Exit(ctx context.Context) error {
	life, err := s.lifecycle()
	if err != nil {
		return err
	}
	return life.Exit(ctx)
}

// Move relocates presence to a new place: one leave, one arrive.
func (s *Session) Move(ctx context.Context, place *activity.Object) error {
	life, err := s.lifecycle()
	if err != nil {
		return err
	}
	return life.Move(ctx, place)
}

// Online reports whether presence is currently announced.
func (s *Session) Online() bool {
	s.mu.Lock()
	life := s.life
	s.mu.Unlock()
	return life != nil && life.Online()
}

func (s *Session) lifecycle() (*presence.Lifecycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.client == nil:
		return nil, ErrNotLoggedIn
	case s.life == nil:
		return nil, ErrNotConnected
	default:
		return s.life, nil
	}
}

func (s *Session) sessionClient() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrNotLoggedIn
	}
	return s.client, nil
}

// poster adapts the activity client to the presence lifecycle: the
// lifecycle owns which place is current, the client builds and posts
// the activities.
type poster struct {
	c *client.Client
}

func (p poster) Arrive(ctx context.Context, place *activity.Object) error {
	p.c.SetPlace(place)
	_, err := p.c.PostActivity(ctx, p.c.Arrive())
	return err
}

func (p poster) Leave(ctx context.Context, place *activity.Object) error {
	p.c.SetPlace(place)
	_, err := p.c.PostActivity(ctx, p.c.Leave())
	return err
}

// noteServerSoftware records what the home server runs, once. Knowing
// the software behind a missing capability turns "unsupported" into an
// actionable answer.
func (s *Session) noteServerSoftware(ctx context.Context, origin string) {
	if _, ok := s.store.Node(ctx, origin); ok {
		return
	}
	info, err := nodeinfo.Fetch(ctx, origin)
	if err != nil {
		s.log.Debug("nodeinfo lookup failed", "origin", origin, "error", err)
		return
	}
	s.store.SetNode(ctx, store.Node{
		Origin:   origin,
		Software: info.Software.Name,
		Version:  info.Software.Version,
	})
	s.log.Debug("home server identified",
		"origin", origin, "software", info.Software.Name, "version", info.Software.Version)
}

// resolveActor maps a user@host handle (or a raw identifier, passed
// through) to an actor IRI, consulting the directory cache before
// webfinger.
func (s *Session) resolveActor(ctx context.Context, target string) (string, error) {
	if strings.Contains(target, "://") {
		return target, nil
	}
	acct, err := webfinger.Parse(target)
	if err != nil {
		return "", err
	}
	if acct.Host == "" {
		return "", fmt.Errorf("cannot resolve %q: want an identifier or user@host handle", target)
	}
	handle := acct.User + "@" + acct.Host
	if id, ok := s.store.ActorID(ctx, handle); ok {
		return id, nil
	}
	id, err := acct.Resolve(ctx)
	if err != nil {
		return "", err
	}
	s.store.SetActorID(ctx, handle, id)
	return id, nil
}
