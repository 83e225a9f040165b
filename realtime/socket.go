// Package realtime maintains the event stream between a session and its
// home server: a websocket carrying JSON frames of the form
// {"event": ..., "data": ...}. The connection self-heals; nothing else
// retries. Handlers run on the socket's event goroutine and should hand
// off promptly.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/internal/group"
)

// Wire event names. The server pushes the update events; the client sends
// the leave-on-disconnect pair.
const (
	eventConnected   = "connected"
	eventFriends     = "friends-update"
	eventInbox       = "inbox-update"
	eventArmLeave    = "leave-on-disconnect"
	eventCancelLeave = "cancel-leave-on-disconnect"
)

var ErrAlreadyConnected = errors.New("event stream already connected")

// frame is one inbound event. Data stays raw until the event name selects
// a shape.
type frame struct {
	Event string        `json:"event"`
	Data  json.RawValue `json:"data,omitempty"`
}

// outFrame is one outbound event.
type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Option configures a Socket.
type Option func(*Socket)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Socket) { s.log = log }
}

// WithEventsURL overrides the events endpoint derived from the home
// server origin.
func WithEventsURL(raw string) Option {
	return func(s *Socket) { s.events = raw }
}

// WithRedialInterval sets the pace of reconnection attempts after the
// stream drops. The default is one dial per three seconds.
func WithRedialInterval(d time.Duration) Option {
	return func(s *Socket) { s.redial = d }
}

// Socket is the real-time channel for one session. It reports
// connectivity, fans out server notifications, and carries the
// leave-on-disconnect obligation used by the presence lifecycle.
type Socket struct {
	events string
	origin string
	token  string
	actor  *activity.Actor
	log    *slog.Logger
	redial time.Duration

	mux mux

	mu     sync.Mutex
	conn   *websocket.Conn
	group  *group.Group
	cancel context.CancelFunc
}

// New builds a socket for the credential's home server. The events
// endpoint defaults to the origin's /events path on the matching
// websocket scheme.
func New(cred client.Credential, actor *activity.Actor, opts ...Option) (*Socket, error) {
	if actor == nil {
		return nil, errors.New("realtime: actor is required")
	}
	s := &Socket{
		origin: cred.HomeServer,
		token:  cred.Token,
		actor:  actor,
		log:    slog.Default(),
		redial: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	events, err := eventsURL(cred.HomeServer, s.events)
	if err != nil {
		return nil, err
	}
	s.events = events
	return s, nil
}

// eventsURL normalizes the endpoint onto a websocket scheme, defaulting
// to /events on the home origin.
func eventsURL(home, override string) (string, error) {
	raw := override
	if raw == "" {
		raw = home
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("events endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("events endpoint: unsupported scheme %q", u.Scheme)
	}
	if override == "" || u.Path == "" {
		u.Path = "/events"
	}
	return u.String(), nil
}

// Connect dials the events endpoint and starts the stream. The first dial
// reports its error to the caller; once established, drops redial in the
// background and every re-establishment fires the connect handlers again.
// ctx bounds only the initial dial; the stream itself lives until
// Disconnect.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.group != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(context.Background())
	g := group.New(runCtx)
	s.group = g
	s.cancel = cancel
	s.mu.Unlock()

	first := make(chan error, 1)
	g.Go(func(ctx context.Context) error {
		return s.run(ctx, first)
	})

	select {
	case err := <-first:
		if err != nil {
			s.Disconnect()
			return err
		}
		return nil
	case <-ctx.Done():
		s.Disconnect()
		return ctx.Err()
	}
}

// Connected reports whether the stream is currently established.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Disconnect tears the stream down and stops redialling. Idempotent.
func (s *Socket) Disconnect() error {
	s.mu.Lock()
	g := s.group
	cancel := s.cancel
	conn := s.conn
	s.group = nil
	s.cancel = nil
	s.conn = nil
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	return g.Wait()
}

// Close makes a Socket an io.Closer for lifecycle plumbing.
func (s *Socket) Close() error { return s.Disconnect() }

// OnConnect registers fn to run on every establishment of the stream,
// redials included. The returned cancel deregisters it.
func (s *Socket) OnConnect(fn func()) (cancel func()) {
	return s.mux.subscribe(eventConnected, func(payload) { fn() })
}

// OnFriendsChanged registers fn to run when the server reports a change
// to the friends collection.
func (s *Socket) OnFriendsChanged(fn func()) (cancel func()) {
	return s.mux.subscribe(eventFriends, func(payload) { fn() })
}

// OnInbox registers fn to receive each activity the server pushes for the
// session inbox.
func (s *Socket) OnInbox(fn func(activity.Object)) (cancel func()) {
	return s.mux.subscribe(eventInbox, func(p payload) { fn(p.data) })
}

// ArmLeaveOnDisconnect leaves a prepared departure with the server: if
// the socket dies without a clean exit, the server posts the leave on the
// session's behalf.
func (s *Socket) ArmLeaveOnDisconnect(place *activity.Object) {
	leave := &activity.Object{
		Type:   string(activity.Leave),
		Actor:  activity.IRIRef(s.actor.ID),
		Target: activity.ObjectRef(place),
	}
	if s.actor.Followers != "" {
		leave.To = activity.List{s.actor.Followers}
	}
	if err := s.send(eventArmLeave, leave); err != nil {
		s.log.Warn("arming leave-on-disconnect", "error", err)
	}
}

// DisarmLeaveOnDisconnect withdraws the prepared departure.
func (s *Socket) DisarmLeaveOnDisconnect() {
	if err := s.send(eventCancelLeave, nil); err != nil {
		s.log.Warn("disarming leave-on-disconnect", "error", err)
	}
}

func (s *Socket) send(event string, data any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("event stream not connected")
	}
	buf, err := json.Marshal(outFrame{Event: event, Data: data})
	if err != nil {
		return err
	}
	_, err = conn.Write(buf)
	return err
}

// run owns the connection for its whole life: dial, fan out the connected
// notification, read until the stream breaks, redial. Only the first dial
// reports to Connect; later failures log and retry at the redial pace.
func (s *Socket) run(ctx context.Context, first chan<- error) error {
	limiter := rate.NewLimiter(rate.Every(s.redial), 1)
	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, err := s.dial()
		if err != nil {
			if attempt == 0 {
				first <- err
				return err
			}
			s.log.Warn("redialling event stream", "url", s.events, "error", err)
			continue
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.mux.publish(payload{event: eventConnected})
		if attempt == 0 {
			first <- nil
		}

		err = s.read(ctx, conn)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("event stream interrupted", "error", err)
	}
}

func (s *Socket) dial() (*websocket.Conn, error) {
	config, err := websocket.NewConfig(s.events, s.origin)
	if err != nil {
		return nil, err
	}
	config.Header = http.Header{"Authorization": {"Bearer " + s.token}}
	config.Dialer = &net.Dialer{Timeout: 10 * time.Second}
	return websocket.DialConfig(config)
}

// read decodes frames until the connection breaks or ctx ends. Websocket
// reads have no native cancellation, so the context closes the conn to
// kick the decoder loose.
func (s *Socket) read(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	dec := json.DecodeOptions{}.NewDecoder(conn)
	for {
		var f frame
		if err := (json.UnmarshalOptions{}).UnmarshalNext(dec, &f); err != nil {
			return err
		}
		s.dispatch(f)
	}
}

func (s *Socket) dispatch(f frame) {
	switch f.Event {
	case eventFriends:
		s.mux.publish(payload{event: eventFriends})
	case eventInbox:
		var act activity.Object
		if err := json.Unmarshal(f.Data, &act); err != nil {
			s.log.Warn("discarding malformed inbox event", "error", err)
			return
		}
		s.mux.publish(payload{event: eventInbox, data: act})
	default:
		s.log.Debug("ignoring unknown event", "event", f.Event)
	}
}
