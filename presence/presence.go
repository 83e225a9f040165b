// Package presence runs the arrive/leave lifecycle for a session: one
// logical entry announces one arrival, one exit announces one departure,
// and reconnects of the real-time channel re-announce without caller
// intervention.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/foyerspace/foyer/activity"
)

var (
	ErrAlreadyOnline = errors.New("presence already announced")
	ErrNotOnline     = errors.New("presence not announced")
)

// Poster posts presence activities for the session actor. Implemented by
// the activity client behind a thin adapter.
type Poster interface {
	Arrive(ctx context.Context, place *activity.Object) error
	Leave(ctx context.Context, place *activity.Object) error
}

// Channel is the real-time transport the lifecycle observes. OnConnect
// fires on every (re)establishment; the returned cancel deregisters the
// handler. Arming leaves a departure obligation with the server so an
// abrupt drop still announces the exit.
type Channel interface {
	Connected() bool
	OnConnect(fn func()) (cancel func())
	ArmLeaveOnDisconnect(place *activity.Object)
	DisarmLeaveOnDisconnect()
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Lifecycle) { l.log = log }
}

// WithLocationSharing records whether the session was granted the
// location-posting capability. Without it Enter, Exit and Move log and
// no-op; presence is a privilege, not a guarantee.
func WithLocationSharing(granted bool) Option {
	return func(l *Lifecycle) { l.share = granted }
}

// Lifecycle is the Offline/Online presence state machine. Methods are
// safe for concurrent use with the channel's reconnect notifications.
type Lifecycle struct {
	poster  Poster
	channel Channel
	log     *slog.Logger
	share   bool

	mu          sync.Mutex
	online      bool
	place       *activity.Object
	unsubscribe func()
}

func New(poster Poster, channel Channel, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		poster:  poster,
		channel: channel,
		log:     slog.Default(),
		share:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Online reports whether presence is currently announced.
func (l *Lifecycle) Online() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

// Enter announces presence at place. When the channel is connected it
// posts one arrive and arms the departure obligation immediately; either
// way it subscribes to connect notifications so every future reconnect
// re-announces. Returns ErrAlreadyOnline when presence is already
// announced; Exit or Move first.
func (l *Lifecycle) Enter(ctx context.Context, place *activity.Object) error {
	if !l.share {
		l.log.Info("location sharing not granted, skipping arrival")
		return nil
	}
	l.mu.Lock()
	if l.online {
		l.mu.Unlock()
		return ErrAlreadyOnline
	}
	l.online = true
	l.place = place
	l.mu.Unlock()

	if l.channel.Connected() {
		if err := l.poster.Arrive(ctx, place); err != nil {
			l.mu.Lock()
			l.online = false
			l.place = nil
			l.mu.Unlock()
			return err
		}
		l.channel.ArmLeaveOnDisconnect(place)
	}

	cancel := l.channel.OnConnect(l.reannounce)
	l.mu.Lock()
	l.unsubscribe = cancel
	l.mu.Unlock()
	return nil
}

// reannounce re-posts the arrival after the channel comes back. It holds
// no lock across the post, so an interleaved Exit is observed by the
// online flag; the residual race is at most one extra announcement.
func (l *Lifecycle) reannounce() {
	l.mu.Lock()
	online, place := l.online, l.place
	l.mu.Unlock()
	if !online {
		return
	}
	if err := l.poster.Arrive(context.Background(), place); err != nil {
		l.log.Warn("re-announcing arrival after reconnect", "error", err)
		return
	}
	l.channel.ArmLeaveOnDisconnect(place)
}

// Exit announces departure from the current place. The reconnect
// subscription is cancelled synchronously before the leave posts, so a
// reconnect racing an intentional exit cannot re-announce afterwards.
// Returns ErrNotOnline when presence was never announced. When the leave
// post fails the server-side obligation stays armed as the backstop.
func (l *Lifecycle) Exit(ctx context.Context) error {
	if !l.share {
		l.log.Info("location sharing not granted, skipping departure")
		return nil
	}
	l.mu.Lock()
	if !l.online {
		l.mu.Unlock()
		return ErrNotOnline
	}
	place := l.place
	unsubscribe := l.unsubscribe
	l.online = false
	l.place = nil
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if err := l.poster.Leave(ctx, place); err != nil {
		return err
	}
	l.channel.DisarmLeaveOnDisconnect()
	return nil
}

// Move relocates presence: one leave for the old place, one arrive at the
// new one. Moving while offline is just an entry.
func (l *Lifecycle) Move(ctx context.Context, place *activity.Object) error {
	if !l.share {
		l.log.Info("location sharing not granted, skipping move")
		return nil
	}
	if err := l.Exit(ctx); err != nil && !errors.Is(err, ErrNotOnline) {
		return err
	}
	return l.Enter(ctx, place)
}
