package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/foyerspace/foyer"
	"github.com/foyerspace/foyer/store"
)

type Context struct {
	context.Context
	Debug bool

	StatePath   string
	Passphrase  string
	LocalServer string
}

// store opens the persistent state database every command shares.
func (c *Context) store() (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(c.StatePath), 0o700); err != nil {
		return nil, err
	}
	var opts []store.DBOption
	if c.Passphrase != "" {
		opts = append(opts, store.WithPassphrase(c.Passphrase))
	}
	opts = append(opts, store.WithLogger(c.logger()))
	return store.OpenDB(c.StatePath, opts...)
}

func (c *Context) config(st store.Store) foyer.Config {
	return foyer.Config{
		Store:       st,
		LocalServer: c.LocalServer,
		Logger:      c.logger(),
	}
}

// session rebuilds the logged-in session from the state database.
func (c *Context) session() (*foyer.Session, error) {
	st, err := c.store()
	if err != nil {
		return nil, err
	}
	s := foyer.New(c.config(st))
	if err := s.Resume(c); err != nil {
		if errors.Is(err, foyer.ErrNotLoggedIn) {
			return nil, fmt.Errorf("not logged in: run foyer login first")
		}
		return nil, err
	}
	return s, nil
}

func (c *Context) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// wait blocks until interrupted, the optional timeout elapses, or ctx
// ends.
func wait(ctx context.Context, timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-stop:
	case <-expired:
	case <-ctx.Done():
	}
}

// statePath resolves the state database location, defaulting to the
// user's config directory.
func statePath(flag string) string {
	if flag != "" {
		return flag
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "foyer.db"
	}
	return filepath.Join(dir, "foyer", "foyer.db")
}

var cli struct {
	Debug       bool   `help:"Enable debug logging."`
	State       string `help:"Path to the state database." type:"path"`
	Passphrase  string `env:"FOYER_PASSPHRASE" help:"Passphrase sealing the stored token."`
	LocalServer string `help:"Additional trusted venue server origin."`

	Login    LoginCmd    `cmd:"" help:"Log in to a home server."`
	Logout   LogoutCmd   `cmd:"" help:"Log out and clear the stored credential."`
	Whoami   WhoamiCmd   `cmd:"" help:"Show the logged-in actor."`
	Friends  FriendsCmd  `cmd:"" help:"List friends and where they are."`
	Befriend BefriendCmd `cmd:"" help:"Send or accept a friend request."`
	Unfriend UnfriendCmd `cmd:"" help:"Remove a friend or withdraw a request."`
	Block    BlockCmd    `cmd:"" help:"Block an actor."`
	Blocked  BlockedCmd  `cmd:"" help:"List blocked actors."`
	Feed     FeedCmd     `cmd:"" help:"Show the message feed."`
	Say      SayCmd      `cmd:"" help:"Post a chat message."`
	Share    ShareCmd    `cmd:"" help:"Share a picture, clip or model."`
	Enter    EnterCmd    `cmd:"" help:"Announce presence at a place and stream events."`
	Watch    WatchCmd    `cmd:"" help:"Stream events without announcing presence."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Context:     context.Background(),
		Debug:       cli.Debug,
		StatePath:   statePath(cli.State),
		Passphrase:  cli.Passphrase,
		LocalServer: cli.LocalServer,
	})
	ctx.FatalIfErrorf(err)
}
