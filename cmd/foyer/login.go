package main

import (
	"fmt"

	"github.com/foyerspace/foyer"
	"github.com/foyerspace/foyer/oauth"
)

type LoginCmd struct {
	Target   string `arg:"" optional:"" help:"user@host handle or server URL of your home account."`
	ClientID string `default:"foyer-cli" help:"OAuth client identifier presented to the server."`
	Token    string `help:"Pre-provisioned bearer token, skipping the interactive login."`
	Actor    string `help:"Actor identifier the token belongs to, required with --token."`
}

func (l *LoginCmd) Run(ctx *Context) error {
	if l.Target == "" && l.Token == "" {
		return fmt.Errorf("login needs a target, or --token with --actor")
	}
	st, err := ctx.store()
	if err != nil {
		return err
	}
	cfg := ctx.config(st)
	cfg.ClientID = l.ClientID
	if l.Token != "" {
		cfg.Authenticator = oauth.Static{Token: l.Token, ActorID: l.Actor}
	}
	s := foyer.New(cfg)
	if err := s.Login(ctx, l.Target); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", s.Actor().Handle())
	return nil
}
