package main

import "github.com/foyerspace/foyer"

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx *Context) error {
	st, err := ctx.store()
	if err != nil {
		return err
	}
	// no resume: logging out must work even when the stored credential
	// can no longer establish a session.
	s := foyer.New(ctx.config(st))
	return s.Logout(ctx)
}
