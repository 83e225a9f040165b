package main

import (
	"fmt"
	"time"

	"github.com/foyerspace/foyer/activity"
)

type EnterCmd struct {
	Place string        `arg:"" help:"Identifier of the place to enter."`
	Name  string        `help:"Display name for the place, defaults to its identifier."`
	Page  string        `help:"Web page describing the place."`
	Stay  time.Duration `help:"Leave automatically after this long."`
}

func (e *EnterCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	name := e.Name
	if name == "" {
		name = e.Place
	}
	place := activity.NewPlace(e.Place, name, e.Page)
	if err := s.Enter(ctx, place); err != nil {
		return err
	}
	fmt.Printf("present at %s; interrupt to leave\n", name)
	cancel, err := s.OnMessage(printMessage)
	if err != nil {
		return err
	}
	defer cancel()
	wait(ctx, e.Stay)
	return s.Exit(ctx)
}
