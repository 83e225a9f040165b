package main

import (
	"fmt"

	"github.com/foyerspace/foyer/client"
)

type SayCmd struct {
	Message string   `arg:"" help:"What to say."`
	To      []string `help:"Explicit recipient actor identifiers."`
	Public  bool     `help:"Address the public, not just friends."`
}

func (s *SayCmd) Run(ctx *Context) error {
	sess, err := ctx.session()
	if err != nil {
		return err
	}
	aud := client.AudienceFriends
	if s.Public {
		aud = client.AudiencePublic
	}
	loc, err := sess.SendChat(ctx, s.Message, aud, s.To...)
	if err != nil {
		return err
	}
	if loc != "" {
		fmt.Println(loc)
	}
	return nil
}
