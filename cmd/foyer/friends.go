package main

import (
	"fmt"
	"os"

	"github.com/foyerspace/foyer/internal/to"
	"github.com/foyerspace/foyer/social"
)

type FriendsCmd struct {
	JSON bool `help:"Emit the raw list as JSON."`
}

func (f *FriendsCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	friends, err := s.Friends(ctx)
	if err != nil {
		return err
	}
	if f.JSON {
		return to.JSON(os.Stdout, friends)
	}
	for i := range friends {
		fmt.Println(friendLine(&friends[i]))
	}
	return nil
}

func friendLine(f *social.Friend) string {
	name := f.ActorID
	if f.Profile != nil && f.Profile.Name != "" {
		name = fmt.Sprintf("%s (%s)", f.Profile.Name, f.ActorID)
	}
	switch f.Status {
	case social.StatusOnline:
		place := f.PlaceName
		if place == "" {
			place = f.PlaceURL
		}
		return fmt.Sprintf("%s is at %s", name, place)
	case social.StatusOffline:
		return fmt.Sprintf("%s is offline", name)
	case social.StatusRequestSent:
		return fmt.Sprintf("%s has not answered your friend request", name)
	case social.StatusRequestReceived:
		return fmt.Sprintf("%s wants to be your friend; accept with: foyer befriend %s", name, f.ActorID)
	default:
		return name
	}
}
