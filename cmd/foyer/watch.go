package main

import "fmt"

// WatchCmd streams the feed without announcing presence anywhere.
type WatchCmd struct{}

func (w *WatchCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	cancelInbox, err := s.OnMessage(printMessage)
	if err != nil {
		return err
	}
	defer cancelInbox()
	cancelFriends, err := s.OnFriendsChanged(func() {
		fmt.Println("* your friend list changed")
	})
	if err != nil {
		return err
	}
	defer cancelFriends()
	fmt.Println("watching; interrupt to stop")
	wait(ctx, 0)
	return nil
}
