package main

import (
	"fmt"
	"os"

	"github.com/foyerspace/foyer/internal/to"
	"github.com/foyerspace/foyer/social"
)

type FeedCmd struct {
	Pages int  `default:"1" help:"Number of feed pages to fetch."`
	JSON  bool `help:"Emit raw messages as JSON."`
}

func (f *FeedCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	var all []social.Message
	for i := 0; i < f.Pages; i++ {
		msgs, err := s.Feed(ctx)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		all = append(all, msgs...)
	}
	if f.JSON {
		return to.JSON(os.Stdout, all)
	}
	for _, m := range all {
		printMessage(m)
	}
	return nil
}

func printMessage(m social.Message) {
	ts := m.Timestamp.Local().Format("15:04")
	sender := m.SenderName
	if sender == "" {
		sender = m.SenderID
	}
	switch m.Category {
	case social.CategoryChat:
		fmt.Printf("%s <%s> %s\n", ts, sender, m.Raw)
	case social.CategoryMedia:
		fmt.Printf("%s * %s shared %s\n", ts, sender, m.MediaURL)
	default:
		fmt.Printf("%s * %s %s\n", ts, sender, m.Raw)
	}
}
