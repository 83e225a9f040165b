package main

import "fmt"

type BlockedCmd struct{}

func (b *BlockedCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	ids, err := s.Blocked(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
