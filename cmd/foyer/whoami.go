package main

import (
	"os"

	"github.com/foyerspace/foyer/internal/to"
)

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	return to.JSON(os.Stdout, s.Actor())
}
