package main

type BlockCmd struct {
	Target string `arg:"" help:"Actor identifier or user@host handle."`
}

func (b *BlockCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	return s.Block(ctx, b.Target)
}
