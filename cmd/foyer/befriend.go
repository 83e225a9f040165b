package main

type BefriendCmd struct {
	Target string `arg:"" help:"Actor identifier or user@host handle."`
}

func (b *BefriendCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	return s.AddFriend(ctx, b.Target)
}
