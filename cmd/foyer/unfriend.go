package main

type UnfriendCmd struct {
	Target string `arg:"" help:"Actor identifier or user@host handle."`
}

func (u *UnfriendCmd) Run(ctx *Context) error {
	s, err := ctx.session()
	if err != nil {
		return err
	}
	return s.RemoveFriend(ctx, u.Target)
}
