// Package group ties a set of goroutines to a shared context: the first
// member to return cancels the rest, and Wait reports the first error.
package group

import (
	"context"
	"sync"
)

// Group runs goroutines that live and die together. Cancellation is
// one-way: any member returning, error or not, ends the context the
// remaining members run under.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	once sync.Once
	err  error
}

// New derives a Group from ctx. Cancelling ctx ends every member.
func New(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel}
}

// Go starts fn as a member of the group. fn must return when the context
// it is handed ends.
func (g *Group) Go(fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.cancel()
		if err := fn(g.ctx); err != nil {
			g.once.Do(func() { g.err = err })
		}
	}()
}

// Wait blocks until every member has returned and reports the first
// error among them, if any.
func (g *Group) Wait() error {
	g.wg.Wait()
	// empty Do publishes err to this goroutine before the read below.
	g.once.Do(func() {})
	return g.err
}
