package client

import (
	"context"

	"github.com/foyerspace/foyer/activity"
)

// Cursor tracks incremental progress through one paged collection. A zero
// Cursor has not started; a started cursor with a next reference is in
// progress; a started cursor without one is exhausted. Cursors are
// monotonic: an exhausted collection is not re-fetched until Reset.
type Cursor struct {
	next    string
	started bool
}

// Started reports whether the collection root has been fetched.
func (c *Cursor) Started() bool { return c.started }

// Exhausted reports whether the collection has no further pages.
func (c *Cursor) Exhausted() bool { return c.started && c.next == "" }

// Reset re-arms the cursor so the next Page call starts over from the root.
func (c *Cursor) Reset() { *c = Cursor{} }

// PaginationState holds the per-collection-kind cursors owned by a Client.
// Each cursor is single-writer state; callers must not page the same
// collection kind concurrently.
type PaginationState struct {
	Inbox  Cursor
	Outbox Cursor
}

// Page returns the next batch of items from the collection, advancing cur.
// The first call fetches the collection root; a root without inline items
// is followed through its first page reference. An exhausted cursor returns
// no items without a network call.
func (c *Client) Page(ctx context.Context, collectionID string, cur *Cursor) ([]activity.Object, error) {
	switch {
	case cur.Exhausted():
		return nil, nil
	case !cur.started:
		var root activity.Collection
		if err := c.Fetch(ctx, collectionID, &root); err != nil {
			return nil, err
		}
		items := root.Contents()
		next := root.Next
		if len(items) == 0 && root.First != "" {
			var page activity.Collection
			if err := c.Fetch(ctx, root.First, &page); err != nil {
				return nil, err
			}
			items = page.Contents()
			next = page.Next
		}
		cur.started = true
		cur.next = next
		return items, nil
	default:
		var page activity.Collection
		if err := c.Fetch(ctx, cur.next, &page); err != nil {
			return nil, err
		}
		cur.next = page.Next
		return page.Contents(), nil
	}
}

// InboxPage returns the next batch of inbox activities.
func (c *Client) InboxPage(ctx context.Context) ([]activity.Object, error) {
	return c.Page(ctx, c.actor.Inbox, &c.pages.Inbox)
}

// OutboxPage returns the next batch of outbox activities.
func (c *Client) OutboxPage(ctx context.Context) ([]activity.Object, error) {
	return c.Page(ctx, c.actor.Outbox, &c.pages.Outbox)
}

// ResetInbox re-arms the inbox cursor.
func (c *Client) ResetInbox() { c.pages.Inbox.Reset() }

// ResetOutbox re-arms the outbox cursor.
func (c *Client) ResetOutbox() { c.pages.Outbox.Reset() }

// BlockedIDs eagerly drains the actor's blocklist stream into one set.
// Block checks must be complete before they are useful, so unlike inbox and
// outbox traversal this is not incremental. A failure fetching the first
// batch downgrades to an empty set — a missing blocklist must not stop
// ordinary operation — while failures on continuation pages propagate. The
// drain stops at the first page with no items.
func (c *Client) BlockedIDs(ctx context.Context) (map[string]struct{}, error) {
	blocked := make(map[string]struct{})
	stream := c.actor.BlockedURL()
	if stream == "" {
		c.log.Debug("actor advertises no blocklist stream")
		return blocked, nil
	}
	var cur Cursor
	items, err := c.Page(ctx, stream, &cur)
	if err != nil {
		c.log.Warn("blocklist unavailable, continuing with empty set", "url", stream, "error", err)
		return blocked, nil
	}
	for len(items) > 0 {
		for i := range items {
			if id := blockedID(&items[i]); id != "" {
				blocked[id] = struct{}{}
			}
		}
		if cur.Exhausted() {
			break
		}
		items, err = c.Page(ctx, stream, &cur)
		if err != nil {
			return nil, err
		}
	}
	return blocked, nil
}

// blockedID extracts the blocked actor from a blocklist entry, which may be
// a block activity or a bare actor reference.
func blockedID(o *activity.Object) string {
	if id := o.ObjectIRI(); id != "" {
		return id
	}
	return o.ID
}
