package foyer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/internal/algorithms"
	"github.com/foyerspace/foyer/social"
)

// Friends returns the friend list, online friends first. Friendship is a
// projection over the server's friends stream, not a stored record, so
// every call reflects the latest activity. Servers without a friends
// endpoint return a CapabilityError.
func (s *Session) Friends(ctx context.Context) ([]social.Friend, error) {
	c, err := s.sessionClient()
	if err != nil {
		return nil, err
	}
	items, err := s.friendActivities(ctx, c)
	if err != nil {
		return nil, err
	}
	return social.FriendList(items), nil
}

// friendActivities drains the friends stream completely. The status
// projection takes the latest activity per actor, so a partial drain
// would misreport relationships; unlike the feed this is never
// incremental.
func (s *Session) friendActivities(ctx context.Context, c *client.Client) ([]activity.Object, error) {
	stream := c.Actor().FriendsURL()
	if stream == "" {
		return nil, &client.CapabilityError{Capability: "friends"}
	}
	var (
		all []activity.Object
		cur client.Cursor
	)
	for !cur.Exhausted() {
		items, err := c.Page(ctx, stream, &cur)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
	}
	return all, nil
}

// Feed returns the next batch of inbox activities as display-ready
// messages, oldest batch last fetched first. Entries from blocked actors
// are dropped. Successive calls continue where the previous one stopped;
// ResetFeed starts over from the newest.
func (s *Session) Feed(ctx context.Context) ([]social.Message, error) {
	c, err := s.sessionClient()
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockedSet(ctx, c)
	if err != nil {
		return nil, err
	}
	items, err := c.InboxPage(ctx)
	if err != nil {
		return nil, err
	}
	kept := algorithms.Filter(items, func(o activity.Object) bool {
		_, drop := blocked[o.ActorIRI()]
		return !drop
	})
	return social.Feed(kept, s.sanitizer), nil
}

// ResetFeed re-arms inbox pagination so the next Feed call starts over.
func (s *Session) ResetFeed() error {
	c, err := s.sessionClient()
	if err != nil {
		return err
	}
	c.ResetInbox()
	return nil
}

// Blocked fetches the actors the session has blocked, sorted for stable
// display, and refreshes the feed filter with them.
func (s *Session) Blocked(ctx context.Context) ([]string, error) {
	c, err := s.sessionClient()
	if err != nil {
		return nil, err
	}
	blocked, err := c.BlockedIDs(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.blocked = blocked
	s.mu.Unlock()

	ids := make([]string, 0, len(blocked))
	for id := range blocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// blockedSet returns the cached blocklist, fetching it on first use
// after login. Block keeps the cache current; Blocked refreshes it.
func (s *Session) blockedSet(ctx context.Context, c *client.Client) (map[string]struct{}, error) {
	s.mu.Lock()
	cached := s.blocked
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	blocked, err := c.BlockedIDs(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.blocked = blocked
	s.mu.Unlock()
	return blocked, nil
}

// AddFriend makes target a friend. A pending incoming request is
// accepted by referencing the retained follow; anyone else is sent a
// fresh follow. target is an identifier or a user@host handle.
func (s *Session) AddFriend(ctx context.Context, target string) error {
	c, err := s.sessionClient()
	if err != nil {
		return err
	}
	id, err := s.resolveActor(ctx, target)
	if err != nil {
		return err
	}
	if id == c.Actor().ID {
		return fmt.Errorf("cannot befriend yourself")
	}
	if f, ok := s.findFriend(ctx, c, id); ok && f.Status == social.StatusRequestReceived {
		_, err = c.PostActivity(ctx, c.Accept(f.SourceRef(), id))
		return err
	}
	_, err = c.PostActivity(ctx, c.Follow(id))
	return err
}

// RemoveFriend severs the relationship with target whatever its current
// state: an incoming request is rejected, an outgoing one withdrawn,
// anything else rejected by actor id and resolved remotely.
func (s *Session) RemoveFriend(ctx context.Context, target string) error {
	c, err := s.sessionClient()
	if err != nil {
		return err
	}
	id, err := s.resolveActor(ctx, target)
	if err != nil {
		return err
	}
	var act *activity.Object
	f, ok := s.findFriend(ctx, c, id)
	switch {
	case ok && f.Status == social.StatusRequestReceived:
		act = c.Reject(f.SourceRef(), id)
	case ok && f.Status == social.StatusRequestSent:
		act = c.Undo(f.SourceRef(), id)
	default:
		act = c.Reject(activity.IRIRef(id), id)
	}
	_, err = c.PostActivity(ctx, act)
	return err
}

// findFriend looks target up in the relationship projection. Lookup
// failures degrade to not-found so the caller's fallback path still
// runs; a server without a friends endpoint is the common case.
func (s *Session) findFriend(ctx context.Context, c *client.Client, id string) (social.Friend, bool) {
	items, err := s.friendActivities(ctx, c)
	if err != nil {
		var capa *client.CapabilityError
		if !errors.As(err, &capa) {
			s.log.Warn("friend lookup failed", "actor", id, "error", err)
		}
		return social.Friend{}, false
	}
	for _, f := range social.FriendList(items) {
		if f.ActorID == id {
			return f, true
		}
	}
	return social.Friend{}, false
}

// Block stops target's activities from reaching the session: the server
// withholds future deliveries and the feed filter drops anything already
// fetched. Blocks are not announced to the blocked party.
func (s *Session) Block(ctx context.Context, target string) error {
	c, err := s.sessionClient()
	if err != nil {
		return err
	}
	id, err := s.resolveActor(ctx, target)
	if err != nil {
		return err
	}
	if _, err := c.PostActivity(ctx, c.Block(id)); err != nil {
		return err
	}
	s.mu.Lock()
	// only extend an already-fetched cache; a nil cache must stay nil so
	// the first read still fetches the complete set.
	if s.blocked != nil {
		s.blocked[id] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

// SendChat posts a chat message under the given audience rule, plus any
// explicit recipients. Returns the location of the created activity.
func (s *Session) SendChat(ctx context.Context, text string, aud client.Audience, to ...string) (string, error) {
	c, err := s.sessionClient()
	if err != nil {
		return "", err
	}
	return c.PostActivity(ctx, c.Note(text, aud, to...))
}

// SendMedia shares a file with a caption. Images are posted with a
// synthesized thumbnail icon; a failed synthesis posts the image alone.
// Returns the location of the created media object.
func (s *Session) SendMedia(ctx context.Context, caption string, file client.Upload, aud client.Audience, to ...string) (string, error) {
	c, err := s.sessionClient()
	if err != nil {
		return "", err
	}
	var (
		act  *activity.Object
		icon *client.Upload
	)
	switch {
	case strings.HasPrefix(file.Type, "image/"):
		act = c.Image(caption, aud, to...)
		if thumb, err := client.Thumbnail(file.Data); err == nil {
			icon = &thumb
		} else {
			s.log.Debug("thumbnail synthesis failed", "file", file.Name, "error", err)
		}
	case strings.HasPrefix(file.Type, "video/"):
		act = c.Video(caption, aud, to...)
	case strings.HasPrefix(file.Type, "model/"):
		act = c.Model(caption, aud, to...)
	default:
		return "", fmt.Errorf("cannot share %q: unsupported media type %q", file.Name, file.Type)
	}
	return c.PostMedia(ctx, act, file, icon)
}

// UpdateProfile changes the session actor's display name and bio; empty
// fields are left unchanged. The actor document is re-fetched afterwards
// so later operations see the new profile.
func (s *Session) UpdateProfile(ctx context.Context, name, summary string) error {
	c, err := s.sessionClient()
	if err != nil {
		return err
	}
	if _, err := c.PostActivity(ctx, c.UpdateProfile(name, summary)); err != nil {
		return err
	}
	actor, err := c.RefreshActor(ctx)
	if err != nil {
		s.log.Warn("profile updated but re-fetch failed, local copy is stale", "error", err)
		return nil
	}
	s.store.SetActor(ctx, actor)
	return nil
}

// OnMessage registers fn for inbox activities pushed over the event
// stream, normalized to display form. Undisplayable activities and
// blocked senders produce no call. fn runs on the channel's event
// goroutine and must not block.
func (s *Session) OnMessage(fn func(social.Message)) (cancel func(), err error) {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return nil, ErrNotConnected
	}
	return ch.OnInbox(func(o activity.Object) {
		s.mu.Lock()
		_, dropped := s.blocked[o.ActorIRI()]
		s.mu.Unlock()
		if dropped {
			return
		}
		if msgs := social.Feed([]activity.Object{o}, s.sanitizer); len(msgs) == 1 {
			fn(msgs[0])
		}
	}), nil
}

// OnFriendsChanged registers fn for server notice that the friend
// projection changed. fn runs on the channel's event goroutine; fetch
// the new list elsewhere.
func (s *Session) OnFriendsChanged(fn func()) (cancel func(), err error) {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return nil, ErrNotConnected
	}
	return ch.OnFriendsChanged(fn), nil
}
