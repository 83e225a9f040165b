package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// pageServer serves canned JSON documents keyed by request URI and counts
// the requests it answers.
type pageServer struct {
	pages map[string]string
	calls atomic.Int64
}

func (ps *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ps.calls.Add(1)
	body, ok := ps.pages[r.URL.RequestURI()]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/activity+json")
	w.Write([]byte(body))
}

func TestPageRootWithInlineItems(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/inbox"] = `{
		"type": "OrderedCollection",
		"orderedItems": [{"type": "Arrive", "actor": "https://far.example.com/u/bob"}]
	}`

	c := testClient(t, srv.URL)
	items, err := c.InboxPage(context.Background())
	require.NoError(err)
	require.Len(items, 1)
	require.Equal(int64(1), ps.calls.Load())

	// the root carried no next reference, so the collection is exhausted
	// and must not be re-fetched.
	items, err = c.InboxPage(context.Background())
	require.NoError(err)
	require.Empty(items)
	require.Equal(int64(1), ps.calls.Load(), "exhausted cursor must not hit the network")
}

func TestPageFollowsFirstReference(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/inbox"] = `{
		"type": "OrderedCollection",
		"totalItems": 3,
		"first": "` + srv.URL + `/u/alice/inbox?page=1"
	}`
	ps.pages["/u/alice/inbox?page=1"] = `{
		"type": "OrderedCollectionPage",
		"orderedItems": [{"type": "Arrive"}, {"type": "Leave"}],
		"next": "` + srv.URL + `/u/alice/inbox?page=2"
	}`
	ps.pages["/u/alice/inbox?page=2"] = `{
		"type": "OrderedCollectionPage",
		"orderedItems": [{"type": "Follow"}]
	}`

	c := testClient(t, srv.URL)

	// first call fetches the root, then follows first
	items, err := c.InboxPage(context.Background())
	require.NoError(err)
	require.Len(items, 2)
	require.Equal(int64(2), ps.calls.Load())

	// second call fetches the stored next page
	items, err = c.InboxPage(context.Background())
	require.NoError(err)
	require.Len(items, 1)
	require.Equal("Follow", items[0].Type)
	require.Equal(int64(3), ps.calls.Load())

	// the last page carried no next: exhausted, no further I/O
	items, err = c.InboxPage(context.Background())
	require.NoError(err)
	require.Empty(items)
	require.Equal(int64(3), ps.calls.Load())

	// an explicit reset re-arms the cursor
	c.ResetInbox()
	items, err = c.InboxPage(context.Background())
	require.NoError(err)
	require.Len(items, 2)
}

func TestPageIndependentCursors(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/inbox"] = `{"type": "OrderedCollection", "orderedItems": [{"type": "Arrive"}]}`
	ps.pages["/u/alice/outbox"] = `{"type": "OrderedCollection", "orderedItems": [{"type": "Leave"}, {"type": "Arrive"}]}`

	c := testClient(t, srv.URL)
	in, err := c.InboxPage(context.Background())
	require.NoError(err)
	out, err := c.OutboxPage(context.Background())
	require.NoError(err)
	require.Len(in, 1)
	require.Len(out, 2)
}

func TestBlockedIDsDrainsAllPages(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/blocked"] = `{
		"type": "OrderedCollection",
		"orderedItems": [
			"https://far.example.com/u/mallory",
			{"type": "Block", "object": "https://far.example.com/u/trudy"}
		],
		"next": "` + srv.URL + `/u/alice/blocked?page=2"
	}`
	ps.pages["/u/alice/blocked?page=2"] = `{
		"type": "OrderedCollectionPage",
		"orderedItems": ["https://far.example.com/u/eve"]
	}`

	c := testClient(t, srv.URL)
	blocked, err := c.BlockedIDs(context.Background())
	require.NoError(err)
	require.Equal(map[string]struct{}{
		"https://far.example.com/u/mallory": {},
		"https://far.example.com/u/trudy":   {},
		"https://far.example.com/u/eve":     {},
	}, blocked)
}

func TestBlockedIDsSoftFailsOnFirstFetch(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}} // nothing registered: 404
	srv := httptest.NewServer(ps)
	defer srv.Close()

	c := testClient(t, srv.URL)
	blocked, err := c.BlockedIDs(context.Background())
	require.NoError(err, "a missing blocklist must not stop ordinary operation")
	require.Empty(blocked)
}

func TestBlockedIDsPropagatesContinuationErrors(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/blocked"] = `{
		"type": "OrderedCollection",
		"orderedItems": ["https://far.example.com/u/mallory"],
		"next": "` + srv.URL + `/u/alice/blocked?page=2"
	}`
	// page 2 is not registered: the continuation fetch fails

	c := testClient(t, srv.URL)
	_, err := c.BlockedIDs(context.Background())
	remote := new(RemoteError)
	require.ErrorAs(err, &remote)
}

func TestBlockedIDsStopsOnEmptyPage(t *testing.T) {
	require := require.New(t)

	ps := &pageServer{pages: map[string]string{}}
	srv := httptest.NewServer(ps)
	defer srv.Close()
	ps.pages["/u/alice/blocked"] = `{
		"type": "OrderedCollection",
		"orderedItems": ["https://far.example.com/u/mallory"],
		"next": "` + srv.URL + `/u/alice/blocked?page=2"
	}`
	ps.pages["/u/alice/blocked?page=2"] = `{
		"type": "OrderedCollectionPage",
		"orderedItems": [],
		"next": "` + srv.URL + `/u/alice/blocked?page=3"
	}`

	c := testClient(t, srv.URL)
	blocked, err := c.BlockedIDs(context.Background())
	require.NoError(err)
	require.Len(blocked, 1)
	require.Equal(int64(2), ps.calls.Load(), "an empty page ends the drain")
}

func TestBlockedIDsWithoutStream(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))
	c.actor.Streams = nil

	blocked, err := c.BlockedIDs(context.Background())
	require.NoError(err)
	require.Empty(blocked)
	require.Zero(ct.calls)
}

func TestCursorStates(t *testing.T) {
	require := require.New(t)

	var cur Cursor
	require.False(cur.Started())
	require.False(cur.Exhausted())

	cur = Cursor{started: true, next: "https://hub.example.com/u/alice/inbox?page=2"}
	require.True(cur.Started())
	require.False(cur.Exhausted())

	cur = Cursor{started: true}
	require.True(cur.Exhausted())

	cur.Reset()
	require.False(cur.Started())
}
