package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foyerspace/foyer/activity"
)

// testActor builds a session actor homed at origin with every capability
// advertised.
func testActor(origin string) *activity.Actor {
	return &activity.Actor{
		ID:                origin + "/u/alice",
		Type:              "Person",
		Name:              "Alice",
		PreferredUsername: "alice",
		Inbox:             origin + "/u/alice/inbox",
		Outbox:            origin + "/u/alice/outbox",
		Followers:         origin + "/u/alice/followers",
		Endpoints: &activity.Endpoints{
			ProxyURL:    origin + "/proxy",
			UploadMedia: origin + "/media",
			Friends:     origin + "/u/alice/friends",
		},
		Streams: &activity.Streams{
			Blocked: origin + "/u/alice/blocked",
		},
	}
}

func testClient(t *testing.T, origin string, opts ...Option) *Client {
	t.Helper()
	cred := Credential{
		Token:      "token-123",
		HomeServer: origin,
		Scopes:     DefaultScopes,
	}
	c, err := New(cred, testActor(origin), opts...)
	require.NoError(t, err)
	return c
}

// countingTransport counts round trips so tests can assert that an
// operation performed no network I/O.
type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (ct *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ct.calls++
	next := ct.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

func TestFetchDirect(t *testing.T) {
	require := require.New(t)

	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(`{"id": "` + "http://" + r.Host + r.URL.Path + `", "type": "Note", "content": "hi"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	obj, err := c.FetchObject(context.Background(), srv.URL+"/o/abc")
	require.NoError(err)
	require.Equal("Note", obj.Type)
	require.Equal("hi", obj.Content)
	require.Equal("Bearer token-123", gotAuth)
	require.Equal(activity.ContentType, gotAccept)
}

func TestFetchProxied(t *testing.T) {
	require := require.New(t)

	var proxiedID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/proxy":
			require.Equal(http.MethodPost, r.Method)
			require.NoError(r.ParseForm())
			proxiedID = r.PostForm.Get("id")
			w.Header().Set("Content-Type", "application/activity+json")
			w.Write([]byte(`{"id": "` + proxiedID + `", "type": "Person", "name": "Far Away"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	obj, err := c.FetchObject(context.Background(), "https://far.example.com/u/bob")
	require.NoError(err)
	require.Equal("https://far.example.com/u/bob", proxiedID)
	require.Equal("Far Away", obj.Name)
}

func TestFetchUntrustedWithoutProxy(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))
	c.actor.Endpoints = nil

	_, err := c.FetchObject(context.Background(), "https://far.example.com/u/bob")
	capErr := new(CapabilityError)
	require.ErrorAs(err, &capErr)
	require.Equal("proxy", capErr.Capability)
	require.Zero(ct.calls)
}

func TestFetchUntrustedProxyEndpoint(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))
	c.actor.Endpoints.ProxyURL = "https://evil.example.com/proxy"

	_, err := c.FetchObject(context.Background(), "https://far.example.com/u/bob")
	require.ErrorIs(err, ErrInvalidTarget)
	require.Zero(ct.calls)
}

func TestFetchRemoteError(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchObject(context.Background(), srv.URL+"/o/abc")
	remote := new(RemoteError)
	require.ErrorAs(err, &remote)
	require.Equal(http.StatusBadGateway, remote.Status)
	require.Equal(srv.URL+"/o/abc", remote.URL)
	require.Equal("gone fishing", remote.Body)
}

func TestPostActivity(t *testing.T) {
	require := require.New(t)

	var posted []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("/u/alice/outbox", r.URL.Path)
		require.Equal(http.MethodPost, r.Method)
		posted, _ = io.ReadAll(r.Body)
		w.Header().Set("Location", "http://"+r.Host+"/o/created1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	loc, err := c.PostActivity(context.Background(), c.Follow("https://far.example.com/u/bob"))
	require.NoError(err)
	require.Equal("http://"+srv.Listener.Addr().String()+"/o/created1", loc)
	require.Contains(string(posted), `"type":"Follow"`)
	require.Contains(string(posted), `"actor":"`+srv.URL+`/u/alice"`)
	require.Contains(string(posted), activity.Context)
}

func TestPostActivityUntrustedOutbox(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))
	c.actor.Outbox = "https://far.example.com/u/alice/outbox"

	_, err := c.PostActivity(context.Background(), c.Follow("https://far.example.com/u/bob"))
	require.ErrorIs(err, ErrInvalidOutbox)
	require.Zero(ct.calls, "trust failures must be raised before any network I/O")
}

func TestPostActivityForeignActor(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))

	act := c.Follow("https://far.example.com/u/bob")
	act.Actor = activity.IRIRef("https://hub.example.com/u/mallory")
	_, err := c.PostActivity(context.Background(), act)
	require.ErrorIs(err, ErrActorMismatch)
	require.Zero(ct.calls)
}

func TestRoundTripRefusesUntrustedOrigin(t *testing.T) {
	require := require.New(t)

	ct := &countingTransport{}
	c := testClient(t, "https://hub.example.com", WithTransport(ct))

	req, err := http.NewRequest(http.MethodGet, "https://far.example.com/u/bob", nil)
	require.NoError(err)
	_, err = c.RoundTrip(req)
	require.ErrorIs(err, ErrInvalidTarget)
	require.Zero(ct.calls)
}

func TestHasScope(t *testing.T) {
	require := require.New(t)

	cred := Credential{Scopes: []Scope{ScopeViewFriends, ScopePostLocation}}
	require.True(cred.HasScope(ScopePostLocation))
	require.False(cred.HasScope(ScopeAddBlocks))
	require.False(Credential{}.HasScope(ScopePostLocation))
}

func TestNewRejectsBadConfig(t *testing.T) {
	require := require.New(t)

	_, err := New(Credential{HomeServer: "https://hub.example.com"}, nil)
	require.Error(err)

	_, err = New(Credential{HomeServer: "nope"}, testActor("https://hub.example.com"))
	require.Error(err)

	_, err = New(
		Credential{HomeServer: "https://hub.example.com"},
		testActor("https://hub.example.com"),
		WithLocalServer("::bad::"),
	)
	require.Error(err)
}

func TestBootstrap(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("/u/alice", r.URL.Path)
		require.Equal("Bearer tok-resume", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(`{"id": "http://` + r.Host + `/u/alice", "type": "Person", "preferredUsername": "alice"}`))
	}))
	defer srv.Close()

	cred := Credential{
		Token:      "tok-resume",
		HomeServer: srv.URL,
		ActorID:    srv.URL + "/u/alice",
	}
	c, err := Bootstrap(context.Background(), cred)
	require.NoError(err)
	require.Equal("alice", c.Actor().PreferredUsername)

	_, err = Bootstrap(context.Background(), Credential{Token: "t", HomeServer: srv.URL})
	require.Error(err, "a credential without an actor cannot bootstrap")
}

func TestFetchRejectsWrongContentType(t *testing.T) {
	// a trusted fetch that answers with a non-JSON content type must fail
	// rather than hand garbage to the decoder.
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not activity json</html>"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchObject(context.Background(), srv.URL+"/o/abc")
	require.Error(err)
	var remote *RemoteError
	require.False(errors.As(err, &remote), "content-type failures are not remote errors")
}
