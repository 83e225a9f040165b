package nodeinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
)

func serveNode(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/.well-known/nodeinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{
			"links": []any{
				map[string]any{
					"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
					"href": ts.URL + "/nodeinfo/2.0",
				},
				map[string]any{
					"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
					"href": ts.URL + "/nodeinfo/2.1",
				},
			},
		})
	})
	mux.HandleFunc("/nodeinfo/2.1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{
			"version":           "2.1",
			"software":          map[string]any{"name": "foyerd", "version": "1.2.0"},
			"openRegistrations": true,
		})
	})
	mux.HandleFunc("/nodeinfo/2.0", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{
			"version":  "2.0",
			"software": map[string]any{"name": "foyerd", "version": "1.2.0"},
		})
	})
	ts = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestFetch(t *testing.T) {
	req := require.New(t)
	ts := serveNode(t)

	node, err := Fetch(context.Background(), ts.URL)
	req.NoError(err)
	req.Equal("2.1", node.Version, "the newest advertised schema wins")
	req.Equal("foyerd", node.Software.Name)
	req.Equal("1.2.0", node.Software.Version)
	req.True(node.OpenRegistrations)

	// trailing slash on the origin is tolerated
	node, err = Fetch(context.Background(), ts.URL+"/")
	req.NoError(err)
	req.Equal("2.1", node.Version)
}

func TestFetchNoIndex(t *testing.T) {
	req := require.New(t)
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	_, err := Fetch(context.Background(), ts.URL)
	req.Error(err)
}

func TestFetchEmptyIndex(t *testing.T) {
	req := require.New(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.MarshalFull(w, map[string]any{"links": []any{}})
	}))
	t.Cleanup(ts.Close)

	_, err := Fetch(context.Background(), ts.URL)
	req.ErrorContains(err, "no schema links")
}

func TestPick(t *testing.T) {
	req := require.New(t)
	tc := []struct {
		name  string
		links []link
		want  string
	}{
		{
			name: "PrefersNewest",
			links: []link{
				{Rel: "http://nodeinfo.diaspora.software/ns/schema/1.0", Href: "https://a.example/1.0"},
				{Rel: "http://nodeinfo.diaspora.software/ns/schema/2.1", Href: "https://a.example/2.1"},
				{Rel: "http://nodeinfo.diaspora.software/ns/schema/2.0", Href: "https://a.example/2.0"},
			},
			want: "https://a.example/2.1",
		},
		{
			name: "SkipsEmptyHrefs",
			links: []link{
				{Rel: "http://nodeinfo.diaspora.software/ns/schema/2.1"},
				{Rel: "http://nodeinfo.diaspora.software/ns/schema/2.0", Href: "https://a.example/2.0"},
			},
			want: "https://a.example/2.0",
		},
		{
			name:  "UnknownRelStillUsable",
			links: []link{{Rel: "something else", Href: "https://a.example/x"}},
			want:  "https://a.example/x",
		},
		{name: "Empty", links: nil, want: ""},
	}
	for _, c := range tc {
		t.Run(c.name, func(t *testing.T) {
			req.Equal(c.want, pick(c.links))
		})
	}
}
