// package store persists the session credential and caches what the
// client learns about the network around it: which actor a handle
// resolved to, actor documents, and what software a server runs.
package store

import (
	"context"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
)

// Credentials persists the session credential between runs.
type Credentials interface {
	// Load returns the most recently saved credential. ok reports
	// whether one was found.
	Load(ctx context.Context) (cred client.Credential, ok bool, err error)
	Save(ctx context.Context, cred client.Credential) error
	Clear(ctx context.Context) error
}

// Directory caches lookups that are expensive or rude to repeat:
// webfinger resolutions, actor documents and node metadata. Misses are
// normal; implementations degrade to a miss rather than failing a read.
type Directory interface {
	ActorID(ctx context.Context, handle string) (string, bool)
	SetActorID(ctx context.Context, handle, actorID string)
	Actor(ctx context.Context, actorID string) (*activity.Actor, bool)
	SetActor(ctx context.Context, actor *activity.Actor)
	Node(ctx context.Context, origin string) (Node, bool)
	SetNode(ctx context.Context, node Node)
}

// Store is the full persistence surface a session uses.
type Store interface {
	Credentials
	Directory
}

// Node is what the client has learned about a server origin.
type Node struct {
	Origin   string `json:"origin"`
	Software string `json:"software,omitempty"`
	Version  string `json:"version,omitempty"`
}
