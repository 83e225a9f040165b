package activity

import "strings"

// ActivityStreams context and content negotiation values.
// https://www.w3.org/TR/activitystreams-core/
const (
	Context     = "https://www.w3.org/ns/activitystreams"
	ContentType = `application/activity+json; profile="https://www.w3.org/ns/activitystreams"`

	// Public is the special collection that addresses an activity to the
	// world at large.
	// https://www.w3.org/TR/activitypub/#public-addressing
	Public = "https://www.w3.org/ns/activitystreams#Public"

	// TimeFormat is the timestamp layout used on the wire.
	TimeFormat = "2006-01-02T15:04:05Z"
)

// Type is a value from the fixed activity and object type vocabulary.
// Inbound data is folded onto these constants with ParseType so that type
// dispatch is always a switch over a known set.
type Type string

const (
	Accept   Type = "Accept"
	Add      Type = "Add"
	Announce Type = "Announce"
	Arrive   Type = "Arrive"
	Block    Type = "Block"
	Create   Type = "Create"
	Delete   Type = "Delete"
	Follow   Type = "Follow"
	Leave    Type = "Leave"
	Reject   Type = "Reject"
	Remove   Type = "Remove"
	Undo     Type = "Undo"
	Update   Type = "Update"

	Image  Type = "Image"
	Link   Type = "Link"
	Model  Type = "Model"
	Note   Type = "Note"
	Person Type = "Person"
	Place  Type = "Place"
	Video  Type = "Video"

	OrderedCollection     Type = "OrderedCollection"
	OrderedCollectionPage Type = "OrderedCollectionPage"
)

var vocabulary = []Type{
	Accept, Add, Announce, Arrive, Block, Create, Delete, Follow, Leave,
	Reject, Remove, Undo, Update,
	Image, Link, Model, Note, Person, Place, Video,
	OrderedCollection, OrderedCollectionPage,
}

// ParseType folds s case-insensitively onto the canonical vocabulary.
// Remote servers are not consistent about capitalisation, so all dispatch
// goes through here rather than comparing raw strings.
func ParseType(s string) (Type, bool) {
	for _, t := range vocabulary {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}
