package activity

import (
	"bytes"
	"time"

	"github.com/go-json-experiment/json"
)

// Object is the wire representation of an ActivityStreams object or
// activity. Remote servers produce these loosely, so optional members that
// may be either an IRI string or an embedded object are modelled as *Ref,
// timestamps stay strings until asked for, and accessors coerce rather than
// fail. Absent members stay zero.
// https://www.w3.org/TR/activitystreams-vocabulary/#dfn-object
type Object struct {
	AtContext any    `json:"@context,omitempty"`
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`

	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferredUsername,omitempty"`
	Summary           string `json:"summary,omitempty"`
	Content           string `json:"content,omitempty"`
	MediaType         string `json:"mediaType,omitempty"`
	Href              string `json:"href,omitempty"`
	URL               *Ref   `json:"url,omitempty"`
	Icon              *Ref   `json:"icon,omitempty"`

	Actor  *Ref `json:"actor,omitempty"`
	Object *Ref `json:"object,omitempty"`
	Target *Ref `json:"target,omitempty"`

	To       List   `json:"to,omitempty"`
	CC       List   `json:"cc,omitempty"`
	Audience string `json:"audience,omitempty"`

	InReplyTo *Ref   `json:"inReplyTo,omitempty"`
	Published string `json:"published,omitempty"`
	Updated   string `json:"updated,omitempty"`
}

// Kind folds the object's type onto the fixed vocabulary.
func (o *Object) Kind() (Type, bool) {
	return ParseType(o.Type)
}

// Timestamp parses the published member, trying the protocol layout first
// and RFC 3339 second. The zero time is returned for anything unparseable.
func (o *Object) Timestamp() time.Time {
	if o.Published == "" {
		return time.Time{}
	}
	if t, err := time.Parse(TimeFormat, o.Published); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, o.Published); err == nil {
		return t
	}
	return time.Time{}
}

// ActorIRI returns the actor's identifier whether the member is a bare IRI
// or an embedded object.
func (o *Object) ActorIRI() string { return o.Actor.IRIOrID() }

// ObjectIRI returns the object member's identifier.
func (o *Object) ObjectIRI() string { return o.Object.IRIOrID() }

// TargetIRI returns the target member's identifier.
func (o *Object) TargetIRI() string { return o.Target.IRIOrID() }

// URLString returns the url member as a plain string, following a Link's
// href when the member is embedded.
func (o *Object) URLString() string {
	if o.URL == nil {
		return ""
	}
	if o.URL.IRI != "" {
		return o.URL.IRI
	}
	if inner := o.URL.Object; inner != nil {
		if inner.Href != "" {
			return inner.Href
		}
		return inner.ID
	}
	return ""
}

// Ref is a reference to another object: either a bare IRI string or an
// embedded object. Inbound data uses both forms interchangeably.
type Ref struct {
	IRI    string
	Object *Object
}

// IRIOrID returns the bare IRI, or the embedded object's id. Safe on nil.
func (r *Ref) IRIOrID() string {
	switch {
	case r == nil:
		return ""
	case r.IRI != "":
		return r.IRI
	case r.Object != nil:
		return r.Object.ID
	default:
		return ""
	}
}

// Embedded returns the embedded object, or nil if the reference is a bare
// IRI. Safe on nil.
func (r *Ref) Embedded() *Object {
	if r == nil {
		return nil
	}
	return r.Object
}

// IRIRef makes a reference from a bare identifier.
func IRIRef(iri string) *Ref {
	return &Ref{IRI: iri}
}

// ObjectRef makes a reference embedding the given object.
func ObjectRef(o *Object) *Ref {
	return &Ref{Object: o}
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Object != nil {
		return json.Marshal(r.Object)
	}
	return json.Marshal(r.IRI)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.IRI)
	case '[':
		// some servers wrap single references in an array; take the first.
		var refs []Ref
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		if len(refs) > 0 {
			*r = refs[0]
		}
		return nil
	default:
		r.Object = new(Object)
		return json.Unmarshal(data, r.Object)
	}
}

// List is a recipient list. The wire form may be a single IRI, an array of
// IRIs, or an array of embedded objects; it always unmarshals to the
// identifiers.
type List []string

func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var refs []Ref
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		out := make(List, 0, len(refs))
		for i := range refs {
			if id := refs[i].IRIOrID(); id != "" {
				out = append(out, id)
			}
		}
		*l = out
		return nil
	}
	var ref Ref
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	if id := ref.IRIOrID(); id != "" {
		*l = List{id}
	}
	return nil
}
