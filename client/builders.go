package client

import (
	"fmt"

	"github.com/foyerspace/foyer/activity"
)

// Audience selects the addressing rule applied to built activities.
type Audience string

const (
	// AudienceDirect addresses only the explicit recipients.
	AudienceDirect Audience = "direct"
	// AudienceFriends also addresses the actor's followers collection.
	AudienceFriends Audience = "friends"
	// AudiencePublic also addresses the followers collection and the
	// public sentinel.
	AudiencePublic Audience = "public"
)

// address applies the deterministic addressing rule: the explicit
// addressees, plus the followers collection for friends and public
// audiences, plus the public sentinel for public.
func (c *Client) address(aud Audience, to []string) activity.List {
	list := make(activity.List, 0, len(to)+2)
	list = append(list, to...)
	switch aud {
	case AudienceFriends, AudiencePublic:
		if c.actor.Followers != "" {
			list = append(list, c.actor.Followers)
		}
	}
	if aud == AudiencePublic {
		list = append(list, activity.Public)
	}
	return list
}

// Follow builds a relationship request addressed at the target actor.
func (c *Client) Follow(targetID string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Follow),
		Object: activity.IRIRef(targetID),
		To:     activity.List{targetID},
	}
}

// Accept builds an acceptance of a previously received activity.
func (c *Client) Accept(object *activity.Ref, to ...string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Accept),
		Object: object,
		To:     activity.List(to),
	}
}

// Reject builds a rejection or withdrawal of a relationship. The object may
// reference the offending activity, or an actor identifier when the exact
// activity is unknown and the remote server must resolve it.
func (c *Client) Reject(object *activity.Ref, to ...string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Reject),
		Object: object,
		To:     activity.List(to),
	}
}

// Undo builds a retraction of one of the session actor's own activities.
func (c *Client) Undo(object *activity.Ref, to ...string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Undo),
		Object: object,
		To:     activity.List(to),
	}
}

// Block builds a block of the target actor. Blocks carry no recipients; the
// server must not deliver them to the blocked party.
func (c *Client) Block(targetID string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Block),
		Object: activity.IRIRef(targetID),
	}
}

// Add builds an addition of an object into one of the session actor's
// collections, such as the avatars stream.
func (c *Client) Add(objectID, collectionID string) *activity.Object {
	return &activity.Object{
		Type:   string(activity.Add),
		Object: activity.IRIRef(objectID),
		Target: activity.IRIRef(collectionID),
	}
}

// SetPlace replaces the session's current venue. Exactly one place is
// active at a time; replacing it is a move, not a mutation of the prior
// place.
func (c *Client) SetPlace(place *activity.Object) { c.place = place }

// Place returns the current venue, or nil before the first SetPlace.
func (c *Client) Place() *activity.Object { return c.place }

// Arrive announces presence at the current place to the actor's followers.
// The place is embedded as the target so receivers can show where without
// another fetch.
func (c *Client) Arrive() *activity.Object {
	return c.presenceActivity(activity.Arrive, "arrived at")
}

// Leave retracts presence at the current place.
func (c *Client) Leave() *activity.Object {
	return c.presenceActivity(activity.Leave, "left")
}

func (c *Client) presenceActivity(kind activity.Type, verb string) *activity.Object {
	act := &activity.Object{
		Type: string(kind),
		To:   c.address(AudienceFriends, nil),
	}
	if place := c.place; place != nil {
		act.Target = activity.ObjectRef(place)
		act.Summary = fmt.Sprintf("%s %s %s", c.displayName(), verb, placeAnchor(place))
		act.Audience = place.Audience
	}
	return act
}

// Note builds a chat message wrapped in a create envelope.
func (c *Client) Note(content string, aud Audience, to ...string) *activity.Object {
	return c.Create(&activity.Object{
		Type:    string(activity.Note),
		Content: content,
	}, aud, to...)
}

// Image builds a media post for a picture. The object's url member is
// assigned by the server once the binary is stored; see PostMedia.
func (c *Client) Image(name string, aud Audience, to ...string) *activity.Object {
	return c.Create(&activity.Object{
		Type: string(activity.Image),
		Name: name,
	}, aud, to...)
}

// Video builds a media post for a clip.
func (c *Client) Video(name string, aud Audience, to ...string) *activity.Object {
	return c.Create(&activity.Object{
		Type: string(activity.Video),
		Name: name,
	}, aud, to...)
}

// Model builds a media post for a 3d asset, such as an avatar.
func (c *Client) Model(name string, aud Audience, to ...string) *activity.Object {
	return c.Create(&activity.Object{
		Type: string(activity.Model),
		Name: name,
	}, aud, to...)
}

// Create wraps obj in a create envelope with the standard addressing rule
// applied to both envelope and object.
func (c *Client) Create(obj *activity.Object, aud Audience, to ...string) *activity.Object {
	list := c.address(aud, to)
	obj.To = list
	return &activity.Object{
		Type:   string(activity.Create),
		Object: activity.ObjectRef(obj),
		To:     list,
	}
}

// UpdateProfile builds a profile update broadcast to followers. Empty
// fields are omitted from the wire object so the server leaves them
// unchanged.
func (c *Client) UpdateProfile(name, summary string) *activity.Object {
	return &activity.Object{
		Type: string(activity.Update),
		Object: activity.ObjectRef(&activity.Object{
			ID:      c.actor.ID,
			Type:    c.actor.Type,
			Name:    name,
			Summary: summary,
		}),
		To: c.address(AudienceFriends, nil),
	}
}

func (c *Client) displayName() string {
	if c.actor.Name != "" {
		return c.actor.Name
	}
	return c.actor.PreferredUsername
}

func placeAnchor(place *activity.Object) string {
	name := place.Name
	if name == "" {
		name = place.ID
	}
	if u := place.URLString(); u != "" {
		return fmt.Sprintf("<a href=%q>%s</a>", u, name)
	}
	return name
}
