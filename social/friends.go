// Package social derives display-ready state from raw activities: the
// relationship status of each friend, and the normalized message feed.
// Everything here is a pure function over activity shapes. Derivation is
// total: malformed or unrecognized input degrades to StatusNone or a nil
// message, never an error, so one bad entry cannot fail a whole batch.
package social

import (
	"sort"
	"time"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/internal/algorithms"
)

// RelStatus is a point-in-time relationship status, recomputed from the
// latest relevant activity concerning an actor. The protocol is
// activity-sourced: there is no stored friendship record, only this
// projection.
type RelStatus string

const (
	StatusNone            RelStatus = "none"
	StatusRequestSent     RelStatus = "request-sent"
	StatusRequestReceived RelStatus = "request-received"
	StatusOnline          RelStatus = "friend-online"
	StatusOffline         RelStatus = "friend-offline"
)

// Friend pairs a derived status with the activity that produced it. The
// source is retained so later relationship operations (accept, reject,
// undo) can reference the exact object they must act on.
type Friend struct {
	Status  RelStatus
	ActorID string
	// Profile is the embedded actor document, when the activity carried
	// one inline.
	Profile   *activity.Object
	PlaceName string
	PlaceURL  string
	Published time.Time
	Source    activity.Object
}

// SourceRef returns a reference to the retained source activity, by id
// when it has one and embedded otherwise.
func (f *Friend) SourceRef() *activity.Ref {
	if f.Source.ID != "" {
		return activity.IRIRef(f.Source.ID)
	}
	src := f.Source
	return activity.ObjectRef(&src)
}

// DeriveFriend maps one activity to a relationship status plus its
// presentation fields.
//
// Arrive means the friend is online, with the location taken from the
// target. Leave and Accept mean offline. A follow carrying an embedded
// actor is an incoming request; a follow carrying an embedded object is
// one we sent, and the subject is that object, not the actor. Anything
// else derives no relationship.
func DeriveFriend(o activity.Object) Friend {
	f := Friend{
		Status:    StatusNone,
		ActorID:   o.ActorIRI(),
		Profile:   o.Actor.Embedded(),
		Published: o.Timestamp(),
		Source:    o,
	}
	kind, ok := o.Kind()
	if !ok {
		return f
	}
	switch kind {
	case activity.Arrive:
		f.Status = StatusOnline
		if place := o.Target.Embedded(); place != nil {
			f.PlaceName = place.Name
			f.PlaceURL = place.URLString()
		} else {
			f.PlaceURL = o.TargetIRI()
		}
	case activity.Leave, activity.Accept:
		f.Status = StatusOffline
	case activity.Follow:
		if subject := o.Actor.Embedded(); subject != nil && subject.ID != "" {
			f.Status = StatusRequestReceived
			f.ActorID = subject.ID
			f.Profile = subject
		} else if subject := o.Object.Embedded(); subject != nil && subject.ID != "" {
			f.Status = StatusRequestSent
			f.ActorID = subject.ID
			f.Profile = subject
		}
	}
	return f
}

// FriendList assembles the friend list from a friends collection.
// Rejected or withdrawn relationships (Reject activities) never appear.
// The rest derive a status each; entries deriving none are dropped. Online
// friends sort before everyone else, ties broken by most recent activity.
func FriendList(items []activity.Object) []Friend {
	kept := algorithms.Filter(items, func(o activity.Object) bool {
		kind, ok := o.Kind()
		return !ok || kind != activity.Reject
	})
	friends := algorithms.Filter(algorithms.Map(kept, DeriveFriend), func(f Friend) bool {
		return f.Status != StatusNone
	})
	sort.SliceStable(friends, func(i, j int) bool {
		online := friends[i].Status == StatusOnline
		if online != (friends[j].Status == StatusOnline) {
			return online
		}
		return friends[i].Published.After(friends[j].Published)
	})
	return friends
}
