package social

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foyerspace/foyer/activity"
)

func stamp(t time.Time) string { return t.UTC().Format(activity.TimeFormat) }

func TestDeriveFriend(t *testing.T) {
	base := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	bob := &activity.Object{
		ID:   "https://hub.example.com/u/bob",
		Type: "Person",
		Name: "Bob",
	}

	tc := []struct {
		name   string
		in     activity.Object
		status RelStatus
		actor  string
	}{
		{
			name: "ArriveIsOnline",
			in: activity.Object{
				Type:      "Arrive",
				Actor:     activity.IRIRef(bob.ID),
				Target:    activity.ObjectRef(activity.NewPlace("https://hub.example.com/o/lobby", "Lobby", "https://hub.example.com/lobby")),
				Published: stamp(base),
			},
			status: StatusOnline,
			actor:  bob.ID,
		},
		{
			name: "LeaveIsOffline",
			in: activity.Object{
				Type:      "Leave",
				Actor:     activity.IRIRef(bob.ID),
				Published: stamp(base),
			},
			status: StatusOffline,
			actor:  bob.ID,
		},
		{
			name: "AcceptIsOffline",
			in: activity.Object{
				Type:   "Accept",
				Actor:  activity.ObjectRef(bob),
				Object: activity.IRIRef("https://hub.example.com/s/follow-1"),
			},
			status: StatusOffline,
			actor:  bob.ID,
		},
		{
			name: "FollowWithEmbeddedActorIsIncoming",
			in: activity.Object{
				Type:   "Follow",
				Actor:  activity.ObjectRef(bob),
				Object: activity.IRIRef("https://hub.example.com/u/alice"),
			},
			status: StatusRequestReceived,
			actor:  bob.ID,
		},
		{
			name: "FollowWithEmbeddedObjectIsOutgoing",
			in: activity.Object{
				Type:   "Follow",
				Actor:  activity.IRIRef("https://hub.example.com/u/alice"),
				Object: activity.ObjectRef(bob),
			},
			status: StatusRequestSent,
			actor:  bob.ID,
		},
		{
			name: "FollowWithBareReferencesIsNone",
			in: activity.Object{
				Type:   "Follow",
				Actor:  activity.IRIRef("https://hub.example.com/u/alice"),
				Object: activity.IRIRef(bob.ID),
			},
			status: StatusNone,
			actor:  "https://hub.example.com/u/alice",
		},
		{
			name:   "UnrecognisedTypeIsNone",
			in:     activity.Object{Type: "Question"},
			status: StatusNone,
		},
		{
			name:   "EmptyObjectIsNone",
			in:     activity.Object{},
			status: StatusNone,
		},
		{
			name: "LowercaseTypeStillDispatches",
			in: activity.Object{
				Type:  "arrive",
				Actor: activity.IRIRef(bob.ID),
			},
			status: StatusOnline,
			actor:  bob.ID,
		},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got := DeriveFriend(tt.in)
			req.Equal(tt.status, got.Status)
			req.Equal(tt.actor, got.ActorID)
			req.Equal(tt.in, got.Source)
		})
	}
}

func TestDeriveFriendPlaceFields(t *testing.T) {
	req := require.New(t)

	place := activity.NewPlace("https://hub.example.com/o/lobby", "Lobby", "https://hub.example.com/lobby")
	got := DeriveFriend(activity.Object{
		Type:   "Arrive",
		Actor:  activity.IRIRef("https://hub.example.com/u/bob"),
		Target: activity.ObjectRef(place),
	})
	req.Equal("Lobby", got.PlaceName)
	req.Equal("https://hub.example.com/lobby", got.PlaceURL)

	// a bare target reference still yields a link, just no name.
	got = DeriveFriend(activity.Object{
		Type:   "Arrive",
		Actor:  activity.IRIRef("https://hub.example.com/u/bob"),
		Target: activity.IRIRef("https://hub.example.com/o/lobby"),
	})
	req.Empty(got.PlaceName)
	req.Equal("https://hub.example.com/o/lobby", got.PlaceURL)
}

func TestDeriveFriendOutgoingSubject(t *testing.T) {
	req := require.New(t)

	carol := &activity.Object{
		ID:                "https://far.example.org/u/carol",
		Type:              "Person",
		PreferredUsername: "carol",
	}
	got := DeriveFriend(activity.Object{
		Type:   "Follow",
		Actor:  activity.IRIRef("https://hub.example.com/u/alice"),
		Object: activity.ObjectRef(carol),
	})
	req.Equal(StatusRequestSent, got.Status)
	req.Equal(carol.ID, got.ActorID)
	req.NotNil(got.Profile)
	req.Equal("carol", got.Profile.PreferredUsername)
}

func TestFriendListOrdering(t *testing.T) {
	req := require.New(t)

	t1 := time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t1.Add(2 * time.Hour)
	t4 := t1.Add(3 * time.Hour)

	person := func(id string) *activity.Object {
		return &activity.Object{ID: id, Type: "Person"}
	}
	items := []activity.Object{
		{Type: "Leave", Actor: activity.IRIRef("https://hub.example.com/u/t1"), Published: stamp(t1)},
		{Type: "Arrive", Actor: activity.IRIRef("https://hub.example.com/u/t2"), Published: stamp(t2)},
		{Type: "Arrive", Actor: activity.IRIRef("https://hub.example.com/u/t3"), Published: stamp(t3)},
		{Type: "Follow", Actor: activity.IRIRef("https://hub.example.com/u/me"), Object: activity.ObjectRef(person("https://hub.example.com/u/t4")), Published: stamp(t4)},
	}

	got := FriendList(items)
	req.Len(got, 4)

	statuses := make([]RelStatus, len(got))
	actors := make([]string, len(got))
	for i, f := range got {
		statuses[i] = f.Status
		actors[i] = f.ActorID
	}
	req.Equal([]RelStatus{StatusOnline, StatusOnline, StatusRequestSent, StatusOffline}, statuses)
	req.Equal([]string{
		"https://hub.example.com/u/t3",
		"https://hub.example.com/u/t2",
		"https://hub.example.com/u/t4",
		"https://hub.example.com/u/t1",
	}, actors)
}

func TestFriendListExcludesRejects(t *testing.T) {
	req := require.New(t)

	items := []activity.Object{
		{Type: "Reject", Actor: activity.IRIRef("https://hub.example.com/u/bob"), Object: activity.IRIRef("https://hub.example.com/s/follow-1")},
		{Type: "Arrive", Actor: activity.IRIRef("https://hub.example.com/u/carol")},
	}
	got := FriendList(items)
	req.Len(got, 1)
	req.Equal("https://hub.example.com/u/carol", got[0].ActorID)

	// case-insensitive: a lowercase reject is still excluded.
	items[0].Type = "reject"
	got = FriendList(items)
	req.Len(got, 1)
}

func TestFriendListDropsUnderivable(t *testing.T) {
	req := require.New(t)

	items := []activity.Object{
		{Type: "Question", Actor: activity.IRIRef("https://hub.example.com/u/bob")},
		{},
	}
	req.Empty(FriendList(items))
}

func TestSourceRef(t *testing.T) {
	req := require.New(t)

	withID := DeriveFriend(activity.Object{
		ID:    "https://hub.example.com/s/arrive-1",
		Type:  "Arrive",
		Actor: activity.IRIRef("https://hub.example.com/u/bob"),
	})
	ref := withID.SourceRef()
	req.Equal("https://hub.example.com/s/arrive-1", ref.IRI)
	req.Nil(ref.Object)

	anonymous := DeriveFriend(activity.Object{
		Type:  "Arrive",
		Actor: activity.IRIRef("https://hub.example.com/u/bob"),
	})
	ref = anonymous.SourceRef()
	req.Empty(ref.IRI)
	req.NotNil(ref.Object)
	req.Equal("Arrive", ref.Object.Type)
}
