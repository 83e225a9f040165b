package social

import (
	"fmt"
	"time"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/internal/algorithms"
)

// Category classifies a normalized message for display.
type Category string

const (
	CategoryChat   Category = "chat"
	CategoryMedia  Category = "media"
	CategoryStatus Category = "status"
	CategoryOther  Category = "other"
)

// MediaKind distinguishes renderable media attachments.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindModel MediaKind = "model"
)

// Message is one displayable feed entry. Raw and Markup are untrusted
// remote content; HTML is the sanitized form and the only field that
// should reach a renderer.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Timestamp  time.Time
	Category   Category

	Raw       string
	MediaKind MediaKind
	MediaURL  string
	Markup    string
	HTML      string
}

// DeriveMessage normalizes one activity into a message, or nil when the
// activity has nothing displayable.
//
// A create wrapping a note is chat; a create wrapping an image or video is
// media, with embeddable markup synthesized from the object's url. Arrive
// and leave surface their summary as status. Follows and accepts are
// status too, with a stock line when the summary is empty, except that a
// follow carrying an in-reply-to marker is the automatic half of a mutual
// follow-back and produces nothing. Everything else surfaces its summary
// as other, or nothing.
func DeriveMessage(o activity.Object) *Message {
	m := &Message{
		ID:        o.ID,
		SenderID:  o.ActorIRI(),
		Timestamp: o.Timestamp(),
	}
	if sender := o.Actor.Embedded(); sender != nil {
		m.SenderName = sender.Name
		if m.SenderName == "" {
			m.SenderName = sender.PreferredUsername
		}
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	kind, _ := o.Kind()
	switch kind {
	case activity.Create:
		if inner := o.Object.Embedded(); inner != nil {
			switch innerKind, _ := inner.Kind(); innerKind {
			case activity.Note:
				if inner.Content == "" {
					return nil
				}
				m.Category = CategoryChat
				m.Raw = inner.Content
				return m
			case activity.Image, activity.Video, activity.Model:
				m.MediaURL = inner.URLString()
				if m.MediaURL == "" {
					return nil
				}
				m.Category = CategoryMedia
				m.Raw = inner.Name
				switch innerKind {
				case activity.Image:
					m.MediaKind = KindImage
					m.Markup = fmt.Sprintf(`<img class="foyer-media" src=%q>`, m.MediaURL)
				case activity.Video:
					m.MediaKind = KindVideo
					m.Markup = fmt.Sprintf(`<video class="foyer-media" controls src=%q></video>`, m.MediaURL)
				case activity.Model:
					// no inline element renders a model; link out instead.
					label := inner.Name
					if label == "" {
						label = "a model"
					}
					m.MediaKind = KindModel
					m.Markup = fmt.Sprintf(`<a class="foyer-media" href=%q>%s</a>`, m.MediaURL, label)
				}
				return m
			}
		}
	case activity.Arrive, activity.Leave:
		if o.Summary == "" {
			return nil
		}
		m.Category = CategoryStatus
		m.Raw = o.Summary
		return m
	case activity.Follow:
		if o.InReplyTo != nil {
			// follow-back half of a mutual friendship; the user already
			// saw the accept.
			return nil
		}
		m.Category = CategoryStatus
		m.Raw = o.Summary
		if m.Raw == "" {
			m.Raw = "sent a friend request"
		}
		return m
	case activity.Accept:
		m.Category = CategoryStatus
		m.Raw = o.Summary
		if m.Raw == "" {
			m.Raw = "accepted your friend request"
		}
		return m
	}
	if o.Summary == "" {
		return nil
	}
	m.Category = CategoryOther
	m.Raw = o.Summary
	return m
}

// Sanitizer reduces untrusted remote markup to a safe subset.
type Sanitizer interface {
	Sanitize(string) string
}

// Feed normalizes a batch of activities in order, dropping the
// undisplayable ones and filling HTML through s. Media messages sanitize
// their synthesized markup; everything else sanitizes the raw content.
func Feed(items []activity.Object, s Sanitizer) []Message {
	derived := algorithms.Filter(algorithms.Map(items, DeriveMessage), func(m *Message) bool {
		return m != nil
	})
	out := make([]Message, 0, len(derived))
	for _, m := range derived {
		if s != nil {
			if m.Markup != "" {
				m.HTML = s.Sanitize(m.Markup)
			} else {
				m.HTML = s.Sanitize(m.Raw)
			}
		}
		out = append(out, *m)
	}
	return out
}
