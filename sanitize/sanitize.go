// Package sanitize reduces untrusted remote markup to the small HTML
// subset the feed is willing to render.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// mediaClass is the only class allowed through, the hook feed renderers
// style media embeds by.
var mediaClass = regexp.MustCompile(`^foyer-media$`)

// Policy is an allow-list over remote HTML: basic inline formatting,
// https anchors, and https media embeds. Everything else, scripts and
// event handlers included, is stripped. Safe for concurrent use.
type Policy struct {
	policy *bluemonday.Policy
}

// NewPolicy builds the feed display policy.
//
// Anchors keep an https href and come back with target="_blank" and
// rel="noopener noreferrer" forced, regardless of what the remote sent.
// Images and videos keep an https src; videos may keep their controls
// toggle. Anchors and embeds may carry the foyer-media class. An anchor
// or embed without a valid URL is dropped entirely.
func NewPolicy() *Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "span", "b", "i", "u", "em", "strong",
		"ul", "ol", "li", "blockquote", "pre", "code",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("https")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").OnElements("img", "video")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("class").Matching(mediaClass).OnElements("a", "img", "video")
	p.AllowAttrs("controls").OnElements("video")

	return &Policy{policy: p}
}

// Sanitize returns the safe subset of markup.
func (s *Policy) Sanitize(markup string) string {
	return s.policy.Sanitize(markup)
}
