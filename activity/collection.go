package activity

// Collection is an ordered, paginated activity list, or one page of it.
// A collection root may carry its items inline, or defer to a first page.
// https://www.w3.org/TR/activitystreams-core/#collections
type Collection struct {
	AtContext  any    `json:"@context,omitempty"`
	ID         string `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	TotalItems int    `json:"totalItems,omitempty"`

	First  string `json:"first,omitempty"`
	Next   string `json:"next,omitempty"`
	Prev   string `json:"prev,omitempty"`
	PartOf string `json:"partOf,omitempty"`

	OrderedItems []Ref `json:"orderedItems,omitempty"`
	Items        []Ref `json:"items,omitempty"`
}

// Contents returns whichever of orderedItems/items is populated, as
// objects. Entries that arrive as bare identifiers become objects carrying
// only an id, so callers never see two shapes.
func (c *Collection) Contents() []Object {
	refs := c.OrderedItems
	if len(refs) == 0 {
		refs = c.Items
	}
	out := make([]Object, 0, len(refs))
	for i := range refs {
		if inner := refs[i].Embedded(); inner != nil {
			out = append(out, *inner)
			continue
		}
		if refs[i].IRI != "" {
			out = append(out, Object{ID: refs[i].IRI})
		}
	}
	return out
}

// NewPlace builds the venue object a session claims presence at.
func NewPlace(id, name, pageURL string) *Object {
	p := &Object{
		ID:   id,
		Type: string(Place),
		Name: name,
	}
	if pageURL != "" {
		p.URL = IRIRef(pageURL)
	}
	return p
}
