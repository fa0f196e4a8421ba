package relation

// Link is one (owner, field) back-reference held by a child.
type Link struct {
	Owner Owner
	Field string

	refs int
}

// Owners is the set of back-references a child keeps. The zero value is
// ready to use.
type Owners struct {
	links []Link
}

// Attach records that owner holds the child in field. Attaching the same
// pair twice is reference counted, so a collection holding an item twice
// keeps its link until both copies are removed. It reports whether a new
// link was created.
func (o *Owners) Attach(owner Owner, field string) bool {
	for i := range o.links {
		if o.links[i].Owner == owner && o.links[i].Field == field {
			o.links[i].refs++
			return false
		}
	}
	o.links = append(o.links, Link{Owner: owner, Field: field, refs: 1})
	return true
}

// Detach drops one reference of (owner, field). It reports whether the link
// was removed entirely.
func (o *Owners) Detach(owner Owner, field string) bool {
	for i := range o.links {
		if o.links[i].Owner != owner || o.links[i].Field != field {
			continue
		}
		o.links[i].refs--
		if o.links[i].refs > 0 {
			return false
		}
		o.links = append(o.links[:i], o.links[i+1:]...)
		return true
	}
	return false
}

// Len returns the number of distinct links
func (o *Owners) Len() int {
	return len(o.links)
}

// Links returns a copy of the current links
func (o *Owners) Links() []Link {
	out := make([]Link, len(o.links))
	copy(out, o.links)
	return out
}

// Holds reports whether owner has at least one link
func (o *Owners) Holds(owner Owner) bool {
	for _, l := range o.links {
		if l.Owner == owner {
			return true
		}
	}
	return false
}

// Container returns the first owner holding the child as an item
func (o *Owners) Container() (Container, bool) {
	for _, l := range o.links {
		if c, ok := l.Owner.(Container); ok && l.Field == ItemField {
			return c, true
		}
	}
	return nil, false
}

// Notify calls ChildChanged on every owner. It iterates over a copy so
// owners may attach or detach while being notified.
func (o *Owners) Notify(child Node, change Change) {
	for _, l := range o.Links() {
		l.Owner.ChildChanged(l.Field, child, change)
	}
}
