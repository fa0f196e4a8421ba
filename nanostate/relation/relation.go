// Package relation routes change notifications from nested stateful values
// to the entities and collections that hold them.
//
// A Link is a non-owning back-reference: the owner keeps the only forward
// reference to its child (the field value or collection item), the child
// keeps a list of owners purely to know whom to notify. Children never touch
// their owners' state directly; they call Owner.ChildChanged and the owner
// runs its own invalidation.
package relation

// Change describes what happened inside a child.
type Change struct {
	// Fields lists the child's fields that changed, when known
	Fields []string

	// StateOnly is set for accept/reject and lifecycle moves. Owners bump
	// their version but do not treat the child's data as modified.
	StateOnly bool
}

// Owner receives notifications from children it holds.
type Owner interface {
	ChildChanged(field string, child Node, change Change)
}

// Node is a stateful value that can sit inside an entity field or a
// collection: it reports changes, supports accept/reject and carries a
// version.
type Node interface {
	Owners() *Owners
	IsChanged(fields ...string) bool
	AcceptChanges(cascade bool, fields ...string) error
	RejectChanges(cascade bool, fields ...string) error
	Version() uint64
}

// Container is an Owner that holds children as positional items rather than
// named fields.
type Container interface {
	Owner
	IndexOf(item any) int
}

// ItemField is the field name containers use when attaching items.
const ItemField = ""

// AsNode returns v as a Node when it is one
func AsNode(v any) (Node, bool) {
	if v == nil {
		return nil, false
	}
	n, ok := v.(Node)
	return n, ok
}

// Cloner is a Node that can copy itself. Deep clones of entities and
// collections use it to copy nested children.
type Cloner interface {
	Node
	CloneNode(shallow bool) Node
}
