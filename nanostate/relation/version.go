package relation

// Version is a monotonically increasing change counter
type Version struct {
	value uint64
}

// Value returns the current version
func (v *Version) Value() uint64 {
	return v.value
}

// Bump increments the version and returns the new value
func (v *Version) Bump() uint64 {
	v.value++
	return v.value
}

// Set moves the version forward to n. Versions never go backwards, so
// smaller values are ignored.
func (v *Version) Set(n uint64) {
	if n > v.value {
		v.value = n
	}
}

// Guard detects re-entry into a section, such as a node receiving its own
// notification back through a cyclic relation graph or a handler mutating
// the object that is dispatching to it.
type Guard struct {
	active bool
}

// Enter marks the section as active. It returns false, without changing
// anything, when the section already was; only a successful Enter must be
// paired with Exit.
func (g *Guard) Enter() bool {
	if g.active {
		return false
	}
	g.active = true
	return true
}

// Exit leaves the section
func (g *Guard) Exit() {
	g.active = false
}

// Active reports whether the section is currently entered
func (g *Guard) Active() bool {
	return g.active
}
