package entity

// depGraph is the static reverse dependency map of an entity's computed
// properties: for each field, the properties that list it in DependsOn.
type depGraph struct {
	dependents map[string][]string
	undeclared []string
}

func newDepGraph(order []string, defs map[string]PropertyDef) *depGraph {
	g := &depGraph{dependents: make(map[string][]string)}
	for _, name := range order {
		def := defs[name]
		if def.Undeclared() {
			g.undeclared = append(g.undeclared, name)
			continue
		}
		for _, dep := range def.DependsOn {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}
	return g
}

// affected returns name followed by every property that must be
// invalidated when it changes, as a fixed point over the dependents map.
// On writes, properties without declared dependencies are always included.
func (g *depGraph) affected(name string, write bool) []string {
	seen := map[string]bool{name: true}
	out := []string{name}
	queue := []string{name}
	if write {
		for _, u := range g.undeclared {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
				queue = append(queue, u)
			}
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, d := range g.dependents[n] {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	return out
}
