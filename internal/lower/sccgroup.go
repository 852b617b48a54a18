package lower

import "github.com/moonbitlang/moonbit-compiler/internal/mcore"

// RecKind distinguishes a non-recursive SCC (a singleton binding that does
// not call itself) from a (possibly mutually-) recursive one (spec §4.2).
type RecKind int

const (
	NonRec RecKind = iota
	Rec
)

// SccGroup is one strongly-connected component of the local-binding
// reference graph, in the order SccGrouper emits it: later groups may
// refer to earlier ones, never the reverse (spec §4.2 "the ordering is
// preserved so that later groups may safely refer to earlier ones").
type SccGroup struct {
	Kind  RecKind
	Names []string
	Fns   []*mcore.Lambda
}

// GroupSCCs partitions a flat list of simultaneously-scoped local function
// bindings (as introduced by a single letrec) into ordered SCCs (spec
// §4.2). The adjacency edge src -> dst holds iff dst is free in src's
// body, excluding sibling references that are themselves joins (those are
// second-class and FreeVars already omits them).
func GroupSCCs(names []string, fns []*mcore.Lambda) []SccGroup {
	n := len(names)
	idx := make(map[string]int, n)
	for i, name := range names {
		idx[name] = i
	}

	// adjacency[i] holds the set of sibling indices free in fns[i]'s body.
	adjacency := make([][]int, n)
	for i, fn := range fns {
		// Exclude only the parameters from the walk; the binding's own name
		// and its siblings' names are left unexcluded so references to them
		// surface as free variables and become graph edges, a self-edge
		// included (spec §4.2).
		exclude := map[string]bool{}
		for _, p := range fn.Params {
			exclude[p.Id.Name] = true
		}
		fvs := FreeVars(fn.Body, exclude)
		seen := make(map[int]bool)
		for _, fv := range fvs {
			if j, ok := idx[fv.Name]; ok && !seen[j] {
				seen[j] = true
				adjacency[i] = append(adjacency[i], j)
			}
		}
	}

	g := &sccState{
		n:         n,
		adjacency: adjacency,
		index:     make([]int, n),
		lowlink:   make([]int, n),
		onStack:   make([]bool, n),
		visited:   make([]bool, n),
	}
	for i := 0; i < n; i++ {
		g.index[i] = -1
	}
	for i := 0; i < n; i++ {
		if !g.visited[i] {
			g.strongconnect(i)
		}
	}

	groups := make([]SccGroup, len(g.components))
	for gi, comp := range g.components {
		grp := SccGroup{Names: make([]string, len(comp)), Fns: make([]*mcore.Lambda, len(comp))}
		for i, member := range comp {
			grp.Names[i] = names[member]
			grp.Fns[i] = fns[member]
		}
		if len(comp) == 1 {
			self := comp[0]
			selfRef := false
			for _, j := range adjacency[self] {
				if j == self {
					selfRef = true
					break
				}
			}
			if !selfRef {
				grp.Kind = NonRec
			} else {
				grp.Kind = Rec
			}
		} else {
			grp.Kind = Rec
		}
		groups[gi] = grp
	}
	return groups
}

// sccState is a standard Tarjan strongly-connected-components run,
// producing components in reverse-topological order by the order
// strongconnect pops them (spec §4.2 "reverse-postorder on the
// free-variable graph").
type sccState struct {
	n          int
	adjacency  [][]int
	index      []int
	lowlink    []int
	onStack    []bool
	stack      []int
	counter    int
	components [][]int
	visited    []bool
}

func (g *sccState) strongconnect(v int) {
	g.index[v] = g.counter
	g.lowlink[v] = g.counter
	g.counter++
	g.visited[v] = true
	g.stack = append(g.stack, v)
	g.onStack[v] = true

	for _, w := range g.adjacency[v] {
		if g.index[w] == -1 {
			g.strongconnect(w)
			if g.lowlink[w] < g.lowlink[v] {
				g.lowlink[v] = g.lowlink[w]
			}
		} else if g.onStack[w] {
			if g.index[w] < g.lowlink[v] {
				g.lowlink[v] = g.index[w]
			}
		}
	}

	if g.lowlink[v] == g.index[v] {
		var comp []int
		for {
			w := g.stack[len(g.stack)-1]
			g.stack = g.stack[:len(g.stack)-1]
			g.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		g.components = append(g.components, comp)
	}
}
