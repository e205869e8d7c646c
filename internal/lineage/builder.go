// Package lineage reconstructs the maternal descent forest from the sow
// roster's self-referential dam links and annotates it for rendering:
// generation depth, the has-active-descendant flag, population ranks, and the
// top-decile highlight. The forest is transient; it is rebuilt from committed
// state on every request and never persisted.
package lineage

import (
	"fmt"
	"sort"

	"sowline/pkg/domain"
)

// Input is the snapshot a build consumes. Scores may be empty when a build
// runs before the first recompute; nodes then simply carry no composite.
type Input struct {
	Sows      []domain.Sow
	Scores    []domain.SowScore
	Farrowing []domain.FarrowingRecord
	Deaths    []domain.DeathRecord
	Culls     []domain.CullRecord
}

// Forest is the fully annotated maternal descent forest.
type Forest struct {
	Roots []*domain.LineageNode
	// Threshold is the top-decile composite cutoff for the population the
	// forest was built for; nil when no sow in that population is scored.
	Threshold *float64
	// Findings carries the data-quality warnings raised during the build
	// (broken dam links, cycles). They never abort a build.
	Findings domain.Result

	view  domain.LineageView
	nodes map[string]*domain.LineageNode
}

// Build assembles the forest. Broken dam references make the referencing sow
// a traversal root and raise a warning; dam chains that loop are broken at
// the revisit via the visited set so construction always terminates.
func Build(in Input, view domain.LineageView) *Forest {
	f := &Forest{view: view, nodes: make(map[string]*domain.LineageNode, len(in.Sows))}

	scores := make(map[string]domain.SowScore, len(in.Scores))
	for _, s := range in.Scores {
		scores[s.SowID] = s
	}
	parityCounts := make(map[string]int)
	for _, r := range in.Farrowing {
		if r.Parity > parityCounts[r.SowID] {
			parityCounts[r.SowID] = r.Parity
		}
	}
	causes := make(map[string]*string)
	for _, c := range in.Culls {
		causes[c.SowID] = c.Cause
	}
	for _, d := range in.Deaths {
		causes[d.SowID] = d.Cause
	}

	for _, sow := range in.Sows {
		node := &domain.LineageNode{
			Sow:         sow,
			ParityCount: parityCounts[sow.ID],
			Cause:       causes[sow.ID],
		}
		if sc, ok := scores[sow.ID]; ok {
			node.TotalScore = sc.TotalScore
			node.RankAll = sc.RankAll
			node.RankActive = sc.RankActive
		}
		f.nodes[sow.ID] = node
	}

	f.link()
	order := f.assignGenerations()
	f.propagateHasActive(order)
	f.flagTopDecile()
	return f
}

// link inverts the stored dam references into child lists and collects the
// natural roots. A dam reference that resolves to no known sow, or to the sow
// itself, degrades the sow to a root with a warning.
func (f *Forest) link() {
	ids := make([]string, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := f.nodes[id]
		switch {
		case node.DamID == nil || *node.DamID == "":
			f.Roots = append(f.Roots, node)
		case *node.DamID == node.ID:
			f.warn("cyclic_lineage", node.ID, fmt.Sprintf("sow %s references itself as dam; treated as a root", node.ID))
			f.Roots = append(f.Roots, node)
		default:
			dam, ok := f.nodes[*node.DamID]
			if !ok {
				f.warn("broken_lineage_link", node.ID, fmt.Sprintf("sow %s references unknown dam %s; treated as a root", node.ID, *node.DamID))
				f.Roots = append(f.Roots, node)
				continue
			}
			dam.Children = append(dam.Children, node)
		}
	}

	for _, id := range ids {
		children := f.nodes[id].Children
		sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	}
}

// assignGenerations walks the forest breadth-first from each root, assigning
// generation = parent generation + 1. A node seen twice keeps its first
// generation and is not re-expanded. Sows left unreached afterwards can only
// belong to pure dam cycles; the smallest member of each is promoted to a
// traversal root with a warning so every sow appears exactly once. Returns
// the parents-before-children visit order.
func (f *Forest) assignGenerations() []*domain.LineageNode {
	visited := make(map[string]bool, len(f.nodes))
	var order []*domain.LineageNode

	expand := func(root *domain.LineageNode) {
		queue := []*domain.LineageNode{root}
		root.Generation = 0
		visited[root.ID] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			order = append(order, node)
			for _, child := range node.Children {
				if visited[child.ID] {
					f.warn("cyclic_lineage", child.ID, fmt.Sprintf("dam chain revisits sow %s; expansion stopped", child.ID))
					continue
				}
				visited[child.ID] = true
				child.Generation = node.Generation + 1
				queue = append(queue, child)
			}
		}
	}

	for _, root := range f.Roots {
		expand(root)
	}

	// Pure cycles are unreachable from any natural root.
	remaining := make([]string, 0)
	for id := range f.nodes {
		if !visited[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	for _, id := range remaining {
		if visited[id] {
			continue
		}
		node := f.nodes[id]
		f.warn("cyclic_lineage", id, fmt.Sprintf("sow %s is part of a dam cycle; treated as a traversal root", id))
		f.Roots = append(f.Roots, node)
		expand(node)
	}

	return order
}

// propagateHasActive computes the has-active-descendant flag bottom-up: a
// node carries it when the sow itself is active or any child carries it.
// Walking the BFS order in reverse visits children before parents.
func (f *Forest) propagateHasActive(order []*domain.LineageNode) {
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if node.Status == domain.StatusActive {
			node.HasActive = true
		}
		for _, child := range node.Children {
			if child.HasActive {
				node.HasActive = true
				break
			}
		}
	}
}

// flagTopDecile computes the 90th-percentile composite cutoff over the
// scored population of the requested view and marks every node at or above
// it. Boundary ties are all included, so ten percent is a floor, not a cap.
func (f *Forest) flagTopDecile() {
	var scored []float64
	for _, node := range f.nodes {
		if node.TotalScore == nil {
			continue
		}
		if f.view == domain.ViewActiveOnly && !node.HasActive {
			continue
		}
		scored = append(scored, *node.TotalScore)
	}
	if len(scored) == 0 {
		return
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scored)))
	idx := len(scored)/10 - 1
	if idx < 0 {
		idx = 0
	}
	threshold := scored[idx]
	f.Threshold = &threshold

	for _, node := range f.nodes {
		if node.TotalScore == nil {
			continue
		}
		if f.view == domain.ViewActiveOnly && !node.HasActive {
			continue
		}
		node.TopDecile = *node.TotalScore >= threshold
	}
}

func (f *Forest) warn(rule, sowID, message string) {
	f.Findings.Merge(domain.Result{Violations: []domain.Violation{{
		Rule:     rule,
		Severity: domain.SeverityWarn,
		Message:  message,
		Entity:   domain.EntitySow,
		EntityID: sowID,
	}}})
}

// View reports which view the forest was built for.
func (f *Forest) View() domain.LineageView { return f.view }

// Node returns the annotated node for a sow, if present.
func (f *Forest) Node(id string) (*domain.LineageNode, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Tree returns the subtree rooted at the requested sow. The sow does not
// have to be a forest root; any node anchors a valid subtree.
func (f *Forest) Tree(rootID string) (*domain.LineageNode, bool) {
	return f.Node(rootID)
}

// VisibleRoots returns the forest roots the view includes: all of them for
// ViewAll, only branches containing an active sow for ViewActiveOnly.
func (f *Forest) VisibleRoots() []*domain.LineageNode {
	if f.view != domain.ViewActiveOnly {
		return f.Roots
	}
	var out []*domain.LineageNode
	for _, root := range f.Roots {
		if root.HasActive {
			out = append(out, root)
		}
	}
	return out
}

// Visible reports whether the view includes the node.
func (f *Forest) Visible(node *domain.LineageNode) bool {
	if f.view != domain.ViewActiveOnly {
		return true
	}
	return node.HasActive
}

// TopDecile reports whether a sow is flagged as a top-decile performer in
// this forest's view. Renderers use it for highlighting.
func (f *Forest) TopDecile(id string) bool {
	n, ok := f.nodes[id]
	return ok && n.TopDecile
}
