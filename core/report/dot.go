package report

import "github.com/emicklei/dot"

// DOT renders the dataflow graph as Graphviz DOT source, for human
// inspection of a contract's DELEGATECALL surface. This supplements
// spec.md's JSON-only graph representation (see SPEC_FULL.md §10).
func (g Graph) DOT() string {
	gv := dot.NewGraph(dot.Directed)
	gv.Attr("rankdir", "LR")

	nodes := make(map[string]dot.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		dn := gv.Node(n.ID).Attr("shape", shapeFor(n.Kind))
		dn.Label(n.ID)
		nodes[n.ID] = dn
	}

	for _, e := range g.Edges {
		from, ok := nodes[e.From]
		if !ok {
			from = gv.Node(e.From)
		}
		to, ok := nodes[e.To]
		if !ok {
			to = gv.Node(e.To)
		}
		gv.Edge(from, to).Label(e.Label).Attr("color", colorFor(e.Risk))
	}

	return gv.String()
}

func shapeFor(k NodeKind) string {
	switch k {
	case NodeContract:
		return "box"
	case NodeFacet:
		return "component"
	case NodeImplementation:
		return "ellipse"
	default:
		return "diamond"
	}
}

func colorFor(r Risk) string {
	switch r {
	case Low:
		return "green"
	case Medium:
		return "orange"
	case High:
		return "red"
	default:
		return "gray"
	}
}
