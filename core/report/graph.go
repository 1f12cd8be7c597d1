package report

import (
	"fmt"

	"github.com/delegatescan/delegatescan/core/classify"
	"github.com/delegatescan/delegatescan/core/pattern"
)

// NodeKind tags a dataflow graph node.
type NodeKind string

const (
	NodeContract       NodeKind = "contract"
	NodeImplementation NodeKind = "implementation"
	NodeFacet          NodeKind = "facet"
	NodeUnknown        NodeKind = "unknown"
)

// Node is a dataflow graph vertex.
type Node struct {
	ID   string
	Kind NodeKind
}

// Edge is a dataflow graph edge from the contract to a target, labeled by
// pattern name (or "DELEGATECALL"/variants when no pattern matched), and
// carrying the originating site's risk.
type Edge struct {
	From  string
	To    string
	Label string
	Risk  Risk
}

// Graph is the derived dataflow graph: nodes with the same ID are
// coalesced, and an implementation node referenced by >=2 sites is
// re-kinded as a facet.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// graphBuilder accumulates nodes/edges while tracking implementation
// node reference counts so they can be promoted to "facet".
type graphBuilder struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	implRefs map[string]int
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{nodes: map[string]*Node{}, implRefs: map[string]int{}}
}

func (g *graphBuilder) addNode(id string, kind NodeKind) {
	if _, ok := g.nodes[id]; !ok {
		n := Node{ID: id, Kind: kind}
		g.nodes[id] = &n
		g.order = append(g.order, id)
	}
}

func (g *graphBuilder) addEdge(from, to, label string, risk Risk) {
	g.edges = append(g.edges, Edge{From: from, To: to, Label: label, Risk: risk})
}

func (g *graphBuilder) build() Graph {
	out := Graph{Edges: g.edges}
	for _, id := range g.order {
		n := *g.nodes[id]
		if n.Kind == NodeImplementation && g.implRefs[id] >= 2 {
			n.Kind = NodeFacet
		}
		out.Nodes = append(out.Nodes, n)
	}
	return out
}

// siteGraphInput is the per-site data the graph builder needs.
type siteGraphInput struct {
	id             int
	classification classify.Classification
	match          *pattern.Match
	risk           Risk
}

// buildGraph assembles the dataflow graph for a contract's sites, per
// spec.md §4.6.
func buildGraph(contractAddress string, sites []siteGraphInput) Graph {
	g := newGraphBuilder()

	contractID := "contract:unknown"
	if contractAddress != "" {
		contractID = "contract:" + contractAddress
	}
	g.addNode(contractID, NodeContract)

	for _, s := range sites {
		label := "DELEGATECALL"
		if s.match != nil {
			label = string(s.match.Name)
		}

		switch {
		case s.classification.AddressLiteral != "":
			implID := "impl:" + s.classification.AddressLiteral
			g.addNode(implID, NodeImplementation)
			g.implRefs[implID]++
			g.addEdge(contractID, implID, label, s.risk)

		case s.classification.StorageSlotLiteral != "":
			slotID := "storage:" + s.classification.StorageSlotLiteral
			g.addNode(slotID, NodeUnknown) // the implementation address itself is not statically known
			storageLabel := "Storage Proxy"
			if s.match != nil {
				storageLabel = string(s.match.Name)
			}
			edgeLabel := fmt.Sprintf("%s (slot: %s…)", storageLabel, firstN(s.classification.StorageSlotLiteral, 10))
			g.addEdge(contractID, slotID, edgeLabel, s.risk)

		default:
			unkID := fmt.Sprintf("unknown:%d", s.id)
			g.addNode(unkID, NodeUnknown)
			g.addEdge(contractID, unkID, "DELEGATECALL (dynamic)", s.risk)
		}
	}

	return g.build()
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
