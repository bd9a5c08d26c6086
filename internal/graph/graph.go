// Package graph turns the coefficient records produced by the correlation
// step into a dependency graph and hands it to a renderer.
package graph

import "fmt"

// NodeSize is the symbol size of every node.
const NodeSize = 20

// Record is one pairwise relationship between two fused-table columns.
type Record struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// Node is one fused-table column taking part in at least one record.
type Node struct {
	Name  string `json:"name"`
	Size  int    `json:"symbolSize"`
	Bound int    `json:"bound"` // records with this node as source or target
	Label string `json:"value"`
}

// Edge is a record drawn as a link; Weight is the coefficient.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"value"`
}

// Graph is the builder output.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build derives the node set and edge list from records.
//
// Nodes are the distinct endpoints in order of first appearance (source
// before target). A node's bound count is the number of records where it
// is the source or the target; a self loop counts once. Every record
// becomes one edge, so parallel edges and self loops are kept.
func Build(records []Record) *Graph {
	g := &Graph{Edges: make([]Edge, 0, len(records))}
	index := make(map[string]int)

	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{Name: name, Size: NodeSize})
		return len(g.Nodes) - 1
	}

	for _, r := range records {
		si := add(r.Source)
		g.Nodes[si].Bound++
		if r.Target != r.Source {
			g.Nodes[add(r.Target)].Bound++
		}
		g.Edges = append(g.Edges, Edge{Source: r.Source, Target: r.Target, Weight: r.Value})
	}

	for i := range g.Nodes {
		g.Nodes[i].Label = Label(g.Nodes[i].Name, g.Nodes[i].Bound)
	}
	return g
}

// Label formats the node caption, e.g. "ssn - 3 bound(s)".
func Label(name string, bound int) string {
	return fmt.Sprintf("%s - %d bound(s)", name, bound)
}

// Bounds returns name -> bound count.
func (g *Graph) Bounds() map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.Name] = n.Bound
	}
	return out
}
