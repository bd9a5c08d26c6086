package graph

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/artifact"
)

// RenderNode is the node record handed to a Renderer.
type RenderNode struct {
	Name       string
	SymbolSize int
	Value      string // caption, see Label
	Bound      int
}

// RenderLink is the link record handed to a Renderer.
type RenderLink struct {
	Source string
	Target string
	Value  float64
}

// Renderer writes a node-link picture to path.
type Renderer interface {
	Render(nodes []RenderNode, links []RenderLink, path string) error
}

// Export shapes g into renderer records and renders it to path.
func Export(r Renderer, g *Graph, path string) error {
	nodes := make([]RenderNode, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = RenderNode{Name: n.Name, SymbolSize: n.Size, Value: n.Label, Bound: n.Bound}
	}
	links := make([]RenderLink, len(g.Edges))
	for i, e := range g.Edges {
		links[i] = RenderLink{Source: e.Source, Target: e.Target, Value: e.Weight}
	}
	if err := r.Render(nodes, links, path); err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	return nil
}

// EChartsRenderer draws a force-directed graph as a standalone HTML page.
type EChartsRenderer struct {
	Title     string
	Repulsion float32
}

// NewEChartsRenderer returns the default "2D Dependency Graph" renderer.
func NewEChartsRenderer() *EChartsRenderer {
	return &EChartsRenderer{Title: "2D Dependency Graph", Repulsion: 8000}
}

// tooltipFormatter captions nodes as Label does and edges by their
// coefficient. Single quotes only: the chart options are JSON encoded.
const tooltipFormatter = `function (p) {
	if (p.dataType === 'edge') {
		return p.data.source + ' - ' + p.data.target + ': ' + p.data.value;
	}
	return p.name + ' - ' + p.value + ' bound(s)';
}`

// Render implements Renderer. A node's value is its bound count, so the
// node tooltip reads like its caption ("<name> - <n> bound(s)").
func (e *EChartsRenderer) Render(nodes []RenderNode, links []RenderLink, path string) error {
	gn := make([]opts.GraphNode, len(nodes))
	for i, n := range nodes {
		gn[i] = opts.GraphNode{Name: n.Name, SymbolSize: n.SymbolSize, Value: float32(n.Bound)}
	}
	gl := make([]opts.GraphLink, len(links))
	for i, l := range links {
		gl[i] = opts.GraphLink{Source: l.Source, Target: l.Target, Value: float32(l.Value)}
	}

	chart := charts.NewGraph()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: e.Title, Width: "1200px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: e.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item", Formatter: opts.FuncOpts(tooltipFormatter)}),
	)
	chart.AddSeries("", gn, gl,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout: "force",
			Force:  &opts.GraphForce{Repulsion: e.Repulsion},
		}),
	)

	return artifact.WriteAtomic(path, func(w io.Writer) error {
		return chart.Render(w)
	})
}
