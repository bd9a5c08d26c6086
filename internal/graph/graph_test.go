package graph

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

func names(g *Graph) []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Name
	}
	return out
}

func TestBuildChain(t *testing.T) {
	g := Build([]Record{{"a", "b", 0.5}, {"b", "c", 0.2}})

	assert.ElementsMatch(t, []string{"a", "b", "c"}, names(g))
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 1}, g.Bounds())
	assert.Equal(t, []Edge{{"a", "b", 0.5}, {"b", "c", 0.2}}, g.Edges)

	for _, n := range g.Nodes {
		assert.Equal(t, NodeSize, n.Size)
		assert.Equal(t, Label(n.Name, n.Bound), n.Label)
	}
}

func TestBuildSelfLoopCountsOnce(t *testing.T) {
	g := Build([]Record{{"a", "a", 0.9}})

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, 1, g.Nodes[0].Bound)
	assert.Equal(t, "a - 1 bound(s)", g.Nodes[0].Label)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, g.Edges[0].Source, g.Edges[0].Target)
}

func TestBuildKeepsParallelEdges(t *testing.T) {
	g := Build([]Record{{"a", "b", 0.5}, {"a", "b", 0.7}, {"b", "a", 0.1}})

	assert.Len(t, g.Edges, 3)
	assert.Equal(t, map[string]int{"a": 3, "b": 3}, g.Bounds())
}

func TestBuildNodeBoundsProperty(t *testing.T) {
	sets := [][]Record{
		nil,
		{{"x", "y", 1}},
		{{"x", "x", 1}, {"x", "x", 2}},
		{{"a", "b", 1}, {"c", "d", 1}, {"a", "d", 1}, {"d", "a", 1}, {"e", "e", 1}},
	}
	for _, records := range sets {
		g := Build(records)
		assert.LessOrEqual(t, len(g.Nodes), 2*len(records))

		seen := map[string]bool{}
		for _, n := range g.Nodes {
			assert.False(t, seen[n.Name], "duplicate node %s", n.Name)
			seen[n.Name] = true

			want := 0
			for _, r := range records {
				if r.Source == n.Name || r.Target == n.Name {
					want++
				}
			}
			assert.Equal(t, want, n.Bound, n.Name)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	records := []Record{{"ssn", "Battery_Voltage", 0.4}, {"f10.7", "ssn", 0.8}}
	assert.ElementsMatch(t, names(Build(records)), names(Build(records)))
}

func TestDecode(t *testing.T) {
	in := `{"graph": {"directed": true, "links": [
		{"source": "a", "target": "b", "value": 0.5},
		{"source": "b", "target": "c", "value": -0.2}
	]}}`

	records, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Record{{"a", "b", 0.5}, {"b", "c", -0.2}}, records)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"no graph":       `{"links": []}`,
		"no links":       `{"graph": {"nodes": []}}`,
		"missing source": `{"graph": {"links": [{"target": "b", "value": 1}]}}`,
		"missing target": `{"graph": {"links": [{"source": "a", "value": 1}]}}`,
		"missing value":  `{"graph": {"links": [{"source": "a", "target": "b"}]}}`,
		"null value":     `{"graph": {"links": [{"source": "a", "target": "b", "value": null}]}}`,
		"string value":   `{"graph": {"links": [{"source": "a", "target": "b", "value": "x"}]}}`,
	}
	for name, in := range cases {
		_, err := Decode(strings.NewReader(in))
		assert.True(t, errors.Is(err, common.ErrMalformedGraphInput), name)
	}
}

func TestDecodeNullValueMessage(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"graph": {"links": [{"source": "a", "target": "b", "value": null}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `null "value"`)
	assert.NotContains(t, err.Error(), "missing")

	_, err = Decode(strings.NewReader(`{"graph": {"links": [{"source": "a", "target": "b"}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "value"`)
}

func TestDecodeEmptyLinks(t *testing.T) {
	records, err := Decode(strings.NewReader(`{"graph": {"links": []}}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, common.ErrSourceRead))
}

type recordingRenderer struct {
	nodes []RenderNode
	links []RenderLink
	path  string
}

func (r *recordingRenderer) Render(nodes []RenderNode, links []RenderLink, path string) error {
	r.nodes, r.links, r.path = nodes, links, path
	return nil
}

func TestExportShapesRecords(t *testing.T) {
	g := Build([]Record{{"a", "b", 0.5}, {"b", "c", 0.2}})
	rr := &recordingRenderer{}

	require.NoError(t, Export(rr, g, "out/graph.html"))

	assert.Equal(t, "out/graph.html", rr.path)
	require.Len(t, rr.nodes, 3)
	for _, n := range rr.nodes {
		assert.Equal(t, NodeSize, n.SymbolSize)
		assert.Equal(t, Label(n.Name, n.Bound), n.Value)
	}
	assert.Equal(t, []RenderLink{{"a", "b", 0.5}, {"b", "c", 0.2}}, rr.links)
}

func TestEChartsRendererWritesHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.html")
	g := Build([]Record{{"ssn", "Battery_Voltage", 0.5}})

	require.NoError(t, Export(NewEChartsRenderer(), g, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "2D Dependency Graph")
	assert.Contains(t, html, "Battery_Voltage")
	assert.Contains(t, html, "ssn")

	// Edges get their own tooltip instead of a "bound(s)" caption.
	assert.Contains(t, html, "dataType")
	assert.NotContains(t, html, "{c} bound(s)")
}

func TestTooltipFormatterSeparatesEdges(t *testing.T) {
	assert.Contains(t, tooltipFormatter, "p.dataType === 'edge'")
	assert.Contains(t, tooltipFormatter, "' bound(s)'")
	assert.NotContains(t, tooltipFormatter, `"`)
}
