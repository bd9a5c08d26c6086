package fusion

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/graph"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/polaris"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/solar"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

const satellite = "LightSail-2"

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// testConfig lays out one satellite and the four solar feeds under a temp dir.
func testConfig(t *testing.T) *common.Config {
	t.Helper()
	root := t.TempDir()

	cfg := common.DefaultConfig()
	cfg.SatellitesDir = filepath.Join(root, "satellites")
	cfg.SolarDir = filepath.Join(root, "solar")
	cfg.ArtifactsDir = filepath.Join(root, "artifacts")
	cfg.ModelConfig = filepath.Join(root, "cfg", "model.json")

	satDir := cfg.SatelliteDir(satellite)
	writeFile(t, filepath.Join(satDir, "frames_a.csv"),
		"Time,Battery Voltage,mode\n"+
			"2024-01-01 08:00:00,7,SAFE\n"+
			"2024-01-01 20:00:00,9,SAFE\n")
	writeFile(t, filepath.Join(satDir, "frames_b.csv"),
		"Time,Battery Voltage,mode\n"+
			"2024-01-02 10:00:00,8,NOMINAL\n"+
			"2024-01-03 10:00:00,7.5,NOMINAL\n")

	writeFile(t, filepath.Join(cfg.SolarDir, "swpc", "swpc_observed_ssn.json"),
		`[{"Obsdate":"2024-01-01T00:00:00","swpc_ssn":100},`+
			`{"Obsdate":"2024-01-02T00:00:00","swpc_ssn":120},`+
			`{"Obsdate":"2024-01-05T00:00:00","swpc_ssn":90}]`)
	writeFile(t, filepath.Join(cfg.SolarDir, "swpc", "observed-solar-cycle-indices.json"),
		`[{"time-tag":"2024-01","ssn":123.4,"f10.7":166.6}]`)
	writeFile(t, filepath.Join(cfg.SolarDir, "swpc", "dgd.csv"),
		"Date,A_fredericksburg\n2024-01-02,12\n")
	writeFile(t, filepath.Join(cfg.SolarDir, "penticton", "fluxtable.txt"),
		"fluxdate fluxtime fluxobsflux\n"+
			"-------- -------- -----------\n"+
			"20240103 170000 180.5\n")
	return cfg
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestFuse(t *testing.T) {
	cfg := testConfig(t)
	stats := common.NewStats()
	p := NewPipeline(cfg, nil, Options{Stats: stats})

	res, err := p.Fuse(context.Background(), satellite)
	require.NoError(t, err)

	fused := res.Table
	assert.Equal(t, "Time", fused.Key)
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, fused.Dates)
	assert.Equal(t, []string{
		"Battery_Voltage", "swpc_ssn", "ssn", "f10.7", "A_fredericksburg", "fluxtime", "fluxobsflux",
	}, fused.ColumnNames())

	assert.Equal(t, []float64{8, 8, 7.5}, fused.Column("Battery_Voltage").Floats)

	ssn := fused.Column("swpc_ssn").Floats
	assert.Equal(t, 100.0, ssn[0])
	assert.Equal(t, 120.0, ssn[1])
	assert.True(t, math.IsNaN(ssn[2]))

	assert.Equal(t, 123.4, fused.Column("ssn").Floats[0])
	assert.True(t, math.IsNaN(fused.Column("A_fredericksburg").Floats[0]))
	assert.Equal(t, 12.0, fused.Column("A_fredericksburg").Floats[1])
	assert.Equal(t, 180.5, fused.Column("fluxobsflux").Floats[2])

	assert.Equal(t, cfg.FusedCSVPath(satellite), res.CSVPath)
	assert.Empty(t, res.ParquetPath)
	body, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Time,Battery_Voltage,swpc_ssn,ssn,f10.7,A_fredericksburg,fluxtime,fluxobsflux", lines[0])
	assert.Equal(t, "2024-01-01,8,100,123.4,166.6,,,", lines[1])
	assert.Equal(t, "2024-01-03,7.5,,,,,170000,180.5", lines[3])

	assert.Equal(t, uint64(6), stats.GetFiles())
}

func TestFuseOverwritesAndWritesParquet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Parquet = true
	require.NoError(t, os.MkdirAll(cfg.ArtifactDir(satellite), 0o755))
	writeFile(t, cfg.FusedCSVPath(satellite), "stale\n")

	res, err := NewPipeline(cfg, nil, Options{}).Fuse(context.Background(), satellite)
	require.NoError(t, err)

	body, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Time,"))

	info, err := os.Stat(res.ParquetPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestFuseMissingSourceAborts(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.SolarDir, "swpc", "dgd.csv")))

	_, err := NewPipeline(cfg, nil, Options{}).Fuse(context.Background(), satellite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSourceRead))
	assert.Contains(t, err.Error(), "swpc_dgd")

	_, err = os.Stat(cfg.FusedCSVPath(satellite))
	assert.True(t, os.IsNotExist(err))
}

func TestFuseUnknownSatellite(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewPipeline(cfg, nil, Options{}).Fuse(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrSourceRead))
}

type fakeIndices struct{ t *table.Table }

func (f fakeIndices) Load(ctx context.Context) (*table.Table, error) { return f.t, nil }

type fakePublisher struct {
	satellite string
	rows      int
}

func (f *fakePublisher) Publish(ctx context.Context, satellite string, t *table.Table) error {
	f.satellite = satellite
	f.rows = t.Rows()
	return nil
}

// indicesTable has the shape solar.IndicesReader returns.
func indicesTable() *table.Table {
	t := table.New(solar.IndicesTimeColumn)
	t.Dates = []time.Time{day(3), day(2)}
	for i, name := range solar.IndexColumnNames() {
		t.Columns = append(t.Columns, table.Column{
			Name:   name,
			Kind:   table.Numeric,
			Floats: []float64{float64(i + 3), float64(i + 2)},
		})
	}
	return t
}

func TestFuseWithIndicesAndPublisher(t *testing.T) {
	cfg := testConfig(t)
	indices := indicesTable()
	pub := &fakePublisher{}

	res, err := NewPipeline(cfg, nil, Options{
		Indices:   fakeIndices{indices},
		Publisher: pub,
	}).Fuse(context.Background(), satellite)
	require.NoError(t, err)

	// The feed's own ssn column sits next to the warehouse average.
	assert.Equal(t, 123.4, res.Table.Column("ssn").Floats[0])
	for _, name := range solar.IndexColumnNames() {
		require.NotNil(t, res.Table.Column(name), name)
	}

	kp := res.Table.Column("indices_kp_index")
	assert.True(t, math.IsNaN(kp.Floats[0]))
	assert.Equal(t, []float64{5, 6}, kp.Floats[1:])

	assert.Equal(t, satellite, pub.satellite)
	assert.Equal(t, 3, pub.rows)
}

func TestFuseConcurrentSameSatellite(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, nil, Options{})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Fuse(context.Background(), satellite)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

// fakeCorrelator writes a fixed coefficient document.
type fakeCorrelator struct {
	doc string
	req polaris.CorrelateRequest
}

func (f *fakeCorrelator) Correlate(ctx context.Context, req polaris.CorrelateRequest) error {
	f.req = req
	return os.WriteFile(req.Output, []byte(f.doc), 0o644)
}

type recordingRenderer struct {
	nodes []graph.RenderNode
	links []graph.RenderLink
}

func (r *recordingRenderer) Render(nodes []graph.RenderNode, links []graph.RenderLink, path string) error {
	r.nodes, r.links = nodes, links
	return os.WriteFile(path, []byte("<html></html>"), 0o644)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	corr := &fakeCorrelator{doc: `{"graph":{"links":[` +
		`{"source":"Battery_Voltage","target":"swpc_ssn","value":0.5},` +
		`{"source":"swpc_ssn","target":"fluxobsflux","value":0.2}]}}`}
	rend := &recordingRenderer{}

	res, err := NewPipeline(cfg, nil, Options{Correlator: corr, Renderer: rend}).Run(context.Background(), satellite)
	require.NoError(t, err)

	assert.Equal(t, cfg.FusedCSVPath(satellite), corr.req.Input)
	assert.Equal(t, cfg.GraphJSONPath(satellite), corr.req.Output)
	assert.Equal(t, cfg.ModelConfig, corr.req.Config)
	assert.Equal(t, "Time", corr.req.IndexColumn)

	assert.Equal(t, map[string]int{"Battery_Voltage": 1, "swpc_ssn": 2, "fluxobsflux": 1}, res.Graph.Bounds())
	require.Len(t, rend.nodes, 3)
	require.Len(t, rend.links, 2)
	assert.Equal(t, 0.5, rend.links[0].Value)

	_, err = os.Stat(cfg.GraphHTMLPath(satellite))
	assert.NoError(t, err)
}

func TestRunMalformedCoefficients(t *testing.T) {
	cfg := testConfig(t)
	corr := &fakeCorrelator{doc: `{"graph":{"nodes":[]}}`}
	rend := &recordingRenderer{}

	_, err := NewPipeline(cfg, nil, Options{Correlator: corr, Renderer: rend}).Run(context.Background(), satellite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedGraphInput))

	assert.Nil(t, rend.nodes)
	_, err = os.Stat(cfg.GraphHTMLPath(satellite))
	assert.True(t, os.IsNotExist(err))
}

type failingCorrelator struct{}

func (failingCorrelator) Correlate(ctx context.Context, req polaris.CorrelateRequest) error {
	return common.ErrExternalTool
}

func TestRunCorrelatorFailure(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewPipeline(cfg, nil, Options{Correlator: failingCorrelator{}}).Run(context.Background(), satellite)
	assert.True(t, errors.Is(err, common.ErrExternalTool))
}
