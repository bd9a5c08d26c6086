// Package fusion joins a satellite's telemetry with the solar feeds into one
// daily table, and drives the correlation and graph stages over it.
package fusion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/align"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/artifact"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/graph"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/polaris"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/solar"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/source"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// IndicesSource supplies an extra daily solar table (solar.IndicesReader).
type IndicesSource interface {
	Load(ctx context.Context) (*table.Table, error)
}

// Publisher stores a fused table outside the artifacts directory
// (store.Publisher).
type Publisher interface {
	Publish(ctx context.Context, satellite string, t *table.Table) error
}

// Correlator turns a fused CSV into a coefficient artifact (polaris.Runner).
type Correlator interface {
	Correlate(ctx context.Context, req polaris.CorrelateRequest) error
}

// Options are the optional collaborators of a Pipeline.
type Options struct {
	Indices    IndicesSource  // nil: solar files only
	Publisher  Publisher      // nil: no warehouse copy
	Correlator Correlator     // nil: polaris.NewRunner(cfg.Polaris)
	Renderer   graph.Renderer // nil: graph.NewEChartsRenderer()
	Stats      *common.Stats  // nil: not counted
}

// Pipeline fuses satellites according to a Config.
type Pipeline struct {
	cfg        *common.Config
	log        *zap.Logger
	loader     *source.Loader
	indices    IndicesSource
	publisher  Publisher
	correlator Correlator
	renderer   graph.Renderer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Result lists what Fuse produced.
type Result struct {
	Table       *table.Table
	CSVPath     string
	ParquetPath string // empty unless Parquet output is enabled
}

// RunResult lists what Run produced.
type RunResult struct {
	Fused     *Result
	GraphJSON string
	GraphHTML string
	Graph     *graph.Graph
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg *common.Config, log *zap.Logger, opts Options) *Pipeline {
	log = common.OrNop(log)
	p := &Pipeline{
		cfg:        cfg,
		log:        log,
		loader:     source.NewLoader(log, opts.Stats),
		indices:    opts.Indices,
		publisher:  opts.Publisher,
		correlator: opts.Correlator,
		renderer:   opts.Renderer,
		locks:      make(map[string]*sync.Mutex),
	}
	if p.correlator == nil {
		p.correlator = polaris.NewRunner(cfg.Polaris, log)
	}
	if p.renderer == nil {
		p.renderer = graph.NewEChartsRenderer()
	}
	return p
}

// lock serializes work on one satellite's artifact directory.
func (p *Pipeline) lock(satellite string) func() {
	p.mu.Lock()
	m, ok := p.locks[satellite]
	if !ok {
		m = &sync.Mutex{}
		p.locks[satellite] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Specs returns the sources fused for satellite, anchor first.
func (p *Pipeline) Specs(satellite string) []source.Spec {
	specs := make([]source.Spec, 0, len(solar.Feeds)+1)
	specs = append(specs, source.Spec{
		Name:       satellite,
		Path:       p.cfg.SatelliteDir(satellite),
		Format:     source.FormatCSVDir,
		TimeColumn: p.cfg.TimeColumn,
	})
	for _, f := range solar.Feeds {
		specs = append(specs, f.Spec(p.cfg.SolarDir))
	}
	return specs
}

// Fuse loads the satellite table and every solar source, aligns them on the
// configured time column and writes <satellite>_full.csv. Any failing
// source aborts the fusion and leaves earlier artifacts untouched.
func (p *Pipeline) Fuse(ctx context.Context, satellite string) (*Result, error) {
	unlock := p.lock(satellite)
	defer unlock()
	return p.fuse(ctx, satellite)
}

func (p *Pipeline) fuse(ctx context.Context, satellite string) (*Result, error) {
	if satellite == "" {
		return nil, fmt.Errorf("%w: empty satellite name", common.ErrSourceRead)
	}

	var inputs []align.Input
	for _, spec := range p.Specs(satellite) {
		t, err := p.loader.Load(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", spec.Name, err)
		}
		inputs = append(inputs, align.Input{Name: spec.Name, Table: t})
	}

	if p.indices != nil {
		t, err := p.indices.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load solar indices: %w", err)
		}
		inputs = append(inputs, align.Input{Name: "solar_indices", Table: t})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fused, err := align.Align(p.cfg.TimeColumn, inputs...)
	if err != nil {
		return nil, err
	}
	p.log.Info("fused sources",
		zap.String("satellite", satellite),
		zap.Int("sources", len(inputs)),
		zap.Int("rows", fused.Rows()),
		zap.Int("columns", len(fused.Columns)),
	)

	if err := os.MkdirAll(p.cfg.ArtifactDir(satellite), 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	res := &Result{Table: fused, CSVPath: p.cfg.FusedCSVPath(satellite)}
	if err := artifact.SaveCSV(res.CSVPath, fused); err != nil {
		return nil, err
	}
	p.log.Info("wrote fused table", zap.String("path", res.CSVPath))

	if p.cfg.Parquet {
		res.ParquetPath = p.cfg.FusedParquetPath(satellite)
		if err := artifact.SaveParquet(res.ParquetPath, fused); err != nil {
			return nil, err
		}
		p.log.Info("wrote fused table", zap.String("path", res.ParquetPath))
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, satellite, fused); err != nil {
			return nil, fmt.Errorf("publish %s: %w", satellite, err)
		}
	}
	return res, nil
}

// Run fuses satellite, correlates the fused columns and renders the
// dependency graph to graph.html. A malformed coefficient artifact fails
// the run before anything is rendered.
func (p *Pipeline) Run(ctx context.Context, satellite string) (*RunResult, error) {
	unlock := p.lock(satellite)
	defer unlock()

	fused, err := p.fuse(ctx, satellite)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		Fused:     fused,
		GraphJSON: p.cfg.GraphJSONPath(satellite),
		GraphHTML: p.cfg.GraphHTMLPath(satellite),
	}

	err = p.correlator.Correlate(ctx, polaris.CorrelateRequest{
		Input:       fused.CSVPath,
		Output:      res.GraphJSON,
		Config:      p.cfg.ModelConfig,
		IndexColumn: p.cfg.TimeColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("correlate %s: %w", satellite, err)
	}

	records, err := graph.Load(res.GraphJSON)
	if err != nil {
		return nil, err
	}
	res.Graph = graph.Build(records)
	p.log.Info("built dependency graph",
		zap.Int("nodes", len(res.Graph.Nodes)),
		zap.Int("edges", len(res.Graph.Edges)),
	)

	if err := graph.Export(p.renderer, res.Graph, res.GraphHTML); err != nil {
		return nil, err
	}
	p.log.Info("wrote dependency graph", zap.String("path", res.GraphHTML))
	return res, nil
}
