package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dep2j/pkg/cache"
	"github.com/matzehuels/dep2j/pkg/depfile"
	"github.com/matzehuels/dep2j/pkg/model"
	"github.com/matzehuels/dep2j/pkg/observability"
	"github.com/matzehuels/dep2j/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is the lifetime of cached parse results. Zero means cache.DefaultTTL.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → merge → render pipeline.
// Either the full output is returned or an error; there is no partial result.
func (r *Runner) Execute(ctx context.Context, sources []source.Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	m, result, err := r.buildModel(ctx, sources, opts)
	if err != nil {
		return nil, err
	}

	renderStart := time.Now()
	out, err := Render(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	result.Output = out
	result.Format = opts.Format
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered output",
		"format", opts.Format,
		"bytes", len(out),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// BuildModel parses and merges sources without rendering.
func (r *Runner) BuildModel(ctx context.Context, sources []source.Source, opts Options) (*model.Model, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	m, _, err := r.buildModel(ctx, sources, opts)
	return m, err
}

func (r *Runner) buildModel(ctx context.Context, sources []source.Source, opts Options) (*model.Model, *Result, error) {
	result := &Result{}
	result.Stats.Sources = len(sources)
	result.Stats.Bytes = source.TotalSize(sources)

	// Stage 1: Parse
	parseStart := time.Now()
	perSource, hits, err := r.ParseAll(ctx, sources, opts)
	if err != nil {
		return nil, nil, err
	}
	result.Stats.ParseTime = time.Since(parseStart)
	result.CacheInfo.Hits = hits
	if !opts.Refresh {
		result.CacheInfo.Misses = len(sources) - hits
	}

	r.Logger.Debug("parsed sources",
		"sources", len(sources),
		"bytes", result.Stats.Bytes,
		"cached", hits,
		"duration", result.Stats.ParseTime)

	// Stage 2: Merge
	mergeStart := time.Now()
	m := Merge(perSource)
	result.Model = m
	result.Stats.Rules = m.RuleCount()
	result.Stats.Targets = m.Len()
	result.Stats.MergeTime = time.Since(mergeStart)
	observability.Pipeline().OnMergeComplete(ctx, len(sources), m.Len(), result.Stats.MergeTime)

	r.Logger.Debug("merged rules",
		"rules", m.RuleCount(),
		"targets", m.Len(),
		"duration", result.Stats.MergeTime)

	return m, result, nil
}

// ParseAll parses sources concurrently with at most opts.Jobs parsers and
// returns the rules of each source at the source's index, plus the number of
// cache hits. When several sources fail, the error of the lowest-index
// source is returned, so failures do not depend on scheduling.
func (r *Runner) ParseAll(ctx context.Context, sources []source.Source, opts Options) ([][]depfile.RawRule, int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, 0, err
	}

	rules := make([][]depfile.RawRule, len(sources))
	errs := make([]error, len(sources))
	hits := make([]bool, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rules[i], hits[i], errs[i] = r.parseSource(gctx, src, opts.Refresh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	n := 0
	for i, err := range errs {
		if err != nil {
			return nil, 0, err
		}
		if hits[i] {
			n++
		}
	}
	return rules, n, nil
}

// Merge folds per-source rules into one model, sources in order and rules
// in file order.
func Merge(perSource [][]depfile.RawRule) *model.Model {
	b := model.NewBuilder()
	for _, rules := range perSource {
		b.AddAll(rules)
	}
	return b.Build()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
