// Package pipeline runs one load: read every requested source, map them in
// parallel, reconcile in request order and persist the survivors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"itvetl/internal/domain"
	"itvetl/internal/geocode"
	"itvetl/internal/logger"
	"itvetl/internal/mapper"
	"itvetl/internal/metrics"
	"itvetl/internal/normalize"
	"itvetl/internal/reader"
	"itvetl/internal/reconcile"
	"itvetl/internal/records"
	"itvetl/internal/storage"
)

var (
	// ErrNoSources is returned when a request names no source.
	ErrNoSources = errors.New("pipeline: no sources requested")
	// ErrNoGeocoder is returned when coordinate validation is requested but
	// the service was built without a geocoder.
	ErrNoGeocoder = errors.New("pipeline: coordinate validation requested without a geocoder")
	// ErrSourceNotConfigured is returned for a source with no location.
	ErrSourceNotConfigured = errors.New("pipeline: source not configured")
)

// Request is one load invocation. Sources are reconciled in the given order,
// so an earlier source wins over a later one for the same station.
type Request struct {
	Sources             []domain.Source `json:"sources"`
	ValidateCoordinates bool            `json:"validate_coordinates"`
}

// SourceReader fetches the raw records of one source.
type SourceReader interface {
	Read(ctx context.Context, spec reader.Spec) ([]records.Record, error)
}

// Loader persists the reconciled stations.
type Loader interface {
	Load(ctx context.Context, data []domain.UnifiedData) (storage.LoadStats, error)
}

// Config describes where each source lives and how records are normalized.
type Config struct {
	Sources    map[domain.Source]reader.Spec
	Thresholds normalize.Thresholds
	// Job labels metrics. Defaults to "itvetl".
	Job string
}

// Service executes loads.
type Service struct {
	cfg      Config
	reader   SourceReader
	loader   Loader
	geocoder geocode.Resolver
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGeocoder sets the resolver used for coordinate validation.
func WithGeocoder(r geocode.Resolver) Option { return func(s *Service) { s.geocoder = r } }

// WithLogger attaches a logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// New builds a Service.
func New(cfg Config, rd SourceReader, ld Loader, opts ...Option) *Service {
	if cfg.Job == "" {
		cfg.Job = "itvetl"
	}
	s := &Service{cfg: cfg, reader: rd, loader: ld, log: logger.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logger.Component("pipeline"))
	return s
}

// Load runs one full load and returns the audit of what was loaded, repaired
// and discarded. Errors are fatal: an unreadable source or a failed
// transaction leaves the store as it was before the call.
func (s *Service) Load(ctx context.Context, req Request) (domain.LoadResult, error) {
	order := dedupe(req.Sources)
	if len(order) == 0 {
		return domain.LoadResult{}, ErrNoSources
	}
	if req.ValidateCoordinates && s.geocoder == nil {
		return domain.LoadResult{}, ErrNoGeocoder
	}

	runID := uuid.NewString()
	log := s.log.With(logger.String("run_id", runID))
	start := time.Now()
	log.Info("load started",
		logger.Strings("sources", sourceNames(order)),
		logger.Bool("validate_coordinates", req.ValidateCoordinates),
	)

	results, err := s.mapAll(ctx, order, req, log)
	if err != nil {
		metrics.RecordStep(s.cfg.Job, "map", err, time.Since(start))
		log.Error("load failed", logger.Error(err))
		return domain.LoadResult{}, err
	}
	// A mapping cut short by cancellation is incomplete and must not replace
	// the store.
	if err := ctx.Err(); err != nil {
		metrics.RecordStep(s.cfg.Job, "map", err, time.Since(start))
		log.Warn("load abandoned before persisting", logger.Error(err))
		return domain.LoadResult{}, fmt.Errorf("pipeline: load abandoned: %w", err)
	}
	metrics.RecordStep(s.cfg.Job, "map", nil, time.Since(start))

	out := reconcile.Reconcile(order, results)

	// Once persisting starts, the load ignores caller cancellation.
	loadStart := time.Now()
	stats, err := s.loader.Load(context.WithoutCancel(ctx), out.Unified)
	metrics.RecordStep(s.cfg.Job, "load", err, time.Since(loadStart))
	if err != nil {
		log.Error("load failed", logger.Error(err))
		return domain.LoadResult{}, fmt.Errorf("pipeline: load: %w", err)
	}

	result := out.Result
	result.Loaded = stats.Loaded
	result.Discards = append(result.Discards, stats.Discards...)
	result.DropRepairsOf(stats.Discards, survivors(out.Unified, stats.Discards))
	result.Recount()

	s.record(order, out.Unified, result, stats)
	log.Info("load finished",
		logger.Int("loaded", result.Loaded),
		logger.Int("repaired", result.Repaired),
		logger.Int("discarded", result.Discarded),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// mapAll reads and maps every source concurrently. The first read error
// cancels the others.
func (s *Service) mapAll(ctx context.Context, order []domain.Source, req Request, log logger.Logger) (map[domain.Source]domain.MapResult, error) {
	active := make(map[domain.Source]bool, len(order))
	for _, src := range order {
		active[src] = true
	}
	opts := mapper.Options{
		ValidateCoordinates: req.ValidateCoordinates,
		Active:              active,
		Thresholds:          s.cfg.Thresholds,
		Geocoder:            s.geocoder,
		Logger:              log,
	}

	mapped := make([]domain.MapResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range order {
		g.Go(func() error {
			spec, ok := s.cfg.Sources[src]
			if !ok || spec.Location == "" {
				return fmt.Errorf("%w: %s", ErrSourceNotConfigured, src)
			}
			m, err := mapper.New(src)
			if err != nil {
				return err
			}

			readStart := time.Now()
			recs, err := s.reader.Read(gctx, spec)
			metrics.RecordStep(s.cfg.Job, "read", err, time.Since(readStart))
			if err != nil {
				return fmt.Errorf("pipeline: read %s: %w", src, err)
			}
			metrics.RecordRecords(s.cfg.Job, string(src), "read", len(recs))
			log.Debug("source read", logger.String("source", string(src)), logger.Int("records", len(recs)))

			mapped[i] = m.Map(gctx, recs, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[domain.Source]domain.MapResult, len(order))
	for i, src := range order {
		results[src] = mapped[i]
	}
	return results, nil
}

// record emits per-source record counters. A station counts as loaded for
// its source unless the loader discarded it.
func (s *Service) record(order []domain.Source, unified []domain.UnifiedData, result domain.LoadResult, stats storage.LoadStats) {
	loaded := map[domain.Source]int{}
	for _, u := range unified {
		loaded[u.Source]++
	}
	for _, d := range stats.Discards {
		loaded[d.Source]--
	}
	repaired := map[domain.Source]int{}
	for _, r := range result.Repairs {
		repaired[r.Source]++
	}
	discarded := map[domain.Source]int{}
	for _, d := range result.Discards {
		discarded[d.Source]++
	}
	for _, src := range order {
		name := string(src)
		metrics.RecordRecords(s.cfg.Job, name, "loaded", loaded[src])
		metrics.RecordRecords(s.cfg.Job, name, "repaired", repaired[src])
		metrics.RecordRecords(s.cfg.Job, name, "discarded", discarded[src])
	}
}

// survivors returns unified without the entries the loader discarded. Each
// discard removes the last matching entry, the one the loader skipped.
func survivors(unified []domain.UnifiedData, discards []domain.DiscardedRecord) []domain.UnifiedData {
	out := append([]domain.UnifiedData(nil), unified...)
	for _, d := range discards {
		for i := len(out) - 1; i >= 0; i-- {
			u := out[i]
			if u.Source == d.Source && u.Station.Name == d.Name && u.Locality == d.Locality {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}

// dedupe drops repeated and empty sources, keeping the first position.
func dedupe(in []domain.Source) []domain.Source {
	seen := make(map[domain.Source]bool, len(in))
	out := make([]domain.Source, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sourceNames(in []domain.Source) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
