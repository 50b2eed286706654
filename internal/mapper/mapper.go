// Package mapper turns raw regional records into unified stations.
//
// Each source (CV, CAT, GAL) has one Mapper. A mapper never fails as a whole:
// every raw record either becomes a UnifiedData, possibly with repairs logged
// against it, or a DiscardedRecord carrying the reason. A panic while mapping
// one record discards that record only.
package mapper

import (
	"context"
	"fmt"
	"time"

	"itvetl/internal/domain"
	"itvetl/internal/geocode"
	"itvetl/internal/logger"
	"itvetl/internal/normalize"
	"itvetl/internal/records"
)

// Options control one mapping run.
type Options struct {
	// ValidateCoordinates enables geocoding of CV fixed stations.
	ValidateCoordinates bool
	// Active restricts the run to these sources. Nil means every source.
	Active map[domain.Source]bool
	// Thresholds overrides the normalizer heuristics. Zero means defaults.
	Thresholds normalize.Thresholds
	// Geocoder resolves addresses when ValidateCoordinates is set.
	Geocoder geocode.Resolver
	Logger   logger.Logger
}

// IsActive reports whether s takes part in the run.
func (o Options) IsActive(s domain.Source) bool {
	return o.Active == nil || o.Active[s]
}

func (o Options) thresholds() normalize.Thresholds {
	if o.Thresholds == (normalize.Thresholds{}) {
		return normalize.DefaultThresholds()
	}
	return o.Thresholds
}

// Mapper maps the raw records of one source.
type Mapper interface {
	Source() domain.Source
	Map(ctx context.Context, recs []records.Record, opts Options) domain.MapResult
}

var registry = map[domain.Source]func() *stationMapper{
	domain.SourceCV:  newCV,
	domain.SourceCAT: newCAT,
	domain.SourceGAL: newGAL,
}

// New returns a fresh mapper for src. Name counters live in the instance, so
// each run should use its own.
func New(src domain.Source) (Mapper, error) {
	ctor, ok := registry[src]
	if !ok {
		return nil, fmt.Errorf("mapper: unknown source %q", src)
	}
	return ctor(), nil
}

// profile is what distinguishes one source from another.
type profile struct {
	source    domain.Source
	community string
	dialect   normalize.Dialect
	classify  *classifier
	// padPostal repairs 4-digit postal codes that lost their leading zero.
	padPostal bool
	extract   func(records.Record) raw
	// locate fills station coordinates. It returns a discard error when a
	// fixed station cannot be given valid ones.
	locate func(ctx context.Context, st *domain.Station, r raw, u *domain.UnifiedData, d *draft, opts Options) error
}

// raw is the source-independent view of one record's fields.
type raw struct {
	Name        string
	TypeText    string
	Address     string
	PostalCode  string
	Locality    string
	Province    string
	Schedule    string
	Contact     string
	URL         string
	Description string
	// Number is the upstream station identifier, when published.
	Number string
	// Coordinates holds the unparsed coordinate fields: one combined
	// string (GAL) or latitude and longitude (CAT).
	Coordinates []string
}

type stationMapper struct {
	profile
	counters map[string]int
	names    map[string]bool
}

func newStationMapper(p profile) *stationMapper {
	return &stationMapper{profile: p, counters: make(map[string]int), names: make(map[string]bool)}
}

func (m *stationMapper) Source() domain.Source { return m.source }

// Map maps recs in order. An inactive source yields an empty result.
func (m *stationMapper) Map(ctx context.Context, recs []records.Record, opts Options) domain.MapResult {
	res := domain.MapResult{Source: m.source}
	if !opts.IsActive(m.source) {
		return res
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("mapper"), logger.String("source", string(m.source)))

	start := time.Now()
	matcher := normalize.NewProvinceMatcher(nil, opts.thresholds().FuzzyMatch)
	for _, rec := range recs {
		u, d, err := m.mapRecord(ctx, rec, matcher, opts)
		if err != nil {
			res.Discarded = append(res.Discarded, domain.DiscardedRecord{
				Source:   m.source,
				Name:     d.name,
				Locality: d.locality,
				Reason:   err.Error(),
			})
			log.Debug("record discarded", logger.String("name", d.name), logger.String("reason", err.Error()))
			continue
		}
		res.Unified = append(res.Unified, u)
		if rr, ok := d.record(); ok {
			res.Repaired = append(res.Repaired, rr)
		}
	}

	log.Info("source mapped",
		logger.Int("records", len(recs)),
		logger.Int("unified", len(res.Unified)),
		logger.Int("repaired", len(res.Repaired)),
		logger.Int("discarded", len(res.Discarded)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res
}

// mapRecord isolates one record: a panic becomes a discard.
func (m *stationMapper) mapRecord(ctx context.Context, rec records.Record, pm *normalize.ProvinceMatcher, opts Options) (u domain.UnifiedData, d *draft, err error) {
	d = &draft{source: m.source}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()
	u, err = m.mapStation(ctx, rec, pm, d, opts)
	return u, d, err
}
