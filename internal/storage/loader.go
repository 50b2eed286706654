package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"itvetl/internal/domain"
	"itvetl/internal/logger"
	"itvetl/internal/normalize"
)

// LoadStats reports what one Load persisted. Discards holds stations the
// loader itself refused; upstream discards are not repeated here.
type LoadStats struct {
	Loaded   int
	Discards []domain.DiscardedRecord
}

// Loader persists unified stations into a Store.
type Loader struct {
	store Store
	log   logger.Logger
}

// NewLoader returns a Loader writing into store. A nil log discards output.
func NewLoader(store Store, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{store: store, log: log.With(logger.Component("loader"))}
}

// locks holds one *sync.Mutex per store location.
var locks sync.Map

func lockLocation(location string) func() {
	v, _ := locks.LoadOrStore(location, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

type localityKey struct {
	name     string
	province int64
}

// Load rebuilds the store and inserts data in one transaction. Provinces and
// localities are created on first use, keyed by their folded name. A station
// whose (name, type) was already inserted in this batch is discarded. Any SQL
// error rolls the whole transaction back and is returned.
func (l *Loader) Load(ctx context.Context, data []domain.UnifiedData) (stats LoadStats, err error) {
	unlock := lockLocation(l.store.Location())
	defer unlock()

	start := time.Now()
	if err := l.store.Rebuild(ctx); err != nil {
		return LoadStats{}, fmt.Errorf("rebuild schema: %w", err)
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("begin load: %w", err)
	}
	committing := false
	defer func() {
		if err == nil {
			return
		}
		if committing {
			l.log.Error("load commit failed", logger.Error(err))
			stats = LoadStats{}
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		l.log.Error("load rolled back", logger.Error(err))
		stats = LoadStats{}
	}()

	var (
		provinces  = map[string]int64{}
		localities = map[localityKey]int64{}
		stations   = map[string]struct{}{}
	)

	for _, u := range data {
		key := normalize.Fold(u.Station.Name) + "\x00" + string(u.Station.Type)
		if _, dup := stations[key]; dup {
			stats.Discards = append(stats.Discards, domain.DiscardedRecord{
				Source:   u.Source,
				Name:     u.Station.Name,
				Locality: u.Locality,
				Reason:   domain.ReasonDuplicate,
			})
			continue
		}

		pkey := normalize.Fold(u.Province)
		province, ok := provinces[pkey]
		if !ok {
			province, err = tx.InsertProvince(ctx, u.Province)
			if err != nil {
				return stats, fmt.Errorf("insert province %q: %w", u.Province, err)
			}
			provinces[pkey] = province
		}

		var locality *int64
		if u.Locality != "" {
			lkey := localityKey{normalize.Fold(u.Locality), province}
			code, ok := localities[lkey]
			if !ok {
				code, err = tx.InsertLocality(ctx, u.Locality, province)
				if err != nil {
					return stats, fmt.Errorf("insert locality %q: %w", u.Locality, err)
				}
				localities[lkey] = code
			}
			locality = &code
		}

		if _, err = tx.InsertStation(ctx, u.Station, locality); err != nil {
			return stats, fmt.Errorf("insert station %q: %w", u.Station.Name, err)
		}
		stations[key] = struct{}{}
		stats.Loaded++
	}

	committing = true
	if err = tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit load: %w", err)
	}

	l.log.Info("load committed",
		logger.Int("loaded", stats.Loaded),
		logger.Int("provinces", len(provinces)),
		logger.Int("localities", len(localities)),
		logger.Int("discarded", len(stats.Discards)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}
