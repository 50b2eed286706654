// Package reconcile merges per-source mapping results into one load set.
//
// Sources are visited in the order the caller gives. The first station seen
// with a given (name, type) wins; later ones are reported as duplicates, so
// changing the order changes which source's copy is kept.
package reconcile

import (
	"github.com/zeebo/xxh3"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
)

// Outcome is the merged view handed to the loader. Result carries the audit
// lists; its Loaded count is filled in after the load.
type Outcome struct {
	Unified []domain.UnifiedData
	Result  domain.LoadResult
}

// StationKey is the folded (name, type) identity of a station.
func StationKey(name string, t domain.StationType) string {
	return normalize.Fold(name) + "\x00" + string(t)
}

// keySet is a set of station keys bucketed by their xxh3 hash.
type keySet map[uint64][]string

func (s keySet) add(key string) bool {
	h := xxh3.HashString(key)
	for _, k := range s[h] {
		if k == key {
			return false
		}
	}
	s[h] = append(s[h], key)
	return true
}

type repairKey struct {
	source   domain.Source
	name     string
	locality string
}

type opKey struct{ reason, op string }

// Reconcile merges results in order. Sources missing from results are
// skipped.
func Reconcile(order []domain.Source, results map[domain.Source]domain.MapResult) Outcome {
	var (
		out     Outcome
		dups    []domain.DiscardedRecord
		seen    = keySet{}
		repairs = map[repairKey]int{}
		ops     = map[repairKey]map[opKey]struct{}{}
	)

	for _, src := range order {
		res, ok := results[src]
		if !ok {
			continue
		}

		for _, u := range res.Unified {
			if !seen.add(StationKey(u.Station.Name, u.Station.Type)) {
				d := domain.DiscardedRecord{
					Source:   u.Source,
					Name:     u.Station.Name,
					Locality: u.Locality,
					Reason:   domain.ReasonDuplicate,
				}
				dups = append(dups, d)
				out.Result.Discards = append(out.Result.Discards, d)
				continue
			}
			out.Unified = append(out.Unified, u)
		}

		for _, rr := range res.Repaired {
			k := repairKey{rr.Source, rr.Name, rr.Locality}
			idx, exists := repairs[k]
			if !exists {
				idx = len(out.Result.Repairs)
				repairs[k] = idx
				ops[k] = map[opKey]struct{}{}
				out.Result.Repairs = append(out.Result.Repairs, domain.RepairedRecord{
					Source: rr.Source, Name: rr.Name, Locality: rr.Locality,
				})
			}
			for _, op := range rr.Operations {
				opk := opKey{op.Reason, op.Operation}
				if _, dup := ops[k][opk]; dup {
					continue
				}
				ops[k][opk] = struct{}{}
				out.Result.Repairs[idx].Operations = append(out.Result.Repairs[idx].Operations, op)
			}
		}

		out.Result.Discards = append(out.Result.Discards, res.Discarded...)
	}

	out.Result.DropRepairsOf(dups, out.Unified)
	out.Result.Recount()
	return out
}
