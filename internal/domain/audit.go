package domain

// RepairedOperation is one automatic correction applied to a station.
type RepairedOperation struct {
	Reason    string `json:"motivo"`
	Operation string `json:"operacion"`
}

// RepairedRecord groups every correction applied to one logical station.
type RepairedRecord struct {
	Source     Source              `json:"fuente"`
	Name       string              `json:"nombre"`
	Locality   string              `json:"localidad"`
	Operations []RepairedOperation `json:"operaciones"`
}

// DiscardedRecord is a station dropped from the load and the reason why.
type DiscardedRecord struct {
	Source   Source `json:"fuente"`
	Name     string `json:"nombre"`
	Locality string `json:"localidad"`
	Reason   string `json:"motivo"`
}

// MapResult is the output of one source mapper.
type MapResult struct {
	Source    Source
	Unified   []UnifiedData
	Repaired  []RepairedRecord
	Discarded []DiscardedRecord
}

// LoadResult is the terminal output of one load run.
type LoadResult struct {
	Loaded    int               `json:"cargados"`
	Repaired  int               `json:"reparados"`
	Discarded int               `json:"descartados"`
	Repairs   []RepairedRecord  `json:"registros_reparados"`
	Discards  []DiscardedRecord `json:"registros_descartados"`
}

// Recount sets the repaired and discarded counters from the audit lists.
func (r *LoadResult) Recount() {
	r.Repaired = len(r.Repairs)
	r.Discarded = len(r.Discards)
}

type auditKey struct {
	source   Source
	name     string
	locality string
}

// DropRepairsOf removes the repair entries of discarded stations so a station
// is never counted as both repaired and discarded. An entry is kept while a
// station with the same source, name and locality remains in kept.
func (r *LoadResult) DropRepairsOf(discards []DiscardedRecord, kept []UnifiedData) {
	if len(discards) == 0 || len(r.Repairs) == 0 {
		return
	}
	alive := make(map[auditKey]bool, len(kept))
	for _, u := range kept {
		alive[auditKey{u.Source, u.Station.Name, u.Locality}] = true
	}
	gone := map[auditKey]bool{}
	for _, d := range discards {
		if k := (auditKey{d.Source, d.Name, d.Locality}); !alive[k] {
			gone[k] = true
		}
	}
	out := r.Repairs[:0]
	for _, rr := range r.Repairs {
		if !gone[auditKey{rr.Source, rr.Name, rr.Locality}] {
			out = append(out, rr)
		}
	}
	r.Repairs = out
	r.Recount()
}

// Discard reasons shared by several stages.
const (
	ReasonDuplicate          = "duplicate station in source data"
	ReasonUnknownProvince    = "unknown province"
	ReasonInvalidCoordinates = "invalid coordinates"
	ReasonMissingPostalCode  = "missing postal code"
)
