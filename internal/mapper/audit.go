package mapper

import (
	"errors"
	"fmt"

	"itvetl/internal/domain"
)

// Repair reasons.
const (
	reasonNameMissing      = "missing station name"
	reasonAddress          = "address not normalized"
	reasonLocality         = "locality not normalized"
	reasonProvinceDerived  = "province not recognized"
	reasonProvinceMismatch = "province inconsistent with postal code"
	reasonProvinceSpelling = "province name not canonical"
	reasonPostalPadded     = "postal code missing leading zero"
	reasonContactURL       = "contact is a URL"
	reasonCoordsDropped    = "invalid coordinates on non-fixed station"
)

// Discard reasons specific to mapping.
const (
	ReasonMissingLocality = "missing locality"
)

// ReasonInvalidPostalCode is the discard reason for a postal code that does
// not belong to community.
func ReasonInvalidPostalCode(community string) string {
	return "invalid postal code for community " + community
}

// draft accumulates the audit trail of one record while it is mapped.
type draft struct {
	source   domain.Source
	name     string
	locality string
	ops      []domain.RepairedOperation
}

func (d *draft) repair(reason, format string, args ...any) {
	d.ops = append(d.ops, domain.RepairedOperation{Reason: reason, Operation: fmt.Sprintf(format, args...)})
}

// record returns the repaired entry for a mapped station, if any repair
// happened.
func (d *draft) record() (domain.RepairedRecord, bool) {
	if len(d.ops) == 0 {
		return domain.RepairedRecord{}, false
	}
	return domain.RepairedRecord{
		Source:     d.source,
		Name:       d.name,
		Locality:   d.locality,
		Operations: d.ops,
	}, true
}

// discard is the error returned for an unrecoverable record.
func discard(reason string) error { return errors.New(reason) }
