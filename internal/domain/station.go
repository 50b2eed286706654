// Package domain holds the unified station model shared by the mappers, the
// reconciliation engine and the persistence loader, together with the audit
// records that describe what each load repaired or discarded.
package domain

import (
	"fmt"
	"strings"
)

// Source identifies one regional publisher of ITV station directories.
type Source string

const (
	SourceCV  Source = "CV"  // Comunitat Valenciana, JSON export
	SourceCAT Source = "CAT" // Catalunya, XML export
	SourceGAL Source = "GAL" // Galicia, CSV export
)

// AllSources lists every known source in the default processing order.
var AllSources = []Source{SourceCV, SourceCAT, SourceGAL}

// ParseSource maps a case-insensitive identifier onto a Source.
func ParseSource(s string) (Source, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CV":
		return SourceCV, nil
	case "CAT":
		return SourceCAT, nil
	case "GAL":
		return SourceGAL, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// StationType classifies inspection points by mobility.
type StationType string

const (
	TypeFixed  StationType = "Estación fija"
	TypeMobile StationType = "Estación móvil"
	TypeOther  StationType = "Otros"
)

// Station is one physical or mobile inspection point. Nullable columns are
// pointers so the loader can write SQL NULL.
type Station struct {
	Name        string
	Type        StationType
	Address     *string
	PostalCode  *string
	Longitude   *float64
	Latitude    *float64
	Description string
	Schedule    string
	Contact     *string
	URL         *string
}

// UnifiedData is a mapped station plus the raw province and locality names it
// belongs to. Names are resolved into foreign keys by the loader.
type UnifiedData struct {
	Source   Source
	Station  Station
	Province string
	Locality string
}

// StrPtr returns nil for an empty string, a pointer to s otherwise.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
