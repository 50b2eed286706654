package mapper

import (
	"context"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
	"itvetl/internal/records"
	"itvetl/internal/reference"
)

// Catalunya XML row fields.
const (
	catName       = "denominaci"
	catNumber     = "estacio"
	catAddress    = "adre_a"
	catPostalCode = "cp"
	catLocality   = "municipi"
	catProvince   = "serveis_territorials"
	catLat        = "lat"
	catLon        = "long"
	catSchedule   = "horari_de_servei"
	catEmail      = "correu_electr_nic"
	catWeb        = "web"
)

// newCAT maps the Catalunya export. Coordinates are published as integers
// scaled by 10^5.
func newCAT() *stationMapper {
	return newStationMapper(profile{
		source:    domain.SourceCAT,
		community: reference.CommunityCataluna,
		dialect:   normalize.Catalan,
		classify:  newClassifier([]string{"movil", "mobil"}, []string{"fija", "fixa"}, domain.TypeFixed),
		extract: func(rec records.Record) raw {
			return raw{
				Name:        rec.String(catName),
				TypeText:    rec.String(catName),
				Address:     rec.String(catAddress),
				PostalCode:  rec.String(catPostalCode),
				Locality:    rec.String(catLocality),
				Province:    rec.String(catProvince),
				Schedule:    rec.String(catSchedule),
				Contact:     rec.String(catEmail),
				URL:         rec.String(catWeb),
				Number:      rec.String(catNumber),
				Description: rec.String(catNumber),
				Coordinates: []string{rec.String(catLat), rec.String(catLon)},
			}
		},
		locate: locateScaled,
	})
}

func locateScaled(_ context.Context, st *domain.Station, r raw, _ *domain.UnifiedData, d *draft, opts Options) error {
	lat, errLat := normalize.ParseScaled(r.Coordinates[0])
	lon, errLon := normalize.ParseScaled(r.Coordinates[1])
	return checkCoordinates(st, lat, lon, errLat == nil && errLon == nil, d, opts)
}
