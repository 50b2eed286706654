package mapper

import (
	"context"
	"strings"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
	"itvetl/internal/records"
	"itvetl/internal/reference"
)

// Galicia CSV columns.
const (
	galName        = "NOME DA ESTACIÓN"
	galAddress     = "ENDEREZO"
	galLocality    = "CONCELLO"
	galPostalCode  = "CÓDIGO POSTAL"
	galProvince    = "PROVINCIA"
	galPhone       = "TELÉFONO"
	galSchedule    = "HORARIO"
	galAppointment = "SOLICITUDE DE CITA PREVIA"
	galEmail       = "CORREO ELECTRÓNICO"
	galCoordinates = "COORDENADAS GMAPS"
)

// newGAL maps the Galicia export. Coordinates come as one degrees-minutes
// string; the appointment link is the station URL.
func newGAL() *stationMapper {
	return newStationMapper(profile{
		source:    domain.SourceGAL,
		community: reference.CommunityGalicia,
		dialect:   normalize.Spanish,
		classify:  newClassifier([]string{"movil", "mobil"}, []string{"fija", "fixa"}, domain.TypeFixed),
		extract: func(rec records.Record) raw {
			var contact []string
			for _, k := range []string{galPhone, galEmail} {
				if v := rec.String(k); v != "" {
					contact = append(contact, v)
				}
			}
			return raw{
				Name:        rec.String(galName),
				TypeText:    rec.String(galName),
				Address:     rec.String(galAddress),
				PostalCode:  rec.String(galPostalCode),
				Locality:    rec.String(galLocality),
				Province:    rec.String(galProvince),
				Schedule:    rec.String(galSchedule),
				Contact:     strings.Join(contact, " / "),
				URL:         rec.String(galAppointment),
				Coordinates: []string{rec.String(galCoordinates)},
			}
		},
		locate: locateDMS,
	})
}

func locateDMS(_ context.Context, st *domain.Station, r raw, _ *domain.UnifiedData, d *draft, opts Options) error {
	lat, lon, err := normalize.ParseCoordinates(r.Coordinates[0])
	return checkCoordinates(st, lat, lon, err == nil, d, opts)
}
