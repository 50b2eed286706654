package mapper

import (
	"context"

	"itvetl/internal/domain"
	"itvetl/internal/geocode"
	"itvetl/internal/normalize"
	"itvetl/internal/records"
	"itvetl/internal/reference"
)

// Comunitat Valenciana JSON fields.
const (
	cvType       = "TIPO ESTACIÓN"
	cvProvince   = "PROVINCIA"
	cvLocality   = "MUNICIPIO"
	cvPostalCode = "C.POSTAL"
	cvAddress    = "DIRECCIÓN"
	cvNumber     = "Nº ESTACIÓN"
	cvSchedule   = "HORARIOS"
	cvEmail      = "CORREO"
)

// newCV maps the Comunitat Valenciana export. It publishes no names and no
// coordinates; fixed stations are geocoded from their address when
// coordinate validation is requested.
func newCV() *stationMapper {
	return newStationMapper(profile{
		source:    domain.SourceCV,
		community: reference.CommunityValenciana,
		dialect:   normalize.Spanish,
		classify:  newClassifier([]string{"movil"}, []string{"fija"}, domain.TypeOther),
		padPostal: true,
		extract: func(rec records.Record) raw {
			r := raw{
				TypeText:   rec.String(cvType),
				Address:    rec.String(cvAddress),
				PostalCode: rec.String(cvPostalCode),
				Locality:   rec.String(cvLocality),
				Province:   rec.String(cvProvince),
				Schedule:   rec.String(cvSchedule),
				Contact:    rec.String(cvEmail),
				Number:     rec.String(cvNumber),
			}
			if r.Number != "" {
				r.Description = "Estación nº " + r.Number
			}
			return r
		},
		locate: locateCV,
	})
}

func locateCV(ctx context.Context, st *domain.Station, r raw, u *domain.UnifiedData, d *draft, opts Options) error {
	if st.Type != domain.TypeFixed || !opts.ValidateCoordinates || opts.Geocoder == nil {
		return nil
	}
	c, ok := opts.Geocoder.Resolve(ctx, geocode.Query{
		Address:    domain.Deref(st.Address),
		PostalCode: domain.Deref(st.PostalCode),
		Locality:   u.Locality,
		Province:   u.Province,
	})
	return checkCoordinates(st, c.Lat, c.Lon, ok, d, opts)
}
