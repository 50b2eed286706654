package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itvetl/internal/domain"
	"itvetl/internal/geocode"
	"itvetl/internal/records"
	"itvetl/internal/reference"
)

func mapWith(t *testing.T, src domain.Source, opts Options, recs ...records.Record) domain.MapResult {
	t.Helper()
	m, err := New(src)
	require.NoError(t, err)
	assert.Equal(t, src, m.Source())
	return m.Map(context.Background(), recs, opts)
}

func catRecord(cp string) records.Record {
	return records.Record{
		"denominaci":           "ITV Barcelona Zona Franca",
		"estacio":              "0801",
		"adre_a":               "Carrer 3, 14",
		"cp":                   cp,
		"municipi":             "Barcelona",
		"serveis_territorials": "Barcelona",
		"lat":                  "4135012",
		"long":                 "214561",
		"horari_de_servei":     "De dilluns a divendres de 7 a 21 h",
		"correu_electr_nic":    "itv@example.cat",
		"web":                  "https://itv.example.cat",
	}
}

func TestCATValidRecordLoadsWithoutRepairs(t *testing.T) {
	res := mapWith(t, domain.SourceCAT, Options{}, catRecord("08080"))

	require.Len(t, res.Unified, 1)
	assert.Empty(t, res.Repaired)
	assert.Empty(t, res.Discarded)

	u := res.Unified[0]
	assert.Equal(t, domain.SourceCAT, u.Source)
	assert.Equal(t, "Barcelona", u.Province)
	assert.Equal(t, "Barcelona", u.Locality)
	assert.Equal(t, domain.TypeFixed, u.Station.Type)
	assert.Equal(t, "08080", domain.Deref(u.Station.PostalCode))
	require.NotNil(t, u.Station.Latitude)
	assert.InDelta(t, 41.35012, *u.Station.Latitude, 1e-9)
	assert.InDelta(t, 2.14561, *u.Station.Longitude, 1e-9)
	assert.Equal(t, "itv@example.cat", domain.Deref(u.Station.Contact))
	assert.Equal(t, "https://itv.example.cat", domain.Deref(u.Station.URL))
}

func TestCATPostalCodeFromOtherCommunityIsDiscarded(t *testing.T) {
	res := mapWith(t, domain.SourceCAT, Options{}, catRecord("46001"))

	assert.Empty(t, res.Unified)
	require.Len(t, res.Discarded, 1)
	d := res.Discarded[0]
	assert.Equal(t, "ITV Barcelona Zona Franca", d.Name)
	assert.Equal(t, "Barcelona", d.Locality)
	assert.Equal(t, "invalid postal code for community "+reference.CommunityCataluna, d.Reason)
}

func TestCATInvalidCoordinates(t *testing.T) {
	rec := catRecord("08080")
	rec["lat"], rec["long"] = "0", "0"
	res := mapWith(t, domain.SourceCAT, Options{}, rec)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, domain.ReasonInvalidCoordinates, res.Discarded[0].Reason)

	rec = catRecord("08080")
	delete(rec, "long")
	res = mapWith(t, domain.SourceCAT, Options{}, rec)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, domain.ReasonInvalidCoordinates, res.Discarded[0].Reason)
}

func TestCVRepairs(t *testing.T) {
	res := mapWith(t, domain.SourceCV, Options{}, records.Record{
		"TIPO ESTACIÓN": "Estación Fija",
		"PROVINCIA":     "Alacant",
		"MUNICIPIO":     "Alicante",
		"C.POSTAL":      float64(3006),
		"DIRECCIÓN":     "C/ Mayor 10",
		"Nº ESTACIÓN":   "0301",
		"HORARIOS":      "L-V 8:00-20:00",
		"CORREO":        "www.sitval.com",
	})

	require.Len(t, res.Unified, 1)
	st := res.Unified[0].Station
	assert.Equal(t, "Estación ITV de Alicante", st.Name)
	assert.Equal(t, domain.TypeFixed, st.Type)
	assert.Equal(t, "03006", domain.Deref(st.PostalCode))
	assert.Equal(t, "Calle Mayor, 10", domain.Deref(st.Address))
	assert.Nil(t, st.Contact)
	assert.Equal(t, "www.sitval.com", domain.Deref(st.URL))
	assert.Nil(t, st.Latitude, "coordinates stay null without validation")
	assert.Equal(t, "Estación nº 0301", st.Description)
	assert.Equal(t, "Alicante", res.Unified[0].Province)

	require.Len(t, res.Repaired, 1)
	rr := res.Repaired[0]
	assert.Equal(t, "Estación ITV de Alicante", rr.Name)
	assert.Equal(t, "Alicante", rr.Locality)

	var reasons []string
	for _, op := range rr.Operations {
		reasons = append(reasons, op.Reason)
	}
	assert.Equal(t, []string{
		reasonPostalPadded,
		reasonProvinceSpelling,
		reasonAddress,
		reasonNameMissing,
		reasonContactURL,
	}, reasons)
}

func TestCVProvinceCorrectedFromPostalCode(t *testing.T) {
	res := mapWith(t, domain.SourceCV, Options{}, records.Record{
		"TIPO ESTACIÓN": "Estación Fija",
		"PROVINCIA":     "Valencia",
		"MUNICIPIO":     "Vila-real",
		"C.POSTAL":      "12540",
	})
	require.Len(t, res.Unified, 1)
	assert.Equal(t, "Castellón", res.Unified[0].Province)
	require.Len(t, res.Repaired, 1)
	assert.Equal(t, reasonProvinceMismatch, res.Repaired[0].Operations[0].Reason)
}

func TestCVDiscards(t *testing.T) {
	res := mapWith(t, domain.SourceCV, Options{},
		records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "MUNICIPIO": "Valencia", "C.POSTAL": "08080"},
		records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "MUNICIPIO": "Valencia"},
		records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "C.POSTAL": "46001"},
		records.Record{"TIPO ESTACIÓN": "Estación Móvil", "PROVINCIA": "zzzzzzzz"},
	)
	assert.Empty(t, res.Unified)

	var reasons []string
	for _, d := range res.Discarded {
		reasons = append(reasons, d.Reason)
	}
	assert.Equal(t, []string{
		"invalid postal code for community " + reference.CommunityValenciana,
		domain.ReasonMissingPostalCode,
		ReasonMissingLocality,
		domain.ReasonUnknownProvince,
	}, reasons)
}

func TestCVGeneratedNames(t *testing.T) {
	mobile := func(addr string) records.Record {
		return records.Record{"TIPO ESTACIÓN": "Estación Móvil", "PROVINCIA": "Valencia", "DIRECCIÓN": addr}
	}
	res := mapWith(t, domain.SourceCV, Options{},
		mobile("Unidad 1"),
		mobile("Unidad agrícola"),
		mobile("Unidad 2"),
		records.Record{"TIPO ESTACIÓN": "Otros", "PROVINCIA": "Valencia"},
		records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "MUNICIPIO": "Valencia", "C.POSTAL": "46001", "Nº ESTACIÓN": "4601"},
		records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "MUNICIPIO": "Valencia", "C.POSTAL": "46002", "Nº ESTACIÓN": "4602"},
	)
	require.Empty(t, res.Discarded)

	var names []string
	for _, u := range res.Unified {
		names = append(names, u.Station.Name)
	}
	assert.Equal(t, []string{
		"Estación ITV (CV) Móvil 01",
		"Estación ITV (CV) Agrícola 01",
		"Estación ITV (CV) Móvil 02",
		"Estación ITV (CV) Otros 01",
		"Estación ITV de Valencia",
		"Estación ITV de Valencia (4602)",
	}, names)
	assert.Equal(t, domain.TypeOther, res.Unified[3].Station.Type)

	// Counters belong to the instance: a new mapper starts again at 01.
	again := mapWith(t, domain.SourceCV, Options{}, mobile("Unidad 1"))
	assert.Equal(t, "Estación ITV (CV) Móvil 01", again.Unified[0].Station.Name)
}

type fakeResolver struct {
	answers map[string]geocode.Coordinates
	calls   []geocode.Query
}

func (f *fakeResolver) Resolve(_ context.Context, q geocode.Query) (geocode.Coordinates, bool) {
	f.calls = append(f.calls, q)
	c, ok := f.answers[q.Address]
	return c, ok
}

func TestCVGeocoding(t *testing.T) {
	geo := &fakeResolver{answers: map[string]geocode.Coordinates{
		"Calle Colón, 1": {Lat: 39.4699, Lon: -0.3763},
		"Calle Cero, 1":  {Lat: 0, Lon: 0},
	}}
	fixed := func(addr string) records.Record {
		return records.Record{"TIPO ESTACIÓN": "Estación Fija", "PROVINCIA": "Valencia", "MUNICIPIO": "Valencia", "C.POSTAL": "46004", "DIRECCIÓN": addr}
	}
	opts := Options{ValidateCoordinates: true, Geocoder: geo}

	res := mapWith(t, domain.SourceCV, opts,
		fixed("Calle Colón, 1"),
		fixed("Calle Cero, 1"),
		fixed("Calle Perdida, 9"),
		records.Record{"TIPO ESTACIÓN": "Estación Móvil", "PROVINCIA": "Valencia"},
	)

	require.Len(t, res.Unified, 2)
	st := res.Unified[0].Station
	require.NotNil(t, st.Latitude)
	assert.InDelta(t, 39.4699, *st.Latitude, 1e-9)
	assert.Nil(t, res.Unified[1].Station.Latitude, "mobile stations are not geocoded")

	require.Len(t, res.Discarded, 2)
	assert.Equal(t, domain.ReasonInvalidCoordinates, res.Discarded[0].Reason)
	assert.Equal(t, domain.ReasonInvalidCoordinates, res.Discarded[1].Reason)

	require.Len(t, geo.calls, 3)
	assert.Equal(t, geocode.Query{Address: "Calle Colón, 1", PostalCode: "46004", Locality: "Valencia", Province: "Valencia"}, geo.calls[0])
}

func TestGAL(t *testing.T) {
	rec := records.Record{
		"NOME DA ESTACIÓN":          "Estación ITV de Santiago",
		"ENDEREZO":                  "Rúa Vía Pasteur, 45",
		"CONCELLO":                  "Santiago de Compostela",
		"CÓDIGO POSTAL":             "15890",
		"PROVINCIA":                 "A Coruña",
		"TELÉFONO":                  "981 000 000",
		"HORARIO":                   "L-V 7:00-21:00",
		"SOLICITUDE DE CITA PREVIA": "https://cita.example.gal",
		"CORREO ELECTRÓNICO":        "itv@example.gal",
		"COORDENADAS GMAPS":         "42° 52' N 8° 32' O",
	}
	zero := records.Record{}
	for k, v := range rec {
		zero[k] = v
	}
	zero["NOME DA ESTACIÓN"] = "Estación ITV de Ames"
	zero["COORDENADAS GMAPS"] = "0° 0' N 0° 0' E"

	res := mapWith(t, domain.SourceGAL, Options{}, rec, zero)

	require.Len(t, res.Unified, 1)
	st := res.Unified[0].Station
	assert.Equal(t, domain.TypeFixed, st.Type)
	assert.Equal(t, "981 000 000 / itv@example.gal", domain.Deref(st.Contact))
	assert.Equal(t, "https://cita.example.gal", domain.Deref(st.URL))
	assert.InDelta(t, 42.867, *st.Latitude, 0.001)
	assert.InDelta(t, -8.533, *st.Longitude, 0.001)
	assert.Equal(t, "A Coruña", res.Unified[0].Province)

	require.Len(t, res.Discarded, 1)
	assert.Equal(t, "Estación ITV de Ames", res.Discarded[0].Name)
	assert.Equal(t, domain.ReasonInvalidCoordinates, res.Discarded[0].Reason)
}

func TestGALLocalityArticle(t *testing.T) {
	res := mapWith(t, domain.SourceGAL, Options{}, records.Record{
		"NOME DA ESTACIÓN":  "Estación ITV de As Pontes",
		"CONCELLO":          "Pontes de García Rodríguez, As",
		"CÓDIGO POSTAL":     "15320",
		"PROVINCIA":         "A Coruña",
		"COORDENADAS GMAPS": "43.4500, -7.8500",
	})
	require.Len(t, res.Unified, 1)
	assert.Equal(t, "As Pontes de García Rodríguez", res.Unified[0].Locality)
	require.Len(t, res.Repaired, 1)
	assert.Equal(t, reasonLocality, res.Repaired[0].Operations[0].Reason)
	assert.Equal(t, "As Pontes de García Rodríguez", res.Repaired[0].Locality)
}

func TestInactiveSourceIsEmpty(t *testing.T) {
	res := mapWith(t, domain.SourceGAL, Options{Active: map[domain.Source]bool{domain.SourceCV: true}}, records.Record{"x": "y"})
	assert.Equal(t, domain.MapResult{Source: domain.SourceGAL}, res)
}

func TestPanicDiscardsOnlyThatRecord(t *testing.T) {
	m := newStationMapper(profile{
		source:    domain.SourceGAL,
		community: reference.CommunityGalicia,
		classify:  newClassifier([]string{"movil"}, nil, domain.TypeMobile),
		extract: func(rec records.Record) raw {
			if rec.Has("boom") {
				panic("boom")
			}
			return raw{Province: "Lugo", Locality: "Lugo"}
		},
		locate: func(context.Context, *domain.Station, raw, *domain.UnifiedData, *draft, Options) error { return nil },
	})

	res := m.Map(context.Background(), []records.Record{{"boom": "1"}, {"ok": "1"}}, Options{})
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, "unexpected error: boom", res.Discarded[0].Reason)
	require.Len(t, res.Unified, 1)
	assert.Equal(t, "Estación ITV (GAL) Móvil 01", res.Unified[0].Station.Name)
}

func TestUnknownSource(t *testing.T) {
	_, err := New("AND")
	assert.Error(t, err)
}

func TestClassifier(t *testing.T) {
	cv := newClassifier([]string{"movil"}, []string{"fija"}, domain.TypeOther)
	assert.Equal(t, domain.TypeMobile, cv.Classify("ESTACIÓN MÓVIL"))
	assert.Equal(t, domain.TypeFixed, cv.Classify("Estación Fija"))
	assert.Equal(t, domain.TypeOther, cv.Classify("Otros"))
	assert.Equal(t, domain.TypeMobile, cv.Classify("fija o movil"))

	cat := newClassifier([]string{"movil", "mobil"}, []string{"fija", "fixa"}, domain.TypeFixed)
	assert.Equal(t, domain.TypeMobile, cat.Classify("ITV mòbil agrícola"))
	assert.Equal(t, domain.TypeFixed, cat.Classify("Estació fixa"))
	assert.Equal(t, domain.TypeFixed, cat.Classify("ITV Reus"))
}
