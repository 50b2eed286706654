package mapper

import (
	"context"
	"fmt"
	"strings"

	"itvetl/internal/domain"
	"itvetl/internal/normalize"
	"itvetl/internal/records"
	"itvetl/internal/reference"
)

// mapStation runs the shared validation and repair pipeline over one record.
// Order matters: the postal code is settled before the province so that the
// prefix can correct it, and the name is assigned last because it depends on
// the normalized locality.
func (m *stationMapper) mapStation(ctx context.Context, rec records.Record, pm *normalize.ProvinceMatcher, d *draft, opts Options) (domain.UnifiedData, error) {
	r := m.extract(rec)
	d.name = r.Name
	d.locality = r.Locality

	st := domain.Station{
		Name:        r.Name,
		Type:        m.classify.Classify(r.TypeText),
		Description: r.Description,
		Schedule:    r.Schedule,
	}
	fixed := st.Type == domain.TypeFixed

	locality := normalize.NormalizeLocality(r.Locality)
	if locality != r.Locality {
		d.repair(reasonLocality, "normalized from '%s' to '%s'", r.Locality, locality)
	}
	d.locality = locality
	if fixed && locality == "" {
		return domain.UnifiedData{}, discard(ReasonMissingLocality)
	}

	pc, err := m.postalCode(r.PostalCode, fixed, d)
	if err != nil {
		return domain.UnifiedData{}, err
	}
	st.PostalCode = domain.StrPtr(pc)

	province, err := resolveProvince(r.Province, pc, pm, d)
	if err != nil {
		return domain.UnifiedData{}, err
	}

	if addr := normalize.NormalizeAddress(r.Address, m.dialect); addr != "" {
		if addr != r.Address {
			d.repair(reasonAddress, "normalized from '%s' to '%s'", r.Address, addr)
		}
		st.Address = &addr
	}

	if st.Name == "" {
		st.Name = m.assignName(st.Type, locality, r, domain.Deref(st.Address))
		d.repair(reasonNameMissing, "assigned name '%s'", st.Name)
	}
	d.name = st.Name

	st.Contact, st.URL = contactAndURL(r.Contact, r.URL, d)

	u := domain.UnifiedData{Source: m.source, Province: province, Locality: locality}
	if err := m.locate(ctx, &st, r, &u, d, opts); err != nil {
		return domain.UnifiedData{}, err
	}
	u.Station = st
	return u, nil
}

// postalCode validates the raw code against the source's community. Non-fixed
// stations may omit it.
func (m *stationMapper) postalCode(code string, fixed bool, d *draft) (string, error) {
	pc := strings.ReplaceAll(code, " ", "")
	if m.padPostal && len(pc) == 4 && reference.IsPostalCode("0"+pc) {
		d.repair(reasonPostalPadded, "padded from '%s' to '0%s'", pc, pc)
		pc = "0" + pc
	}
	if pc == "" {
		if fixed {
			return "", discard(domain.ReasonMissingPostalCode)
		}
		return "", nil
	}
	if !reference.IsValidForCommunity(pc, m.community) {
		return "", discard(ReasonInvalidPostalCode(m.community))
	}
	return pc, nil
}

// resolveProvince fuzzy-matches name and reconciles it with the postal prefix,
// which is authoritative when present.
func resolveProvince(name, pc string, pm *normalize.ProvinceMatcher, d *draft) (string, error) {
	matched, _ := pm.Match(name)
	area, hasArea := reference.LookupPostalCode(pc)

	switch {
	case matched == reference.UnknownProvince && hasArea:
		d.repair(reasonProvinceDerived, "derived '%s' from postal code %s (was '%s')", area.Province, pc, name)
		return area.Province, nil
	case matched == reference.UnknownProvince:
		return "", discard(domain.ReasonUnknownProvince)
	case hasArea && matched != area.Province:
		d.repair(reasonProvinceMismatch, "corrected from '%s' to '%s'", name, area.Province)
		return area.Province, nil
	case !normalize.EqualFold(name, matched):
		d.repair(reasonProvinceSpelling, "normalized from '%s' to '%s'", name, matched)
	}
	return matched, nil
}

// assignName derives a name for a station published without one. Fixed
// stations are named after their locality; others get a numbered name per
// subtype, e.g. "Estación ITV (CV) Móvil 01".
func (m *stationMapper) assignName(t domain.StationType, locality string, r raw, address string) string {
	if t == domain.TypeFixed {
		name := "Estación ITV de " + locality
		if m.names[name] && r.Number != "" {
			name = fmt.Sprintf("%s (%s)", name, r.Number)
		}
		m.names[name] = true
		return name
	}
	sub := m.classify.Subtype(address+" "+r.TypeText, t)
	m.counters[sub]++
	return fmt.Sprintf("Estación ITV (%s) %s %02d", m.source, sub, m.counters[sub])
}

// contactAndURL keeps URLs out of the contact column. A URL published as the
// only contact becomes the station URL.
func contactAndURL(contact, url string, d *draft) (*string, *string) {
	if normalize.IsURL(contact) {
		if url == "" {
			url = contact
			d.repair(reasonContactURL, "moved '%s' to url", contact)
		} else {
			d.repair(reasonContactURL, "dropped '%s'", contact)
		}
		contact = ""
	}
	return domain.StrPtr(contact), domain.StrPtr(url)
}

// checkCoordinates applies the sanity check to a parsed pair. Fixed
// stations are discarded on failure; other stations just lose the pair.
func checkCoordinates(st *domain.Station, lat, lon float64, ok bool, d *draft, opts Options) error {
	if ok && normalize.ValidCoordinates(lat, lon, opts.thresholds()) {
		st.Latitude, st.Longitude = domain.FloatPtr(lat), domain.FloatPtr(lon)
		return nil
	}
	if st.Type == domain.TypeFixed {
		return discard(domain.ReasonInvalidCoordinates)
	}
	if ok {
		d.repair(reasonCoordsDropped, "dropped (%g, %g)", lat, lon)
	}
	return nil
}
