// Package reference holds the static tables the mappers validate against:
// the postal-code prefix map and the canonical province list.
package reference

import "sort"

// Autonomous communities served by the supported sources, spelled the way
// the audit messages report them.
const (
	CommunityValenciana = "Comunitat Valenciana"
	CommunityCataluna   = "Cataluña"
	CommunityGalicia    = "Galicia"
)

// UnknownProvince is the placeholder returned when no province resolves.
const UnknownProvince = "Desconocida"

// PostalArea is the province and community a two-digit postal prefix belongs
// to.
type PostalArea struct {
	Province  string
	Community string
}

var postalPrefixes = map[string]PostalArea{
	"01": {"Álava", "País Vasco"},
	"02": {"Albacete", "Castilla-La Mancha"},
	"03": {"Alicante", CommunityValenciana},
	"04": {"Almería", "Andalucía"},
	"05": {"Ávila", "Castilla y León"},
	"06": {"Badajoz", "Extremadura"},
	"07": {"Illes Balears", "Illes Balears"},
	"08": {"Barcelona", CommunityCataluna},
	"09": {"Burgos", "Castilla y León"},
	"10": {"Cáceres", "Extremadura"},
	"11": {"Cádiz", "Andalucía"},
	"12": {"Castellón", CommunityValenciana},
	"13": {"Ciudad Real", "Castilla-La Mancha"},
	"14": {"Córdoba", "Andalucía"},
	"15": {"A Coruña", CommunityGalicia},
	"16": {"Cuenca", "Castilla-La Mancha"},
	"17": {"Girona", CommunityCataluna},
	"18": {"Granada", "Andalucía"},
	"19": {"Guadalajara", "Castilla-La Mancha"},
	"20": {"Gipuzkoa", "País Vasco"},
	"21": {"Huelva", "Andalucía"},
	"22": {"Huesca", "Aragón"},
	"23": {"Jaén", "Andalucía"},
	"24": {"León", "Castilla y León"},
	"25": {"Lleida", CommunityCataluna},
	"26": {"La Rioja", "La Rioja"},
	"27": {"Lugo", CommunityGalicia},
	"28": {"Madrid", "Comunidad de Madrid"},
	"29": {"Málaga", "Andalucía"},
	"30": {"Murcia", "Región de Murcia"},
	"31": {"Navarra", "Navarra"},
	"32": {"Ourense", CommunityGalicia},
	"33": {"Asturias", "Asturias"},
	"34": {"Palencia", "Castilla y León"},
	"35": {"Las Palmas", "Canarias"},
	"36": {"Pontevedra", CommunityGalicia},
	"37": {"Salamanca", "Castilla y León"},
	"38": {"Santa Cruz de Tenerife", "Canarias"},
	"39": {"Cantabria", "Cantabria"},
	"40": {"Segovia", "Castilla y León"},
	"41": {"Sevilla", "Andalucía"},
	"42": {"Soria", "Castilla y León"},
	"43": {"Tarragona", CommunityCataluna},
	"44": {"Teruel", "Aragón"},
	"45": {"Toledo", "Castilla-La Mancha"},
	"46": {"Valencia", CommunityValenciana},
	"47": {"Valladolid", "Castilla y León"},
	"48": {"Bizkaia", "País Vasco"},
	"49": {"Zamora", "Castilla y León"},
	"50": {"Zaragoza", "Aragón"},
	"51": {"Ceuta", "Ceuta"},
	"52": {"Melilla", "Melilla"},
}

var provinces = func() []string {
	out := make([]string, 0, len(postalPrefixes))
	for _, a := range postalPrefixes {
		out = append(out, a.Province)
	}
	sort.Strings(out)
	return out
}()

// Provinces returns the canonical province names, sorted.
func Provinces() []string {
	out := make([]string, len(provinces))
	copy(out, provinces)
	return out
}

// IsPostalCode reports whether p is exactly five ASCII digits.
func IsPostalCode(p string) bool {
	if len(p) != 5 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

// LookupPostalCode returns the area a well-formed postal code belongs to.
func LookupPostalCode(p string) (PostalArea, bool) {
	if !IsPostalCode(p) {
		return PostalArea{}, false
	}
	a, ok := postalPrefixes[p[:2]]
	return a, ok
}

// IsValidForCommunity reports whether p is a well-formed postal code whose
// prefix belongs to community c.
func IsValidForCommunity(p, c string) bool {
	a, ok := LookupPostalCode(p)
	return ok && a.Community == c
}
