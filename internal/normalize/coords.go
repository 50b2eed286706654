package normalize

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCoordinates is returned when a string holds no recognizable pair.
var ErrNoCoordinates = errors.New("no coordinate pair found")

// ValidCoordinates is the sanity check every Fixed station must pass.
func ValidCoordinates(lat, lon float64, th Thresholds) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if math.Abs(lat) >= th.GarbageMagnitude || math.Abs(lon) >= th.GarbageMagnitude {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if math.Abs(lat) < th.NearZero && math.Abs(lon) < th.NearZero {
		return false
	}
	return true
}

// dmsPart matches one "deg° min' H" group. Minutes may carry decimals with a
// dot or a comma, the hemisphere letter is optional and O (oeste) counts as
// west.
var dmsPart = regexp.MustCompile(`(-?\d{1,3}(?:[.,]\d+)?)\s*[°º]\s*(?:(\d{1,2}(?:[.,]\d+)?)\s*['′’]?)?\s*([NSEOW])?`)

// ParseDMS extracts a latitude/longitude pair from a degrees-minutes string
// such as "42° 52' N 8° 32' O". Each part converts as deg + min/60; southern
// and western hemispheres, or an explicit minus sign, negate the value.
func ParseDMS(s string) (lat, lon float64, err error) {
	m := dmsPart.FindAllStringSubmatch(s, 2)
	if len(m) < 2 {
		return 0, 0, ErrNoCoordinates
	}
	if lat, err = dmsValue(m[0]); err != nil {
		return 0, 0, err
	}
	if lon, err = dmsValue(m[1]); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func dmsValue(g []string) (float64, error) {
	deg, err := parseDecimal(g[1])
	if err != nil {
		return 0, err
	}
	var minutes float64
	if g[2] != "" {
		if minutes, err = parseDecimal(g[2]); err != nil {
			return 0, err
		}
		if minutes >= 60 {
			return 0, ErrNoCoordinates
		}
	}
	neg := strings.HasPrefix(g[1], "-")
	switch g[3] {
	case "S", "O", "W":
		neg = true
	}
	v := math.Abs(deg) + minutes/60
	if neg {
		v = -v
	}
	return v, nil
}

var decimalPair = regexp.MustCompile(`(-?\d{1,3}\.\d+)[\s,;]+(-?\d{1,3}\.\d+)`)

// ParseCoordinates accepts either a degrees-minutes string or a plain
// "lat, lon" decimal pair.
func ParseCoordinates(s string) (lat, lon float64, err error) {
	if lat, lon, err = ParseDMS(s); err == nil {
		return lat, lon, nil
	}
	m := decimalPair.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, ErrNoCoordinates
	}
	if lat, err = strconv.ParseFloat(m[1], 64); err != nil {
		return 0, 0, err
	}
	if lon, err = strconv.ParseFloat(m[2], 64); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// ParseScaled reads a coordinate published as an integer scaled by 1e5
// ("4138791" -> 41.38791). Values that already carry a decimal separator are
// parsed as-is.
func ParseScaled(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNoCoordinates
	}
	if strings.ContainsAny(s, ".,") {
		return parseDecimal(s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(n) / 100000, nil
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
