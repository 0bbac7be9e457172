package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/internal/calerr"
)

const dateTimeLayout = "20060102T150405"

// parseDateTime resolves a DTSTART/DTEND/RDATE/EXDATE value to a UTC unix
// timestamp, honoring an optional TZID parameter and a trailing "Z"
// denoting UTC.
func parseDateTime(prop *ical.Prop) (int64, error) {
	value := prop.Value
	tzid := prop.Params.Get("TZID")

	if strings.HasSuffix(value, "Z") {
		t, err := time.ParseInLocation(dateTimeLayout+"Z", value, time.UTC)
		if err != nil {
			return 0, calerr.Wrap(calerr.ParseError, "malformed UTC date-time: "+value, err)
		}
		return t.Unix(), nil
	}

	loc := time.UTC
	if tzid != "" {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return 0, calerr.Wrap(calerr.ParseError, "unknown TZID: "+tzid, err)
		}
		loc = l
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, loc)
	if err != nil {
		return 0, calerr.Wrap(calerr.ParseError, "malformed date-time: "+value, err)
	}
	return t.UTC().Unix(), nil
}

// parseGeoValue parses a "lat;long" GEO value.
func parseGeoValue(value string) (geo.Point, error) {
	parts := strings.SplitN(value, ";", 2)
	if len(parts) != 2 {
		return geo.Point{}, calerr.New(calerr.ParseError, "malformed GEO value: "+value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, calerr.Wrap(calerr.ParseError, "malformed GEO latitude: "+value, err)
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, calerr.Wrap(calerr.ParseError, "malformed GEO longitude: "+value, err)
	}
	return geo.NewPoint(lat, long)
}

// parseISODuration parses an RFC 5545 DURATION value (e.g. "P1DT2H3M4S",
// "-PT5M") into a count of seconds.
func parseISODuration(value string) (int64, error) {
	s := value
	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, calerr.New(calerr.ParseError, "malformed DURATION value: "+value)
	}
	s = s[1:]

	var total int64
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'W':
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, calerr.Wrap(calerr.ParseError, "malformed DURATION value: "+value, err)
			}
			total += n * 7 * 24 * 3600
			num = ""
		case r == 'D':
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, calerr.Wrap(calerr.ParseError, "malformed DURATION value: "+value, err)
			}
			total += n * 24 * 3600
			num = ""
		case r == 'H':
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, calerr.Wrap(calerr.ParseError, "malformed DURATION value: "+value, err)
			}
			total += n * 3600
			num = ""
		case r == 'M':
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, calerr.Wrap(calerr.ParseError, "malformed DURATION value: "+value, err)
			}
			if inTime {
				total += n * 60
			} else {
				total += n * 30 * 24 * 3600 // a bare "M" outside time part is months; unsupported precisely, approximate
			}
			num = ""
		case r == 'S':
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, calerr.Wrap(calerr.ParseError, "malformed DURATION value: "+value, err)
			}
			total += n
			num = ""
		default:
			return 0, calerr.New(calerr.ParseError, fmt.Sprintf("unexpected character %q in DURATION value %s", r, value))
		}
	}
	return sign * total, nil
}

