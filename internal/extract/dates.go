package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

var monthPrefixes = []struct {
	prefix string
	month  time.Month
}{
	{"jan", time.January}, {"feb", time.February}, {"mar", time.March}, {"apr", time.April},
	{"may", time.May}, {"jun", time.June}, {"jul", time.July}, {"aug", time.August},
	{"sep", time.September}, {"oct", time.October}, {"nov", time.November}, {"dec", time.December},
}

// parseDate converts a matched date expression ("March 3, 2024", "June 2025",
// "5/1/2024", "2027") to a possibly partial Date. Invalid dates yield the zero Date.
func parseDate(raw string) housing.Date {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return housing.Date{}
	}

	var d housing.Date
	switch {
	case strings.ContainsAny(raw, "/-"):
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' })
		if len(parts) != 3 {
			return housing.Date{}
		}
		m, _ := strconv.Atoi(parts[0])
		day, _ := strconv.Atoi(parts[1])
		y, _ := strconv.Atoi(parts[2])
		if len(parts[2]) == 2 {
			y += 2000
		}
		d = housing.Date{Year: y, Month: time.Month(m), Day: day}
	case raw[0] >= '0' && raw[0] <= '9':
		y, err := strconv.Atoi(raw)
		if err != nil {
			return housing.Date{}
		}
		d = housing.YearOnly(y)
	default:
		fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' || r == '.' })
		if len(fields) < 2 {
			return housing.Date{}
		}
		for _, mp := range monthPrefixes {
			if strings.HasPrefix(fields[0], mp.prefix) {
				d.Month = mp.month
				break
			}
		}
		y, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || d.Month == 0 {
			return housing.Date{}
		}
		d.Year = y
		if len(fields) == 3 {
			day := strings.TrimRight(fields[1], "stndrh")
			d.Day, _ = strconv.Atoi(day)
		}
	}
	if !d.Valid() {
		return housing.Date{}
	}
	return d
}
