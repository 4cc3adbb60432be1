package housing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date that may only be known to the year or month.
// The zero value means unknown.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// YearOnly returns a Date known only to the year.
func YearOnly(year int) Date {
	return Date{Year: year}
}

// IsZero reports whether the date is unknown.
func (d Date) IsZero() bool {
	return d.Year == 0
}

// String renders the date as YYYY, YYYY-MM or YYYY-MM-DD.
func (d Date) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
}

// ParseDate parses the forms produced by String. An empty string yields the zero Date.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, nil
	}
	parts := strings.Split(raw, "-")
	if len(parts) > 3 {
		return Date{}, fmt.Errorf("parse date %q: too many parts", raw)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
		}
		nums[i] = n
	}
	d := Date{Year: nums[0]}
	if len(nums) > 1 {
		d.Month = time.Month(nums[1])
	}
	if len(nums) > 2 {
		d.Day = nums[2]
	}
	if err := d.validate(); err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return d, nil
}

func (d Date) validate() error {
	if d.Year < 1900 || d.Year > 2100 {
		return fmt.Errorf("year %d out of range", d.Year)
	}
	if d.Month == 0 {
		if d.Day != 0 {
			return fmt.Errorf("day without month")
		}
		return nil
	}
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Day == 0 {
		return nil
	}
	last := time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d.Day < 1 || d.Day > last {
		return fmt.Errorf("day %d out of range", d.Day)
	}
	return nil
}

// Valid reports whether the date is unknown or a real calendar date.
func (d Date) Valid() bool {
	return d.IsZero() || d.validate() == nil
}
