package cashcustody

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol is the symbol used in refusal reasons and reports.
const CurrencySymbol = "₱"

// DateLayout is the wire format of a balance date.
const DateLayout = "2006-01-02"

var amountPrinter = message.NewPrinter(language.English)

// FormatPeso renders an amount with thousands separators, e.g. ₱50,000.00.
// Digits come from the decimal itself, so large amounts print exactly.
func FormatPeso(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, cents, _ := strings.Cut(fixed, ".")
	if fixed == "0.00" {
		sign = ""
	}
	return sign + CurrencySymbol + groupThousands(whole) + "." + cents
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCount renders an integer count with thousands separators.
func FormatCount(n int64) string {
	return amountPrinter.Sprintf("%d", n)
}

// NormalizeDate truncates t to its calendar date, expressed as midnight UTC.
// The calendar date is taken from t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD balance date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewInvalidDateError(s)
	}
	return NormalizeDate(t), nil
}

// BusinessCalendar resolves "today" for collector-days in the tenant's
// business timezone.
type BusinessCalendar struct {
	loc *time.Location
	now func() time.Time
}

// NewBusinessCalendar creates a calendar. A nil clock defaults to time.Now,
// a nil location to UTC.
func NewBusinessCalendar(loc *time.Location, now func() time.Time) *BusinessCalendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BusinessCalendar{loc: loc, now: now}
}

// Now returns the current instant.
func (c *BusinessCalendar) Now() time.Time {
	return c.now()
}

// Today returns the current business date.
func (c *BusinessCalendar) Today() time.Time {
	return NormalizeDate(c.now().In(c.loc))
}

// Resolve returns the given date normalised, or today when it is nil.
func (c *BusinessCalendar) Resolve(date *time.Time) time.Time {
	if date == nil || date.IsZero() {
		return c.Today()
	}
	return NormalizeDate(*date)
}

// StartOf returns the instant a business date begins in the calendar's
// timezone. Use it to bound timestamp columns by business date.
func (c *BusinessCalendar) StartOf(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// MonthStart returns the first day of the month containing date.
func MonthStart(date time.Time) time.Time {
	y, m, _ := date.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar date after date.
func NextDay(date time.Time) time.Time {
	return NormalizeDate(date).AddDate(0, 0, 1)
}

// GeoPoint is the location of a party at the time of an action.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewGeoPoint validates coordinate ranges.
func NewGeoPoint(lat, lng float64) (*GeoPoint, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, NewInvalidGeoError(lat, lng)
	}
	return &GeoPoint{Latitude: lat, Longitude: lng}, nil
}
