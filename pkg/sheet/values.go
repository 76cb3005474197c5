package sheet

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Layouts accepted for timestamp cells, most specific first. Zone-less values
// are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// TimestampLayout is the format new rows are stamped with.
const TimestampLayout = time.RFC3339

// ParseTime parses a timestamp cell in any tolerated format.
func ParseTime(value string) (time.Time, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	// workbook cells sometimes carry the raw serial date
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 1 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses a numeric cell; non-numeric and non-finite values fail.
func ParseNumber(value string) (float64, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOrZero coerces non-numeric cells to zero.
func NumberOrZero(value string) float64 {
	f, _ := ParseNumber(value)
	return f
}

// ParseDecimal parses a money cell.
func ParseDecimal(value string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseInt accepts integral cells, including "2.0" as written by spreadsheets.
func ParseInt(value string) (int, bool) {
	raw := strings.TrimSpace(value)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, ok := ParseNumber(raw)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// NormalizeUser trims incidental whitespace from a user identifier.
func NormalizeUser(value string) string {
	return strings.TrimSpace(value)
}

// SameUser is the single user-matching rule shared by every service. A
// blank user id matches nothing.
func SameUser(cell, userID string) bool {
	user := NormalizeUser(userID)
	return user != "" && NormalizeUser(cell) == user
}
