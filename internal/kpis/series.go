package kpis

import (
	"fmt"
	"strings"
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
)

const (
	colCreatedBy = "created_by"
	colTimestamp = "timestamp"
	colStatus    = "status"
	colTotal     = "total"
	colOrderID   = "order_id"
	colCreatedAt = "created_at"
)

// DailyCount is one calendar day of a user's order series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"order_count"`
}

// Bucket is a labeled sum of daily counts.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"order_count"`
}

// calendarDay drops the clock and zone, keeping the date as written.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// localDay parses a timestamp cell (zone-less values read as UTC) and
// returns its calendar date in loc.
func localDay(value string, loc *time.Location) (time.Time, bool) {
	t, ok := sheet.ParseTime(value)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return calendarDay(t.In(loc)), true
}

func within(day, start, end time.Time) bool {
	return !day.Before(start) && !day.After(end)
}

// inPeriod returns the rows whose order timestamp falls inside [start, end]
// in loc. Rows with unparsable timestamps are dropped.
func inPeriod(orders []sheet.Row, start, end time.Time, loc *time.Location) []sheet.Row {
	start, end = calendarDay(start), calendarDay(end)
	out := make([]sheet.Row, 0)
	for _, row := range orders {
		day, ok := localDay(row.Get(colTimestamp), loc)
		if ok && within(day, start, end) {
			out = append(out, row)
		}
	}
	return out
}

func byUser(rows []sheet.Row, userID string) []sheet.Row {
	out := make([]sheet.Row, 0)
	for _, row := range rows {
		if sheet.SameUser(row.Get(colCreatedBy), userID) {
			out = append(out, row)
		}
	}
	return out
}

// UserTimeSeries counts the user's orders per day over [start, end], one row
// per calendar day with zero-filled gaps. An inverted range yields nothing.
func UserTimeSeries(orders []sheet.Row, userID string, start, end time.Time, loc *time.Location) []DailyCount {
	start, end = calendarDay(start), calendarDay(end)
	if end.Before(start) {
		return []DailyCount{}
	}
	counts := map[string]int{}
	for _, row := range inPeriod(byUser(orders, userID), start, end, loc) {
		day, _ := localDay(row.Get(colTimestamp), loc)
		counts[day.Format(time.DateOnly)]++
	}
	out := make([]DailyCount, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		out = append(out, DailyCount{Date: key, Count: counts[key]})
	}
	return out
}

// WeeklyCounts folds a daily series into Monday-start weeks labeled with the
// ISO year and week of that Monday.
func WeeklyCounts(daily []DailyCount) []Bucket {
	return resample(daily, func(day time.Time) string {
		monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		year, week := monday.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	})
}

// MonthlyCounts folds a daily series into YYYY-MM buckets.
func MonthlyCounts(daily []DailyCount) []Bucket {
	return resample(daily, func(day time.Time) string {
		return day.Format("2006-01")
	})
}

func resample(daily []DailyCount, label func(time.Time) string) []Bucket {
	out := make([]Bucket, 0)
	index := map[string]int{}
	for _, d := range daily {
		day, err := time.Parse(time.DateOnly, strings.TrimSpace(d.Date))
		if err != nil {
			continue
		}
		key := label(day)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Bucket{Label: key})
		}
		out[i].Count += d.Count
	}
	return out
}

// TodayOrderCount counts the user's orders dated today in loc.
func TodayOrderCount(orders []sheet.Row, userID string, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	today := calendarDay(now.In(loc))
	return len(inPeriod(byUser(orders, userID), today, today, loc))
}
