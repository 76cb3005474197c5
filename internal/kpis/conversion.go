package kpis

import (
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
)

// columnResolver picks the first candidate column present in the rows. The
// performance log's header is not controlled, so each logical field has an
// ordered alias list and an explicit unresolved result.
type columnResolver []string

var (
	userColumns  = columnResolver{"created_by", "userid", "user_id", "name", "email"}
	dateColumns  = columnResolver{"date", "Date", "timestamp", "created_at", "orderdate"}
	leadColumns  = columnResolver{"no_of_leads", "leads", "lead_count", "num_leads", "total_leads"}
	orderColumns = columnResolver{"no_of_orders", "orders", "order_count", "num_orders", "total_orders"}
)

func (r columnResolver) resolve(rows []sheet.Row) (string, bool) {
	for _, candidate := range r {
		for _, row := range rows {
			if row.Has(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// ConversionRate returns orders/leads*100 for the user's performance rows
// dated within [start, end]. It reports false when a column cannot be
// resolved, no row matches, or the leads sum to zero.
func ConversionRate(perf []sheet.Row, userID string, start, end time.Time) (float64, bool) {
	userCol, ok := userColumns.resolve(perf)
	if !ok {
		return 0, false
	}
	var userRows []sheet.Row
	for _, row := range perf {
		if sheet.SameUser(row.Get(userCol), userID) {
			userRows = append(userRows, row)
		}
	}
	if len(userRows) == 0 {
		return 0, false
	}

	dateCol, ok := dateColumns.resolve(userRows)
	if !ok {
		return 0, false
	}
	start, end = calendarDay(start), calendarDay(end)
	var windowRows []sheet.Row
	for _, row := range userRows {
		t, ok := sheet.ParseTime(row.Get(dateCol))
		if ok && within(calendarDay(t), start, end) {
			windowRows = append(windowRows, row)
		}
	}
	if len(windowRows) == 0 {
		return 0, false
	}

	leadCol, okLeads := leadColumns.resolve(windowRows)
	orderCol, okOrders := orderColumns.resolve(windowRows)
	if !okLeads || !okOrders {
		return 0, false
	}
	var leads, orders float64
	for _, row := range windowRows {
		if v, ok := sheet.ParseNumber(row.Get(leadCol)); ok {
			leads += v
		}
		if v, ok := sheet.ParseNumber(row.Get(orderCol)); ok {
			orders += v
		}
	}
	if leads == 0 {
		return 0, false
	}
	return orders / leads * 100, true
}
