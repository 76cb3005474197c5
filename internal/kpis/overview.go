package kpis

import (
	"sort"
	"strings"
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// DefaultTrendMonths is the trailing month count used when none is given.
const DefaultTrendMonths = 6

const (
	colProduct  = "product"
	colQuantity = "quantity"
)

var (
	adSpendColumns = columnResolver{"ad_spend", "adspend", "spend"}
	priceColumns   = columnResolver{"price", colTotal}
)

// OverallMetrics summarizes every user's orders and performance rows.
type OverallMetrics struct {
	TotalOrders       int             `json:"total_orders"`
	TotalLeads        int             `json:"total_leads"`
	OverallConversion float64         `json:"overall_conversion"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalAdSpend      decimal.Decimal `json:"total_ad_spend"`
	ROI               float64         `json:"system_roi"`
}

// ProductStats aggregates orders of one product.
type ProductStats struct {
	Product       string          `json:"product"`
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	TotalQuantity float64         `json:"total_quantity"`
}

// MonthlyTrend is the order count and revenue of one calendar month.
type MonthlyTrend struct {
	Month   string          `json:"month"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// windowOrders keeps the orders dated inside [start, end]. When no timestamp
// parses at all the rows cannot be placed and every row is kept.
func windowOrders(orders []sheet.Row, start, end time.Time, loc *time.Location) []sheet.Row {
	for _, row := range orders {
		if _, ok := sheet.ParseTime(row.Get(colTimestamp)); ok {
			return inPeriod(orders, start, end, loc)
		}
	}
	return orders
}

// windowPerformance is windowOrders for performance rows keyed by their date column.
func windowPerformance(perf []sheet.Row, start, end time.Time) []sheet.Row {
	dateCol, ok := dateColumns.resolve(perf)
	if !ok {
		return perf
	}
	start, end = calendarDay(start), calendarDay(end)
	out := make([]sheet.Row, 0)
	parsed := false
	for _, row := range perf {
		t, ok := sheet.ParseTime(row.Get(dateCol))
		if !ok {
			continue
		}
		parsed = true
		if within(calendarDay(t), start, end) {
			out = append(out, row)
		}
	}
	if !parsed {
		return perf
	}
	return out
}

// Overall computes the company-wide totals over [start, end]. Conversion is
// orders per hundred leads; ROI is revenue per unit of ad spend and stays
// zero without spend.
func Overall(orders, perf []sheet.Row, start, end time.Time, loc *time.Location) OverallMetrics {
	m := OverallMetrics{TotalRevenue: decimal.Zero, TotalAdSpend: decimal.Zero}

	scoped := windowOrders(orders, start, end, loc)
	m.TotalOrders = len(scoped)
	for _, row := range scoped {
		m.TotalRevenue = m.TotalRevenue.Add(amount(row))
	}

	perfRows := windowPerformance(perf, start, end)
	if leadCol, ok := leadColumns.resolve(perfRows); ok {
		var leads float64
		for _, row := range perfRows {
			leads += sheet.NumberOrZero(row.Get(leadCol))
		}
		m.TotalLeads = int(leads)
	}
	if spendCol, ok := adSpendColumns.resolve(perfRows); ok {
		for _, row := range perfRows {
			if d, ok := sheet.ParseDecimal(row.Get(spendCol)); ok {
				m.TotalAdSpend = m.TotalAdSpend.Add(d)
			}
		}
	}

	if m.TotalLeads > 0 {
		m.OverallConversion = round1(float64(m.TotalOrders) / float64(m.TotalLeads) * 100)
	}
	if m.TotalAdSpend.IsPositive() {
		m.ROI = m.TotalRevenue.Div(m.TotalAdSpend).Round(2).InexactFloat64()
	}
	return m
}

// ProductPerformance groups orders by product, highest revenue first. Revenue
// and average price read the price column, or the order total without one.
// Rows without a product are skipped.
func ProductPerformance(orders []sheet.Row) []ProductStats {
	out := make([]ProductStats, 0)
	priceCol, hasPrice := priceColumns.resolve(orders)
	index := map[string]int{}
	priced := map[string]int{}
	for _, row := range orders {
		product := strings.TrimSpace(row.Get(colProduct))
		if product == "" {
			continue
		}
		i, seen := index[product]
		if !seen {
			i = len(out)
			index[product] = i
			out = append(out, ProductStats{Product: product, TotalRevenue: decimal.Zero, AvgPrice: decimal.Zero})
		}
		stats := &out[i]
		stats.TotalOrders++
		stats.TotalQuantity += sheet.NumberOrZero(row.Get(colQuantity))
		if !hasPrice {
			continue
		}
		if price, ok := sheet.ParseDecimal(row.Get(priceCol)); ok {
			stats.TotalRevenue = stats.TotalRevenue.Add(price)
			priced[product]++
		}
	}
	for i := range out {
		if n := priced[out[i].Product]; n > 0 {
			out[i].AvgPrice = out[i].TotalRevenue.Div(decimal.NewFromInt(int64(n))).Round(2)
		}
		out[i].TotalRevenue = out[i].TotalRevenue.Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue) })
	return out
}

// MonthlyTrends returns one entry per month with orders among the trailing
// months ending at now's month in loc, oldest first. Months without orders
// are omitted.
func MonthlyTrends(orders []sheet.Row, months int, now time.Time, loc *time.Location) []MonthlyTrend {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	last := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := last.AddDate(0, -(months - 1), 0)

	byMonth := map[time.Time]*MonthlyTrend{}
	for _, row := range orders {
		day, ok := localDay(row.Get(colTimestamp), loc)
		if !ok {
			continue
		}
		month := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		if month.Before(first) || month.After(last) {
			continue
		}
		trend, seen := byMonth[month]
		if !seen {
			trend = &MonthlyTrend{Month: month.Format("2006-01"), Revenue: decimal.Zero}
			byMonth[month] = trend
		}
		trend.Orders++
		trend.Revenue = trend.Revenue.Add(amount(row))
	}

	out := make([]MonthlyTrend, 0, len(byMonth))
	for _, trend := range byMonth {
		trend.Revenue = trend.Revenue.Round(2)
		out = append(out, *trend)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
