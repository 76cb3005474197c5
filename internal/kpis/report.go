package kpis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// ReportLine is one labeled metric of a user report.
type ReportLine struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// Report is the printable per-user summary.
type Report struct {
	UserID string       `json:"userid"`
	Start  string       `json:"start"`
	End    string       `json:"end"`
	Lines  []ReportLine `json:"lines"`
}

// UserReport renders the user's metrics over [start, end] as labeled lines.
// A user without any orders gets a single "No data" line.
func UserReport(orders, perf []sheet.Row, userID string, start, end time.Time, loc *time.Location) Report {
	start, end = calendarDay(start), calendarDay(end)
	report := Report{
		UserID: sheet.NormalizeUser(userID),
		Start:  start.Format(time.DateOnly),
		End:    end.Format(time.DateOnly),
	}
	if len(byUser(orders, userID)) == 0 {
		report.Lines = []ReportLine{{Metric: "No data", Value: "No orders found"}}
		return report
	}

	p := newPeriod(orders, start, end, loc)
	score, delivery, conversion, hasConversion := p.score(perf, userID)
	conversionText := "No data"
	if hasConversion {
		conversionText = fmt.Sprintf("%.1f%%", conversion)
	}
	report.Lines = []ReportLine{
		{Metric: "User Name", Value: report.UserID},
		{Metric: "Report Period", Value: report.Start + " to " + report.End},
		{Metric: "Total Orders", Value: fmt.Sprint(delivery.TotalOrders)},
		{Metric: "Total Revenue", Value: "₹" + delivery.TotalRevenue.StringFixed(2)},
		{Metric: "Average Order Value", Value: "₹" + delivery.AverageOrderValue.StringFixed(2)},
		{Metric: "Delivered Orders", Value: fmt.Sprint(delivery.DeliveredCount)},
		{Metric: "Returned Orders", Value: fmt.Sprint(delivery.ReturnsCount)},
		{Metric: "Delivery Rate (%)", Value: fmt.Sprintf("%.1f%%", delivery.DeliveryRate)},
		{Metric: "Cancellation Rate (%)", Value: fmt.Sprintf("%.1f%%", delivery.CancellationRate)},
		{Metric: "Conversion Rate (%)", Value: conversionText},
		{Metric: "Performance Score", Value: fmt.Sprintf("%.1f/100", score.Value)},
		{Metric: "Rating", Value: string(score.Rating)},
		{Metric: "Comment", Value: score.Comment},
	}
	return report
}

// StatusShare is one row of the status distribution.
type StatusShare struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StatusDistribution counts orders per raw status, most frequent first.
func StatusDistribution(orders []sheet.Row) []StatusShare {
	out := make([]StatusShare, 0)
	index := map[string]int{}
	for _, row := range orders {
		status := strings.TrimSpace(row.Get(colStatus))
		if status == "" {
			status = "Unknown"
		}
		i, ok := index[status]
		if !ok {
			i = len(out)
			index[status] = i
			out = append(out, StatusShare{Status: status})
		}
		out[i].Count++
	}
	for i := range out {
		out[i].Percentage = round1(float64(out[i].Count) / float64(len(orders)) * 100)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// SLAMetrics compares each shipment's creation against its order's
// timestamp. Shipments for unknown orders or with unparsable stamps are
// skipped.
type SLAMetrics struct {
	SLADays        int     `json:"sla_days"`
	AvgDaysToShip  float64 `json:"avg_days_to_ship"`
	OrdersOnTime   int     `json:"orders_on_time"`
	OrdersDelayed  int     `json:"orders_delayed"`
	ComplianceRate float64 `json:"sla_compliance_rate"`
}

func ComputeSLAMetrics(orders, shipments []sheet.Row, slaDays int) SLAMetrics {
	m := SLAMetrics{SLADays: slaDays}
	placed := map[string]time.Time{}
	for _, row := range orders {
		id := strings.TrimSpace(row.Get(colOrderID))
		if id == "" {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		if t, ok := sheet.ParseTime(row.Get(colTimestamp)); ok {
			placed[id] = t
		}
	}

	var totalDays float64
	for _, row := range shipments {
		orderedAt, ok := placed[strings.TrimSpace(row.Get(colOrderID))]
		if !ok {
			continue
		}
		shippedAt, ok := sheet.ParseTime(row.Get(colCreatedAt))
		if !ok {
			continue
		}
		days := int(math.Floor(shippedAt.Sub(orderedAt).Hours() / 24))
		totalDays += float64(days)
		if days <= slaDays {
			m.OrdersOnTime++
		} else {
			m.OrdersDelayed++
		}
	}
	if shipped := m.OrdersOnTime + m.OrdersDelayed; shipped > 0 {
		m.AvgDaysToShip = round1(totalDays / float64(shipped))
		m.ComplianceRate = round1(float64(m.OrdersOnTime) / float64(shipped) * 100)
	}
	return m
}

// DashboardSummary is the whole-table snapshot shown on the landing page.
type DashboardSummary struct {
	TotalOrders       int             `json:"total_orders"`
	PendingOrders     int             `json:"pending_orders"`
	CompletedOrders   int             `json:"completed_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"avg_order_value"`
	OrdersToday       int             `json:"orders_today"`
	RevenueToday      decimal.Decimal `json:"revenue_today"`
}

// Dashboard summarizes every order; "today" is now's date in loc.
func Dashboard(orders []sheet.Row, now time.Time, loc *time.Location) DashboardSummary {
	if loc == nil {
		loc = time.UTC
	}
	d := DashboardSummary{
		TotalOrders:       len(orders),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		RevenueToday:      decimal.Zero,
	}
	today := calendarDay(now.In(loc))
	for _, row := range orders {
		switch NormalizeStatusValue(row.Lookup(colStatus)) {
		case "pending":
			d.PendingOrders++
		case "completed", "delivered":
			d.CompletedOrders++
		}
		value := amount(row)
		d.TotalRevenue = d.TotalRevenue.Add(value)
		if day, ok := localDay(row.Get(colTimestamp), loc); ok && day.Equal(today) {
			d.OrdersToday++
			d.RevenueToday = d.RevenueToday.Add(value)
		}
	}
	if d.TotalOrders > 0 {
		d.AverageOrderValue = d.TotalRevenue.Div(decimal.NewFromInt(int64(d.TotalOrders))).Round(2)
	}
	return d
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
