package kpis

import (
	"testing"
	"time"

	"github.com/imiq/imiq-backend/pkg/enums"
	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"Out For Delivery": "out for delivery",
		"out_for_delivery": "out for delivery",
		"  IN-TRANSIT ":    "in transit",
		"":                 "unknown",
		"   ":              "unknown",
		"-Delivered_":      "delivered",
		"Failed  Delivery": "failed  delivery",
	}
	for in, want := range cases {
		got := NormalizeStatus(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.Equal(t, got, NormalizeStatus(got), "idempotent for %q", in)
	}
	assert.Equal(t, "unknown", NormalizeStatusValue("Delivered", false))
	assert.Equal(t, "delivered", NormalizeStatusValue("Delivered", true))
}

func TestUserTimeSeriesZeroFillsEveryDay(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "U1", "timestamp": "2026-02-01T20:00:00Z"}, // 02-02 01:30 IST
		{"created_by": " U1 ", "timestamp": "2026-02-03T10:00:00+05:30"},
		{"created_by": "U1", "timestamp": "2026-02-03 08:00:00"},
		{"created_by": "U1", "timestamp": "2026-03-01"},
		{"created_by": "U1", "timestamp": "garbage"},
		{"created_by": "U2", "timestamp": "2026-02-03"},
	}
	series := UserTimeSeries(orders, "U1", day("2026-02-01"), day("2026-02-10"), ist)
	require.Len(t, series, 10)
	seen := map[string]bool{}
	total := 0
	for _, d := range series {
		assert.False(t, seen[d.Date], "duplicate %s", d.Date)
		seen[d.Date] = true
		total += d.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, DailyCount{Date: "2026-02-01", Count: 0}, series[0])
	assert.Equal(t, DailyCount{Date: "2026-02-02", Count: 1}, series[1])
	assert.Equal(t, DailyCount{Date: "2026-02-03", Count: 2}, series[2])

	assert.Len(t, UserTimeSeries(nil, "U1", day("2026-02-01"), day("2026-02-01"), ist), 1)
	assert.Empty(t, UserTimeSeries(orders, "U1", day("2026-02-10"), day("2026-02-01"), ist))
}

func TestBlankUserMatchesNoOrders(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "", "timestamp": "2026-02-02T10:00:00", "status": "Delivered", "total": "100"},
		{"created_by": " ", "timestamp": "2026-02-02T11:00:00", "status": "Delivered", "total": "100"},
	}
	for _, d := range UserTimeSeries(orders, "", day("2026-02-01"), day("2026-02-03"), ist) {
		assert.Zero(t, d.Count, d.Date)
	}
	assert.Equal(t, 0, ComputeDeliveryMetrics(orders, " ", day("2026-02-01"), day("2026-02-03"), ist).TotalOrders)
}

func TestWeeklyAndMonthlyCounts(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "U1", "timestamp": "2026-02-01T10:00:00+05:30"},
		{"created_by": "U1", "timestamp": "2026-02-02T10:00:00+05:30"},
		{"created_by": "U1", "timestamp": "2026-02-08T10:00:00+05:30"},
		{"created_by": "U1", "timestamp": "2026-02-09T10:00:00+05:30"},
	}
	daily := UserTimeSeries(orders, "U1", day("2026-02-01"), day("2026-02-10"), ist)

	assert.Equal(t, []Bucket{
		{Label: "2026-W05", Count: 1},
		{Label: "2026-W06", Count: 2},
		{Label: "2026-W07", Count: 1},
	}, WeeklyCounts(daily))
	assert.Equal(t, []Bucket{{Label: "2026-02", Count: 4}}, MonthlyCounts(daily))

	// the Monday of 2024-12-31 falls in ISO week 1 of 2025
	assert.Equal(t, []Bucket{{Label: "2025-W01", Count: 2}}, WeeklyCounts([]DailyCount{{Date: "2024-12-31", Count: 2}}))
	assert.Empty(t, WeeklyCounts(nil))
}

func TestConversionRate(t *testing.T) {
	perf := []sheet.Row{
		{"created_by": "U1", "date": "2026-02-01", "no_of_leads": "10", "no_of_orders": "3"},
		{"created_by": "U1 ", "date": "2026-02-02", "no_of_leads": "10", "no_of_orders": "2"},
		{"created_by": "U1", "date": "2026-02-02", "no_of_leads": "n/a", "no_of_orders": "x"},
		{"created_by": "U1", "date": "2026-03-01", "no_of_leads": "100", "no_of_orders": "100"},
		{"created_by": "U2", "date": "2026-02-01", "no_of_leads": "0", "no_of_orders": "4"},
	}
	rate, ok := ConversionRate(perf, "U1", day("2026-02-01"), day("2026-02-28"))
	require.True(t, ok)
	assert.InDelta(t, 25.0, rate, 1e-9)

	_, ok = ConversionRate(perf, "U2", day("2026-02-01"), day("2026-02-28"))
	assert.False(t, ok, "zero leads is undefined")
	_, ok = ConversionRate(perf, "U3", day("2026-02-01"), day("2026-02-28"))
	assert.False(t, ok)
	_, ok = ConversionRate(nil, "U1", day("2026-02-01"), day("2026-02-28"))
	assert.False(t, ok)
}

func TestConversionRateResolvesAliases(t *testing.T) {
	perf := []sheet.Row{
		{"userid": "U1", "Date": "2026-02-01", "leads": "4", "orders": "1"},
	}
	rate, ok := ConversionRate(perf, "U1", day("2026-02-01"), day("2026-02-01"))
	require.True(t, ok)
	assert.InDelta(t, 25.0, rate, 1e-9)

	_, ok = ConversionRate([]sheet.Row{{"userid": "U1", "Date": "2026-02-01", "leads": "4"}}, "U1", day("2026-02-01"), day("2026-02-01"))
	assert.False(t, ok, "missing orders column")
	_, ok = ConversionRate([]sheet.Row{{"agent": "U1", "Date": "2026-02-01", "leads": "4", "orders": "1"}}, "U1", day("2026-02-01"), day("2026-02-01"))
	assert.False(t, ok, "missing user column")
}

func TestDeliveryMetricsScenario(t *testing.T) {
	orders := []sheet.Row{
		{"order_id": "O1", "created_by": "U1", "total": "100", "status": "Delivered", "timestamp": "2026-02-01"},
		{"order_id": "O2", "created_by": "U1", "total": "200", "status": "Pending", "timestamp": "2026-02-02"},
	}
	m := ComputeDeliveryMetrics(orders, "U1", day("2026-02-01"), day("2026-02-02"), ist)
	assert.Equal(t, 2, m.TotalOrders)
	assert.Equal(t, 1, m.DeliveredCount)
	assert.Equal(t, 50.0, m.DeliveryRate)
	assert.Equal(t, "300", m.TotalRevenue.String())
	assert.Equal(t, "150", m.AverageOrderValue.String())
}

func TestDeliveryMetricsBuckets(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "U1", "status": "completed", "timestamp": "2026-02-01", "total": "abc"},
		{"created_by": "U1", "status": "RTO", "timestamp": "2026-02-01"},
		{"created_by": "U1", "status": "canceled", "timestamp": "2026-02-01"},
		{"created_by": "U1", "status": "out_for_delivery", "timestamp": "2026-02-01"},
		{"created_by": "U1", "status": "Processing", "timestamp": "2026-02-01", "total": "40"},
	}
	m := ComputeDeliveryMetrics(orders, "U1", day("2026-02-01"), day("2026-02-01"), ist)
	assert.Equal(t, 1, m.DeliveredCount)
	assert.Equal(t, 1, m.ReturnsCount)
	assert.Equal(t, 1, m.CancelledCount)
	assert.Equal(t, 1, m.InTransitCount)
	assert.Equal(t, 20.0, m.ReturnRate)
	assert.Equal(t, "40", m.TotalRevenue.String())
	assert.Equal(t, "8", m.AverageOrderValue.String())

	empty := ComputeDeliveryMetrics(nil, "U1", day("2026-02-01"), day("2026-02-01"), ist)
	assert.Zero(t, empty.DeliveryRate)
	assert.True(t, empty.AverageOrderValue.IsZero())
}

func leaderboardFixture() ([]sheet.Row, []sheet.Row) {
	orders := []sheet.Row{
		{"created_by": "U1", "status": "Delivered", "total": "100", "timestamp": "2026-02-01"},
		{"created_by": "U2", "status": "Pending", "total": "50", "timestamp": "2026-02-01"},
		{"created_by": "U1", "status": "Delivered", "total": "100", "timestamp": "2026-02-02"},
	}
	perf := []sheet.Row{
		{"created_by": "U1", "date": "2026-02-01", "no_of_leads": "10", "no_of_orders": "3"},
	}
	return orders, perf
}

func TestPerformanceScoreComponents(t *testing.T) {
	orders, perf := leaderboardFixture()
	score := PerformanceScore(orders, perf, "U1", day("2026-02-01"), day("2026-02-02"), ist)
	assert.InDelta(t, 99.9, score.Components.Conversion, 1e-9)
	assert.InDelta(t, 89.965, score.Value, 1e-9)
	assert.Equal(t, enums.RatingA, score.Rating)
	assert.Equal(t, enums.SeverityLime, score.Severity)

	weak := PerformanceScore(orders, perf, "U2", day("2026-02-01"), day("2026-02-02"), ist)
	assert.InDelta(t, 12.5, weak.Value, 1e-9)
	assert.Equal(t, enums.RatingD, weak.Rating)
}

// busyRival has U1 with one returned order against a rival with six
// delivered ones, which drives U1's raw score below zero.
func busyRival() []sheet.Row {
	rows := []sheet.Row{{"created_by": "U1", "status": "Returned", "timestamp": "2026-02-01"}}
	for i := 0; i < 6; i++ {
		rows = append(rows, sheet.Row{"created_by": "U2", "status": "Delivered", "timestamp": "2026-02-01", "total": "1000"})
	}
	return rows
}

func TestPerformanceScoreIsClamped(t *testing.T) {
	datasets := [][]sheet.Row{
		nil,
		{{"created_by": "U1", "status": "Cancelled", "timestamp": "2026-02-01"}},
		busyRival(),
		{{"created_by": "U1", "status": "Delivered", "timestamp": "2026-02-01", "total": "1e9"}},
	}
	perf := []sheet.Row{{"created_by": "U1", "date": "2026-02-01", "no_of_leads": "1", "no_of_orders": "50"}}
	for i, orders := range datasets {
		for _, user := range []string{"U1", "U2", "nobody"} {
			score := PerformanceScore(orders, perf, user, day("2026-02-01"), day("2026-02-01"), ist)
			assert.GreaterOrEqual(t, score.Value, 0.0, "dataset %d user %s", i, user)
			assert.LessOrEqual(t, score.Value, 100.0, "dataset %d user %s", i, user)
			assert.Equal(t, enums.BandFor(score.Value).Rating, score.Rating)
		}
	}
	returned := PerformanceScore(datasets[2], nil, "U1", day("2026-02-01"), day("2026-02-01"), ist)
	assert.Equal(t, 0.0, returned.Value)
}

func TestLeaderboardTopN(t *testing.T) {
	orders, perf := leaderboardFixture()
	board := Leaderboard(orders, perf, day("2026-02-01"), day("2026-02-02"), 1, ist)
	require.Len(t, board, 1)
	assert.Equal(t, "U1", board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[0].TotalOrders)
	assert.True(t, board[0].HasConversion)

	full := Leaderboard(orders, perf, day("2026-02-01"), day("2026-02-02"), 0, ist)
	require.Len(t, full, 2)
	assert.Equal(t, "U2", full[1].UserID)
	assert.Equal(t, 2, full[1].Rank)

	assert.Empty(t, Leaderboard(orders, perf, day("2027-01-01"), day("2027-01-31"), 10, ist))
}

func TestLeaderboardTiesKeepFirstSeenOrder(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "B", "status": "Pending", "timestamp": "2026-02-01"},
		{"created_by": "A", "status": "Pending", "timestamp": "2026-02-01"},
		{"created_by": "", "status": "Pending", "timestamp": "2026-02-01"},
	}
	board := Leaderboard(orders, nil, day("2026-02-01"), day("2026-02-01"), 10, ist)
	require.Len(t, board, 2)
	assert.Equal(t, "B", board[0].UserID)
	assert.Equal(t, "A", board[1].UserID)
	assert.Equal(t, []string{"B", "A"}, Users(orders))
}

func TestUserReport(t *testing.T) {
	orders, perf := leaderboardFixture()
	report := UserReport(orders, perf, "U1", day("2026-02-01"), day("2026-02-02"), ist)
	values := map[string]string{}
	for _, line := range report.Lines {
		values[line.Metric] = line.Value
	}
	assert.Equal(t, "2026-02-01 to 2026-02-02", values["Report Period"])
	assert.Equal(t, "2", values["Total Orders"])
	assert.Equal(t, "₹200.00", values["Total Revenue"])
	assert.Equal(t, "100.0%", values["Delivery Rate (%)"])
	assert.Equal(t, "30.0%", values["Conversion Rate (%)"])
	assert.Equal(t, "90.0/100", values["Performance Score"])
	assert.Equal(t, "A", values["Rating"])

	none := UserReport(orders, perf, "U9", day("2026-02-01"), day("2026-02-02"), ist)
	assert.Equal(t, []ReportLine{{Metric: "No data", Value: "No orders found"}}, none.Lines)

	noConv := UserReport(orders, perf, "U2", day("2026-02-01"), day("2026-02-02"), ist)
	for _, line := range noConv.Lines {
		if line.Metric == "Conversion Rate (%)" {
			assert.Equal(t, "No data", line.Value)
		}
	}
}

func TestTodayOrderCount(t *testing.T) {
	orders := []sheet.Row{
		{"created_by": "U1", "timestamp": "2026-02-02T19:00:00Z"}, // 02-03 00:30 IST
		{"created_by": "U1", "timestamp": "2026-02-02T18:00:00Z"},
		{"created_by": "U1 ", "timestamp": "2026-02-03T09:00:00+05:30"},
	}
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, ist)
	assert.Equal(t, 2, TodayOrderCount(orders, "U1", now, ist))
	assert.Equal(t, 0, TodayOrderCount(orders, "U2", now, ist))
}

func TestStatusDistribution(t *testing.T) {
	got := StatusDistribution([]sheet.Row{
		{"status": "Pending"},
		{"status": "Delivered"},
		{"status": "Pending"},
		{"status": ""},
	})
	assert.Equal(t, []StatusShare{
		{Status: "Pending", Count: 2, Percentage: 50},
		{Status: "Delivered", Count: 1, Percentage: 25},
		{Status: "Unknown", Count: 1, Percentage: 25},
	}, got)
	assert.Empty(t, StatusDistribution(nil))
}

func TestSLAMetrics(t *testing.T) {
	orders := []sheet.Row{
		{"order_id": "O1", "timestamp": "2026-02-01T10:00:00Z"},
		{"order_id": "O2", "timestamp": "2026-02-01T10:00:00Z"},
		{"order_id": "O3", "timestamp": "bad"},
	}
	shipments := []sheet.Row{
		{"order_id": "O1", "created_at": "2026-02-03T09:00:00Z"},
		{"order_id": "O2", "created_at": "2026-02-06T10:00:00Z"},
		{"order_id": "O3", "created_at": "2026-02-06T10:00:00Z"},
		{"order_id": "O9", "created_at": "2026-02-06T10:00:00Z"},
	}
	m := ComputeSLAMetrics(orders, shipments, 3)
	assert.Equal(t, 1, m.OrdersOnTime)
	assert.Equal(t, 1, m.OrdersDelayed)
	assert.Equal(t, 3.0, m.AvgDaysToShip)
	assert.Equal(t, 50.0, m.ComplianceRate)

	assert.Equal(t, SLAMetrics{SLADays: 3}, ComputeSLAMetrics(nil, shipments, 3))
}

func TestDashboard(t *testing.T) {
	orders := []sheet.Row{
		{"status": "Pending", "total": "100", "timestamp": "2026-02-03T09:00:00+05:30"},
		{"status": "Delivered", "total": "200", "timestamp": "2026-02-01T09:00:00+05:30"},
		{"status": "completed", "total": "x", "timestamp": "2026-02-03T01:00:00+05:30"},
	}
	d := Dashboard(orders, time.Date(2026, 2, 3, 10, 0, 0, 0, ist), ist)
	assert.Equal(t, 3, d.TotalOrders)
	assert.Equal(t, 1, d.PendingOrders)
	assert.Equal(t, 2, d.CompletedOrders)
	assert.Equal(t, "300", d.TotalRevenue.String())
	assert.Equal(t, "100", d.AverageOrderValue.String())
	assert.Equal(t, 2, d.OrdersToday)
	assert.Equal(t, "100", d.RevenueToday.String())

	empty := Dashboard(nil, time.Now(), nil)
	assert.Zero(t, empty.TotalOrders)
	assert.True(t, empty.AverageOrderValue.IsZero())
}

func TestMissingStatusColumnCountsAsUnknown(t *testing.T) {
	rows := []sheet.Row{{"total": "10"}, {"status": "Delivered", "total": "30"}}
	m := summarizeDelivery(rows)
	assert.Equal(t, 1, m.DeliveredCount)
	assert.Equal(t, 50.0, m.DeliveryRate)
	assert.Zero(t, m.InTransitCount+m.ReturnsCount+m.CancelledCount)

	d := Dashboard(rows, time.Now(), nil)
	assert.Zero(t, d.PendingOrders)
	assert.Equal(t, 1, d.CompletedOrders)
}
