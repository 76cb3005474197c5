package kpis

import (
	"time"

	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// DeliveryMetrics partitions a user's in-period orders into the delivered,
// returned, cancelled and in-transit buckets. Rates are percentages of all
// in-period orders.
type DeliveryMetrics struct {
	TotalOrders       int             `json:"total_orders"`
	DeliveredCount    int             `json:"delivered_count"`
	ReturnsCount      int             `json:"returns_count"`
	CancelledCount    int             `json:"cancelled_count"`
	InTransitCount    int             `json:"in_transit_count"`
	DeliveryRate      float64         `json:"delivery_rate"`
	ReturnRate        float64         `json:"return_rate"`
	CancellationRate  float64         `json:"cancellation_rate"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"avg_order_value"`
}

// ComputeDeliveryMetrics is DeliveryMetrics over the user's orders in [start, end].
func ComputeDeliveryMetrics(orders []sheet.Row, userID string, start, end time.Time, loc *time.Location) DeliveryMetrics {
	return summarizeDelivery(inPeriod(byUser(orders, userID), start, end, loc))
}

func summarizeDelivery(rows []sheet.Row) DeliveryMetrics {
	m := DeliveryMetrics{
		TotalOrders:       len(rows),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	if m.TotalOrders == 0 {
		return m
	}
	for _, row := range rows {
		switch classify(row.Lookup(colStatus)) {
		case bucketDelivered:
			m.DeliveredCount++
		case bucketReturned:
			m.ReturnsCount++
		case bucketCancelled:
			m.CancelledCount++
		case bucketInTransit:
			m.InTransitCount++
		}
		m.TotalRevenue = m.TotalRevenue.Add(amount(row))
	}
	total := float64(m.TotalOrders)
	m.DeliveryRate = float64(m.DeliveredCount) / total * 100
	m.ReturnRate = float64(m.ReturnsCount) / total * 100
	m.CancellationRate = float64(m.CancelledCount) / total * 100
	m.AverageOrderValue = m.TotalRevenue.Div(decimal.NewFromInt(int64(m.TotalOrders))).Round(2)
	return m
}

// amount reads the total column; non-numeric cells count as zero.
func amount(row sheet.Row) decimal.Decimal {
	d, ok := sheet.ParseDecimal(row.Get(colTotal))
	if !ok {
		return decimal.Zero
	}
	return d
}
