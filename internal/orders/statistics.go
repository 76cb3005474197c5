package orders

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

const topN = 5

// Statistics summarizes the user's orders, or all orders when userID is blank.
// Revenue reads the total column and falls back to price.
func (s *service) Statistics(ctx context.Context, userID string) Statistics {
	return Summarize(s.scope(ctx, userID))
}

// Summarize computes Statistics over an already loaded order set.
func Summarize(orders []Order) Statistics {
	stats := Statistics{
		TotalOrders:       len(orders),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		StatusBreakdown:   map[string]int{},
		TopProducts:       []Frequency{},
		TopCustomers:      []Frequency{},
	}
	if len(orders) == 0 {
		return stats
	}

	products := newCounter()
	customers := newCounter()
	for _, o := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(o.Revenue())
		status := strings.TrimSpace(o.Status)
		if status == "" {
			status = "Unknown"
		}
		stats.StatusBreakdown[status]++
		products.add(o.Product)
		customers.add(o.CustomerName)
	}
	stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	stats.TopProducts = products.top(topN)
	stats.TopCustomers = customers.top(topN)
	return stats
}

// Revenue is the order total, falling back to the price column.
func (o Order) Revenue() decimal.Decimal {
	if o.totalValid || !o.Total.IsZero() {
		return o.Total
	}
	if d, ok := sheet.ParseDecimal(o.Extra[ColPrice]); ok {
		return d
	}
	return decimal.Zero
}

type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, seen := c.counts[value]; !seen {
		c.order = append(c.order, value)
	}
	c.counts[value]++
}

// top returns the n most frequent values; ties keep first-seen order.
func (c *counter) top(n int) []Frequency {
	out := make([]Frequency, 0, len(c.order))
	for _, v := range c.order {
		out = append(out, Frequency{Value: v, Count: c.counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
