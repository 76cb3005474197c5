package kpis

import (
	"math"
	"sort"
	"time"

	"github.com/imiq/imiq-backend/pkg/enums"
	"github.com/imiq/imiq-backend/pkg/sheet"
	"github.com/shopspring/decimal"
)

// Score weights. The penalty is subtracted.
const (
	weightConversion = 0.35
	weightDelivery   = 0.30
	weightVolume     = 0.15
	weightAOV        = 0.10
	weightPenalty    = 0.10

	// a 30% conversion rate saturates the component
	conversionScale = 3.33
	maxPenalty      = 30
)

// Components are the normalized 0-100 inputs of a score.
type Components struct {
	Conversion float64 `json:"conversion"`
	Delivery   float64 `json:"delivery"`
	Volume     float64 `json:"volume"`
	AOV        float64 `json:"aov"`
	Penalty    float64 `json:"penalty"`
}

// Score is a clamped 0-100 performance score with its rating band.
type Score struct {
	Value      float64        `json:"score"`
	Rating     enums.Rating   `json:"rating"`
	Severity   enums.Severity `json:"severity"`
	Comment    string         `json:"comment"`
	Components Components     `json:"components"`
}

// Performer is one leaderboard entry.
type Performer struct {
	Rank              int             `json:"rank"`
	UserID            string          `json:"userid"`
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"avg_order_value"`
	DeliveryRate      float64         `json:"delivery_rate"`
	ConversionRate    float64         `json:"conversion_rate"`
	HasConversion     bool            `json:"has_conversion"`
	Score             float64         `json:"performance_score"`
	Rating            enums.Rating    `json:"rating"`
	Severity          enums.Severity  `json:"rating_color"`
	Comment           string          `json:"comment"`
}

// period groups in-period orders by trimmed creator and keeps the maxima
// the volume and AOV components are normalized against.
type period struct {
	start, end time.Time
	users      []string
	byUser     map[string][]sheet.Row
	maxOrders  int
	maxAOV     float64
}

func newPeriod(orders []sheet.Row, start, end time.Time, loc *time.Location) period {
	p := period{
		start:  calendarDay(start),
		end:    calendarDay(end),
		byUser: map[string][]sheet.Row{},
	}
	rows := inPeriod(orders, p.start, p.end, loc)
	p.users = Users(rows)
	for _, row := range rows {
		if user := sheet.NormalizeUser(row.Get(colCreatedBy)); user != "" {
			p.byUser[user] = append(p.byUser[user], row)
		}
	}
	for _, rows := range p.byUser {
		if len(rows) > p.maxOrders {
			p.maxOrders = len(rows)
		}
		if aov := summarizeDelivery(rows).AverageOrderValue.InexactFloat64(); aov > p.maxAOV {
			p.maxAOV = aov
		}
	}
	return p
}

func (p period) score(perf []sheet.Row, userID string) (Score, DeliveryMetrics, float64, bool) {
	rows := p.byUser[sheet.NormalizeUser(userID)]
	delivery := summarizeDelivery(rows)
	conversion, hasConversion := ConversionRate(perf, userID, p.start, p.end)

	var c Components
	if hasConversion {
		c.Conversion = math.Min(100, conversion*conversionScale)
	}
	c.Delivery = delivery.DeliveryRate
	c.Volume = math.Min(100, float64(len(rows))/math.Max(1, float64(p.maxOrders))*100)
	c.AOV = math.Min(100, delivery.AverageOrderValue.InexactFloat64()/math.Max(1, p.maxAOV)*100)
	c.Penalty = math.Min(maxPenalty, delivery.CancellationRate+delivery.ReturnRate)

	value := c.Conversion*weightConversion +
		c.Delivery*weightDelivery +
		c.Volume*weightVolume +
		c.AOV*weightAOV -
		c.Penalty*weightPenalty
	value = clamp(value)

	band := enums.BandFor(value)
	return Score{
		Value:      value,
		Rating:     band.Rating,
		Severity:   band.Severity,
		Comment:    band.Comment,
		Components: c,
	}, delivery, conversion, hasConversion
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// PerformanceScore scores one user over [start, end]. Volume and AOV are
// normalized against the best user in the same period.
func PerformanceScore(orders, perf []sheet.Row, userID string, start, end time.Time, loc *time.Location) Score {
	score, _, _, _ := newPeriod(orders, start, end, loc).score(perf, userID)
	return score
}

// Leaderboard ranks every creator with orders in [start, end] by score,
// highest first. Ties keep first-seen order. topN <= 0 returns everyone.
func Leaderboard(orders, perf []sheet.Row, start, end time.Time, topN int, loc *time.Location) []Performer {
	p := newPeriod(orders, start, end, loc)
	out := make([]Performer, 0, len(p.users))
	for _, user := range p.users {
		score, delivery, conversion, hasConversion := p.score(perf, user)
		out = append(out, Performer{
			UserID:            user,
			TotalOrders:       delivery.TotalOrders,
			TotalRevenue:      delivery.TotalRevenue,
			AverageOrderValue: delivery.AverageOrderValue,
			DeliveryRate:      delivery.DeliveryRate,
			ConversionRate:    conversion,
			HasConversion:     hasConversion,
			Score:             score.Value,
			Rating:            score.Rating,
			Severity:          score.Severity,
			Comment:           score.Comment,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Users lists the distinct trimmed creators of the given orders in first-seen order.
func Users(orders []sheet.Row) []string {
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, row := range orders {
		user := sheet.NormalizeUser(row.Get(colCreatedBy))
		if user == "" || seen[user] {
			continue
		}
		seen[user] = true
		out = append(out, user)
	}
	return out
}
