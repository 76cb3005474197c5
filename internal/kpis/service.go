package kpis

import (
	"context"
	"fmt"
	"time"

	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/sheet"
)

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// UserMetrics bundles every per-user metric for one window.
type UserMetrics struct {
	UserID         string          `json:"userid"`
	Start          string          `json:"start"`
	End            string          `json:"end"`
	Daily          []DailyCount    `json:"daily"`
	Weekly         []Bucket        `json:"weekly"`
	Monthly        []Bucket        `json:"monthly"`
	ConversionRate *float64        `json:"conversion_rate"`
	Delivery       DeliveryMetrics `json:"delivery"`
	Score          Score           `json:"score"`
	TodayOrders    int             `json:"today_orders"`
}

// DashboardReport is the landing-page payload.
type DashboardReport struct {
	Summary            DashboardSummary `json:"summary"`
	StatusDistribution []StatusShare    `json:"status_distribution"`
	SLA                SLAMetrics       `json:"sla"`
}

// Overview is the company-wide view: totals and product performance over a
// window plus trailing monthly trends.
type Overview struct {
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Overall  OverallMetrics `json:"overall"`
	Products []ProductStats `json:"products"`
	Monthly  []MonthlyTrend `json:"monthly_trends"`
}

// Service loads the sheet tables and runs the pure metric functions over
// them. A failed read is logged and treated as an empty table.
type Service interface {
	UserMetrics(ctx context.Context, userID string, w Window) UserMetrics
	UserReport(ctx context.Context, userID string, w Window) Report
	Leaderboard(ctx context.Context, w Window, topN int) []Performer
	Dashboard(ctx context.Context) DashboardReport
	Overview(ctx context.Context, w Window, months int) Overview
}

// Options tunes a Service. Zero values fall back to UTC, time.Now, a three
// day SLA and a top ten leaderboard.
type Options struct {
	Location *time.Location
	Clock    func() time.Time
	SLADays  int
	TopN     int
}

type service struct {
	store   sheet.Store
	logg    *logger.Logger
	loc     *time.Location
	now     func() time.Time
	slaDays int
	topN    int
}

func NewService(store sheet.Store, logg *logger.Logger, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("row store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		store:   store,
		logg:    logg,
		loc:     opts.Location,
		now:     opts.Clock,
		slaDays: opts.SLADays,
		topN:    opts.TopN,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.slaDays <= 0 {
		s.slaDays = 3
	}
	if s.topN <= 0 {
		s.topN = 10
	}
	return s, nil
}

func (s *service) UserMetrics(ctx context.Context, userID string, w Window) UserMetrics {
	orders := s.rows(ctx, sheet.TableOrders)
	perf := s.rows(ctx, sheet.TablePerformance)

	daily := UserTimeSeries(orders, userID, w.Start, w.End, s.loc)
	m := UserMetrics{
		UserID:      sheet.NormalizeUser(userID),
		Start:       calendarDay(w.Start).Format(time.DateOnly),
		End:         calendarDay(w.End).Format(time.DateOnly),
		Daily:       daily,
		Weekly:      WeeklyCounts(daily),
		Monthly:     MonthlyCounts(daily),
		Delivery:    ComputeDeliveryMetrics(orders, userID, w.Start, w.End, s.loc),
		Score:       PerformanceScore(orders, perf, userID, w.Start, w.End, s.loc),
		TodayOrders: TodayOrderCount(orders, userID, s.now(), s.loc),
	}
	if rate, ok := ConversionRate(perf, userID, w.Start, w.End); ok {
		m.ConversionRate = &rate
	}
	return m
}

func (s *service) UserReport(ctx context.Context, userID string, w Window) Report {
	return UserReport(s.rows(ctx, sheet.TableOrders), s.rows(ctx, sheet.TablePerformance), userID, w.Start, w.End, s.loc)
}

// Leaderboard uses the configured size when topN is not positive.
func (s *service) Leaderboard(ctx context.Context, w Window, topN int) []Performer {
	if topN <= 0 {
		topN = s.topN
	}
	return Leaderboard(s.rows(ctx, sheet.TableOrders), s.rows(ctx, sheet.TablePerformance), w.Start, w.End, topN, s.loc)
}

func (s *service) Dashboard(ctx context.Context) DashboardReport {
	orders := s.rows(ctx, sheet.TableOrders)
	return DashboardReport{
		Summary:            Dashboard(orders, s.now(), s.loc),
		StatusDistribution: StatusDistribution(orders),
		SLA:                ComputeSLAMetrics(orders, s.rows(ctx, sheet.TableShipments), s.slaDays),
	}
}

// Overview scopes totals and products to the window; trends end at the current month.
func (s *service) Overview(ctx context.Context, w Window, months int) Overview {
	orders := s.rows(ctx, sheet.TableOrders)
	return Overview{
		Start:    calendarDay(w.Start).Format(time.DateOnly),
		End:      calendarDay(w.End).Format(time.DateOnly),
		Overall:  Overall(orders, s.rows(ctx, sheet.TablePerformance), w.Start, w.End, s.loc),
		Products: ProductPerformance(windowOrders(orders, w.Start, w.End, s.loc)),
		Monthly:  MonthlyTrends(orders, months, s.now(), s.loc),
	}
}

func (s *service) rows(ctx context.Context, table string) []sheet.Row {
	t, err := s.store.ReadTable(ctx, table)
	if err != nil {
		s.logg.Error(s.logg.WithTable(ctx, table), "kpis.read_failed", err)
		return nil
	}
	return t.Rows
}
