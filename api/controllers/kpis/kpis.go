package kpis

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imiq/imiq-backend/api/responses"
	"github.com/imiq/imiq-backend/api/validators"
	internalkpis "github.com/imiq/imiq-backend/internal/kpis"
	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
	"github.com/imiq/imiq-backend/pkg/logger"
)

const (
	maxLeaderboardSize = 100
	maxTrendMonths     = 36
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Clock reports the current time; overridden in tests.
type Clock func() time.Time

func UserMetrics(svc internalkpis.Service, loc *time.Location, now Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, window, err := userWindow(r, loc, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.UserMetrics(logg.WithUserID(r.Context(), userID), userID, window))
	}
}

func UserReport(svc internalkpis.Service, loc *time.Location, now Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, window, err := userWindow(r, loc, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.UserReport(logg.WithUserID(r.Context(), userID), userID, window))
	}
}

// Leaderboard ranks users over the window. format=xlsx streams a workbook
// instead of the JSON envelope.
func Leaderboard(svc internalkpis.Service, loc *time.Location, now Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := parseWindow(r, loc, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		topN, err := validators.ParseQueryInt(r, "top", 0, 0, maxLeaderboardSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		board := svc.Leaderboard(r.Context(), window, topN)

		switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
		case "", "json":
			responses.WriteSuccess(w, board)
		case "xlsx":
			writeWorkbook(w, r, board, window, logg)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported format").
				WithDetails(map[string]any{"format": format, "allowed": []string{"json", "xlsx"}}))
		}
	}
}

func Dashboard(svc internalkpis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Dashboard(r.Context()))
	}
}

// Overview returns company totals and product performance over the window
// plus the trailing monthly trends.
func Overview(svc internalkpis.Service, loc *time.Location, now Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := parseWindow(r, loc, now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		months, err := validators.ParseQueryInt(r, "months", internalkpis.DefaultTrendMonths, 1, maxTrendMonths)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Overview(r.Context(), window, months))
	}
}

func writeWorkbook(w http.ResponseWriter, r *http.Request, board []internalkpis.Performer, window internalkpis.Window, logg *logger.Logger) {
	f, err := internalkpis.LeaderboardWorkbook(board, window)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render leaderboard workbook"))
		return
	}
	defer f.Close()

	name := fmt.Sprintf("leaderboard_%s_%s.xlsx", window.Start.Format("20060102"), window.End.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		logg.Error(r.Context(), "kpis.export_failed", err)
	}
}

func userWindow(r *http.Request, loc *time.Location, now Clock) (string, internalkpis.Window, error) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		return "", internalkpis.Window{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	window, err := parseWindow(r, loc, now)
	return userID, window, err
}

func parseWindow(r *http.Request, loc *time.Location, now Clock) (internalkpis.Window, error) {
	if now == nil {
		now = time.Now
	}
	start, end, err := validators.ParseWindow(r, now(), loc)
	if err != nil {
		return internalkpis.Window{}, err
	}
	return internalkpis.Window{Start: start, End: end}, nil
}
