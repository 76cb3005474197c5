package validators

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/imiq/imiq-backend/pkg/errors"
)

// MaxWindowDays caps an explicit from/to range, both ends included.
const MaxWindowDays = 366

// ParseWindow resolves an inclusive day window from either from/to
// (YYYY-MM-DD) or preset=7d|30d|90d ending today in loc. Presets default
// to 30d.
func ParseWindow(r *http.Request, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	query := r.URL.Query()
	return ResolveWindow(query.Get("from"), query.Get("to"), query.Get("preset"), now, loc)
}

// ResolveWindow is ParseWindow over raw values, for callers outside HTTP.
func ResolveWindow(from, to, preset string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := ParseDate("from", from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := ParseDate("to", to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
		}
		if !end.Before(start.AddDate(0, 0, MaxWindowDays)) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "window is too long").
				WithDetails(map[string]any{"max_days": MaxWindowDays})
		}
		return start, end, nil
	}

	days, ok := presetDays(strings.TrimSpace(preset))
	if !ok {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset").
			WithDetails(map[string]any{"allowed": []string{"7d", "30d", "90d"}})
	}
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return end.AddDate(0, 0, -(days - 1)), end, nil
}

// ParseDate parses a YYYY-MM-DD query value as midnight in loc.
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
			WithDetails(map[string]any{"field": field, "format": time.DateOnly})
	}
	return t, nil
}

// ParseOptionalDate returns nil for an empty query value.
func ParseOptionalDate(r *http.Request, key string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(key, raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func presetDays(value string) (int, bool) {
	if value == "" {
		value = "30d"
	}
	switch strings.ToLower(value) {
	case "7d":
		return 7, true
	case "30d":
		return 30, true
	case "90d":
		return 90, true
	default:
		return 0, false
	}
}
