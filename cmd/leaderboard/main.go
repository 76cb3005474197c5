package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/imiq/imiq-backend/api/validators"
	"github.com/imiq/imiq-backend/internal/bootstrap"
	"github.com/imiq/imiq-backend/internal/kpis"
	"github.com/imiq/imiq-backend/pkg/config"
	"github.com/imiq/imiq-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "leaderboard"})
	_ = godotenv.Load()

	from := flag.String("from", "", "window start (YYYY-MM-DD)")
	to := flag.String("to", "", "window end (YYYY-MM-DD)")
	preset := flag.String("preset", "30d", "window preset when from/to are unset: 7d|30d|90d")
	top := flag.Int("top", 0, "number of performers to show (0 uses IMIQ_LEADERBOARD_TOP_N)")
	out := flag.String("xlsx", "", "write the board to this workbook instead of stdout")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "leaderboard",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Business.Location()
	requireResource(context.Background(), logg, "timezone", err)

	start, end, err := validators.ResolveWindow(*from, *to, *preset, time.Now(), loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid window: %v\n", err)
		os.Exit(2)
	}
	window := kpis.Window{Start: start, End: end}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":   cfg.App.Env,
		"start": start.Format(time.DateOnly),
		"end":   end.Format(time.DateOnly),
	})

	store, err := bootstrap.OpenStore(ctx, cfg, logg, nil)
	requireResource(ctx, logg, "row store", err)
	defer store.Close()

	svc, err := kpis.NewService(store, logg, kpis.Options{
		Location: loc,
		SLADays:  cfg.Business.ShipSLADays,
		TopN:     cfg.Business.LeaderboardTopN,
	})
	requireResource(ctx, logg, "kpis service", err)

	board := svc.Leaderboard(ctx, window, *top)
	if *out != "" {
		if err := writeWorkbook(*out, board, window); err != nil {
			logg.Error(ctx, "failed to write leaderboard workbook", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "path", *out), "leaderboard workbook written")
		return
	}
	if err := render(os.Stdout, board); err != nil {
		logg.Error(ctx, "failed to render leaderboard", err)
		os.Exit(1)
	}
}

func render(w io.Writer, board []kpis.Performer) error {
	if len(board) == 0 {
		_, err := fmt.Fprintln(w, "no orders in window")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Rank", "User", "Orders", "Revenue", "AOV", "Delivery %", "Conversion %", "Score", "Rating")
	for _, p := range board {
		conversion := "-"
		if p.HasConversion {
			conversion = fmt.Sprintf("%.1f", p.ConversionRate)
		}
		if err := table.Append(
			fmt.Sprint(p.Rank),
			p.UserID,
			fmt.Sprint(p.TotalOrders),
			"₹"+p.TotalRevenue.StringFixed(2),
			"₹"+p.AverageOrderValue.StringFixed(2),
			fmt.Sprintf("%.1f", p.DeliveryRate),
			conversion,
			fmt.Sprintf("%.1f", p.Score),
			strings.TrimSpace(string(p.Rating)),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeWorkbook(path string, board []kpis.Performer, window kpis.Window) error {
	f, err := kpis.LeaderboardWorkbook(board, window)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
