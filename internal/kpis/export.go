package kpis

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const leaderboardSheet = "Leaderboard"

var leaderboardHeader = []any{
	"Rank", "User", "Orders", "Revenue", "Avg Order Value",
	"Delivery Rate (%)", "Conversion Rate (%)", "Score", "Rating", "Comment",
}

// LeaderboardWorkbook renders a ranked board as a single-sheet workbook.
// Users without performance-log data get an empty conversion cell.
func LeaderboardWorkbook(board []Performer, w Window) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), leaderboardSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Leaderboard %s to %s", calendarDay(w.Start).Format("2006-01-02"), calendarDay(w.End).Format("2006-01-02"))
	if err := f.SetCellValue(leaderboardSheet, "A1", title); err != nil {
		f.Close()
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(leaderboardSheet, "A2", &leaderboardHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		err = f.SetRowStyle(leaderboardSheet, 2, 2, bold)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, p := range board {
		var conversion any = ""
		if p.HasConversion {
			conversion = round1(p.ConversionRate)
		}
		values := []any{
			p.Rank,
			p.UserID,
			p.TotalOrders,
			p.TotalRevenue.InexactFloat64(),
			p.AverageOrderValue.InexactFloat64(),
			round1(p.DeliveryRate),
			conversion,
			round1(p.Score),
			string(p.Rating),
			p.Comment,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(leaderboardSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+3, err)
		}
	}
	return f, nil
}
