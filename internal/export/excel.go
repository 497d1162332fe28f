// Package export renders room schedules as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"roombook/internal/booking"
	"roombook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

var headers = []string{"Date", "Start", "End", "Duration", "Status"}

// FileName is the suggested download name of a room schedule.
func FileName(room *models.Room, now time.Time) string {
	return fmt.Sprintf("room_%d_schedule_%s.xlsx", room.ID, now.UTC().Format("20060102"))
}

// WriteRoomSchedule writes the active bookings of a room as an xlsx workbook.
// Only the public part of each booking (interval and effective status) is exported.
func WriteRoomSchedule(w io.Writer, schedule *models.RoomWithBookings, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}

	room := schedule.Room
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (capacity %d)", room.Name, room.Capacity))
	_ = f.SetCellValue(sheetName, "A2", "Generated "+models.FormatTime(now)+" UTC")
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	}

	if err := writeHeaders(f); err != nil {
		return err
	}

	for i, b := range schedule.Bookings {
		row := i + 4
		status := booking.EffectiveStatus(b.Status, b.Interval(), now)
		values := []interface{}{
			b.StartTime.Format("2006-01-02"),
			b.StartTime.Format("15:04"),
			b.EndTime.Format("15:04"),
			b.Interval().Duration().String(),
			status.String(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if styleID, err := statusStyle(f, status); err == nil {
			statusCell, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", lastCol, 12)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeHeaders(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A3", &row); err != nil {
		return fmt.Errorf("error writing headers: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetCellStyle(sheetName, "A3", lastCol+"3", style)
}

func statusStyle(f *excelize.File, status models.Status) (int, error) {
	color := "#E2EFDA"
	if status == models.StatusInProgress {
		color = "#FFF2CC"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}
