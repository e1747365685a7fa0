package attendance

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hrflow/internal/domain/calendar"
)

// SummaryPDF renders the daily summary as an A4 report.
func (s *Service) SummaryPDF(ctx context.Context, date time.Time) ([]byte, error) {
	summary, err := s.SummarizeDay(ctx, date)
	if err != nil {
		return nil, err
	}
	return RenderSummaryPDF(summary)
}

func RenderSummaryPDF(summary DaySummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Attendance Summary %s", calendar.FormatDate(summary.Date)))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	c := summary.Counts
	pdf.Cell(0, 7, fmt.Sprintf("Present: %d   Late: %d   Permission: %d   Absent: %d   Total: %d",
		c.Present, c.Late, c.Permission, c.Absent, c.Total))
	pdf.Ln(10)

	section := func(title string, entries []SummaryEntry) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("%s (%d)", title, len(entries)))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 10)
		for _, h := range []struct {
			w     float64
			label string
		}{{25, "Code"}, {55, "Name"}, {20, "In"}, {20, "Out"}, {70, "Status"}} {
			pdf.CellFormat(h.w, 7, h.label, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
		for _, e := range entries {
			detail := e.Status
			if detail == "" {
				detail = e.Reason
			}
			pdf.CellFormat(25, 6, e.EmployeeCode, "1", 0, "L", false, 0, "")
			pdf.CellFormat(55, 6, e.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, calendar.FormatClock(e.InTime), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, calendar.FormatClock(e.OutTime), "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 6, detail, "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}
	section("Present", summary.Present)
	section("Late", summary.Late)
	section("Permission", summary.Permission)
	section("Absent", summary.Absent)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
