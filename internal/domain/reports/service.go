// Package reports renders directory rosters as PDF for offline distribution
// to stations without reliable connectivity.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"policedir/internal/domain/directory"
)

type Service struct {
	Dir *directory.Service
}

func NewService(dir *directory.Service) *Service {
	return &Service{Dir: dir}
}

// RosterPDF renders the approved directory, optionally narrowed to a district
// and station, as a tabular PDF.
func (s *Service) RosterPDF(ctx context.Context, district, station string) ([]byte, error) {
	emps, err := s.Dir.GetAllEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	var rows []directory.Employee
	for _, emp := range emps {
		if district != "" && !strings.EqualFold(emp.District, district) {
			continue
		}
		if station != "" && !strings.EqualFold(emp.Station, station) {
			continue
		}
		rows = append(rows, emp)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	title := "Directory Roster"
	if district != "" {
		title += " - " + district
	}
	if station != "" {
		title += " / " + station
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s - %d records", time.Now().Format("2006-01-02 15:04"), len(rows)))
	pdf.Ln(10)

	headers := []string{"KGID", "Name", "Rank", "Mobile", "District", "Station", "Blood Group"}
	widths := []float64{28, 62, 45, 32, 42, 42, 25}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, emp := range rows {
		cells := []string{emp.KGID, emp.Name, emp.Rank, emp.Mobile1, emp.District, emp.Station, emp.BloodGroup}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render roster pdf: %w", err)
	}
	return buf.Bytes(), nil
}
