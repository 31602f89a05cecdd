package capacity

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteReport renders the fleet snapshot as an xlsx workbook for the
// reporting collaborator: one row per assignment plus a fleet summary.
func WriteReport(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	headers := []string{"Client", "Assignment", "Package", "Creative Units", "Demand Hours", "Capacity Hours", "Utilization %", "Severity"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("building header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	row := 2
	for _, r := range snap.Rows {
		values := []any{
			r.ClientID.String(),
			r.AssignmentID.String(),
			r.TemplateName,
			r.Workload.TotalCreativeUnits,
			r.Workload.TotalHoursRequired,
			r.Workload.CapacityHours,
			r.Workload.TeamUtilizationPercent,
			string(r.Severity),
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return fmt.Errorf("building cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
		}
		row++
	}

	row++
	summary := [][2]any{
		{"Total demand hours", snap.Fleet.TotalDemandHours},
		{"Total capacity hours", snap.Fleet.TotalCapacityHours},
		{"Overall utilization %", snap.Fleet.OverallUtilizationPercent},
		{"Demand ratio %", snap.Fleet.DemandRatioPercent},
		{"Assignments", snap.Fleet.Assignments},
		{"Unstaffed", snap.Fleet.Unstaffed},
	}
	for _, entry := range summary {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry[0])
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry[1])
		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
