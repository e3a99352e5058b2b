package attendance

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/student"
)

const recapNameColWidth = 30

// RecapFilename returns the download file name for a monthly recap,
// e.g. "rekap_absensi_2026-08.xlsx".
func RecapFilename(year int, month time.Month) string {
	return fmt.Sprintf("rekap_absensi_%04d-%02d.xlsx", year, int(month))
}

// MonthlyRecap builds the workbook teachers hand to the principal at the end
// of the month: one row per student, one column per day carrying the recorded
// status code, then the H/S/I/A totals. Students with no records still get a
// row so nobody silently drops off the report.
func (svc *service) MonthlyRecap(ctx context.Context, ownerID string, year int, month time.Month, classID string) ([]byte, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	students, err := svc.students.Query(ctx, ownerID, student.QueryFilter{ClassID: classID})
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	records, err := svc.repo.FilterRecords(ctx, ownerID, QueryFilter{
		ClassID: classID,
		From:    first,
		To:      first.AddDate(0, 1, -1),
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}

	byStudent := make(map[string]map[int]Status, len(students))
	for _, rec := range records {
		if byStudent[rec.StudentID] == nil {
			byStudent[rec.StudentID] = make(map[int]Status, days)
		}
		byStudent[rec.StudentID][rec.Date.Day()] = rec.Status
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Rekap " + first.Format("2006-01")
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	headers := []interface{}{"No", "Nama Siswa", "NISN"}
	for day := 1; day <= days; day++ {
		headers = append(headers, day)
	}
	for _, status := range Statuses {
		headers = append(headers, string(status))
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, errors.Wrap(err, "converting coordinates")
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, errors.Wrapf(err, "setting header cell %s", cell)
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, errors.Wrap(err, "converting coordinates")
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}
	if err := f.SetColWidth(sheet, "B", "B", recapNameColWidth); err != nil {
		return nil, errors.Wrap(err, "setting column width")
	}

	for i, std := range students {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), std.FullName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), std.NISN.String)

		totals := make(map[Status]int, len(Statuses))
		for day := 1; day <= days; day++ {
			status, found := byStudent[std.ID][day]
			if !found {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(3+day, row)
			if err != nil {
				return nil, errors.Wrap(err, "converting coordinates")
			}
			f.SetCellValue(sheet, cell, string(status))
			totals[status]++
		}
		for j, status := range Statuses {
			cell, err := excelize.CoordinatesToCellName(3+days+j+1, row)
			if err != nil {
				return nil, errors.Wrap(err, "converting coordinates")
			}
			f.SetCellValue(sheet, cell, totals[status])
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
