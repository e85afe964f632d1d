package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/OldStager01/network-forecaster/pkg/models"
)

const sheetName = "Samples"

var headers = []string{"Timestamp", "Device ID", "Metric", "Value", "Unit"}

var columnWidths = []float64{22, 20, 18, 14, 10}

// WriteSamplesXLSX renders a set of samples as an xlsx workbook for
// offline analysis.
func WriteSamplesXLSX(w io.Writer, samples []models.MetricSample) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			return err
		}
	}

	for i, s := range samples {
		row := i + 2
		if err := setCellValue(f, 1, row, s.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		if err := setCellValue(f, 2, row, s.DeviceID); err != nil {
			return err
		}
		if err := setCellValue(f, 3, row, s.MetricName); err != nil {
			return err
		}
		value, _ := s.Value.Float64()
		if err := setCellValue(f, 4, row, value); err != nil {
			return err
		}
		if err := setCellValue(f, 5, row, s.Unit); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCellValue(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, value)
}
