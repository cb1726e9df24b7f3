package sink

import (
	"context"
	"fmt"

	"github.com/tealeg/xlsx/v2"

	"github.com/use-agent/profilescout/models"
)

// XLSXSink writes the record table to a local workbook.
type XLSXSink struct {
	Path  string
	Sheet string
}

// NewXLSXSink returns a sink writing sheet into the workbook at path.
func NewXLSXSink(path, sheet string) *XLSXSink {
	if sheet == "" {
		sheet = "Startups"
	}
	return &XLSXSink{Path: path, Sheet: sheet}
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) Write(_ context.Context, records []*models.Record) error {
	header, rows := Table(records)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(s.Sheet)
	if err != nil {
		return fmt.Errorf("sink: xlsx: add sheet %q: %w", s.Sheet, err)
	}

	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	hr := sheet.AddRow()
	for _, h := range header {
		cell := hr.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(s.Path); err != nil {
		return fmt.Errorf("sink: xlsx: save %s: %w", s.Path, err)
	}
	return nil
}
