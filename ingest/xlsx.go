package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/shiftrules/rules"
)

// ReadEventsXLSX reads event rows from a worksheet, with the same columns as
// ReadEvents. An empty sheet name selects the first sheet. Date cells may hold
// either Excel serial dates or text in TimestampLayout.
func ReadEventsXLSX(r io.Reader, sheet string, opts ...Option) ([]rules.EventRecord, error) {
	o := newOptions(opts)

	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xlFile.Close()

	if sheet == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, fmt.Errorf("no sheets found in xlsx file")
		}
		sheet = sheetList[0]
	}

	// Raw values keep dates as serial numbers instead of locale-formatted text
	rows, err := xlFile.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	var events []rules.EventRecord
	for i, cols := range rows {
		line := i + 1
		if blankRow(cols) {
			continue
		}
		if i == 0 && isHeader(cols) {
			continue
		}

		// Trailing empty cells are dropped by excelize
		for len(cols) < eventColumns {
			cols = append(cols, "")
		}

		record := make([]string, len(cols))
		copy(record, cols)
		for _, col := range []int{colStart, colEnd} {
			ts, err := cellTimestamp(record[col], o.location)
			if err != nil {
				return nil, &ParseError{Line: line, Column: columnNames[col], Err: err}
			}
			record[col] = ts.Format(TimestampLayout)
		}

		evt, perr := parseRecord(record, len(events)+1, o.location)
		if perr != nil {
			perr.Line = line
			return nil, perr
		}
		events = append(events, evt)
	}

	return events, nil
}

func blankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellTimestamp accepts a serial date or text in TimestampLayout
func cellTimestamp(cell string, loc *time.Location) (time.Time, error) {
	cell = cleanText(cell)
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date %q: %w", cell, err)
		}
		// Serial dates carry wall-clock time only
		t = t.Round(time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return parseTimestamp(cell, loc)
}
