// Package input loads the ordered list of identifiers for a run.
//
// Spreadsheets (.xlsx) are read with excelize: one column of one sheet,
// starting at row 1 and stopping at the first empty cell. Any other file is
// read as plain text with one identifier per line; blank lines are skipped.
// Every identifier is trimmed. Duplicates are preserved.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoIdentifiers is returned when the source yields nothing to check.
var ErrNoIdentifiers = errors.New("input contains no identifiers")

// Source describes where identifiers come from.
type Source struct {
	Path string
	// Column is the spreadsheet column letter; defaults to "A".
	Column string
	// Sheet is the spreadsheet sheet; defaults to the first sheet.
	Sheet string
}

// Load reads the identifiers described by src.
func Load(src Source) ([]string, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, fmt.Errorf("input path is required")
	}
	var (
		ids []string
		err error
	)
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".xlsx", ".xlsm":
		ids, err = loadSpreadsheet(src)
	default:
		ids, err = loadLines(src.Path)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", src.Path, ErrNoIdentifiers)
	}
	return ids, nil
}

func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return ids, nil
}

func loadSpreadsheet(src Source) ([]string, error) {
	column := strings.ToUpper(strings.TrimSpace(src.Column))
	if column == "" {
		column = "A"
	}
	if _, err := excelize.ColumnNameToNumber(column); err != nil {
		return nil, fmt.Errorf("invalid column %q: %w", src.Column, err)
	}

	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet %s has no sheets", src.Path)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in %s", sheet, src.Path)
	}

	var ids []string
	for row := 1; ; row++ {
		cell, err := excelize.JoinCellName(column, row)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		value, err := f.GetCellValue(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("read %s!%s: %w", sheet, cell, err)
		}
		// excelize reports a missing cell as "". A present cell holding only
		// whitespace is skipped without ending the column.
		if value == "" {
			break
		}
		if value = strings.TrimSpace(value); value != "" {
			ids = append(ids, value)
		}
	}
	return ids, nil
}
