package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ImportRow maps lower-cased header names to cell values.
type ImportRow map[string]string

// Get returns the cell for column, or "" when the column is absent.
func (r ImportRow) Get(column string) string {
	return r[column]
}

// StructuralError reports a file that could not be parsed as CSV at all.
// No row is processed when it is returned.
type StructuralError struct {
	Details []string
}

func (e *StructuralError) Error() string {
	return "invalid CSV format: " + strings.Join(e.Details, "; ")
}

// ParseCSV decodes data as CSV with a header row. Empty lines are skipped and
// every record must have as many fields as the header.
func ParseCSV(data []byte) ([]ImportRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := strings.ToValidUTF8(string(data), "\uFFFD")

	reader := csv.NewReader(strings.NewReader(text))

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []ImportRow{}, nil
	}
	if err != nil {
		return nil, structuralError(err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			// only the first column with a given name is used
			name = ""
		}
		seen[name] = true
		columns[i] = name
	}

	rows := []ImportRow{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, structuralError(err)
		}

		row := make(ImportRow, len(columns))
		for i, column := range columns {
			if column != "" {
				row[column] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func structuralError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &StructuralError{Details: []string{
			fmt.Sprintf("line %d, column %d: %v", parseErr.Line, parseErr.Column, parseErr.Err),
		}}
	}
	return &StructuralError{Details: []string{err.Error()}}
}
