package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses CSV content into a table. The first non-empty record is the
// header; blank lines and malformed records are skipped.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var values [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if isBlank(record) {
			continue
		}
		values = append(values, record)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("CSV content is empty or contains no valid data")
	}
	return FromValues(values), nil
}

// WriteCSV writes the table including its header row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(t.Values()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// EncodeCSV is WriteCSV into a byte slice.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
