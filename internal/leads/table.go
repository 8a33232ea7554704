package leads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a CSV export held in memory: a header row and data rows padded
// to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	table := &Table{Header: header}
	for _, record := range records[1:] {
		table.Rows = append(table.Rows, pad(record, len(header)))
	}
	return table, nil
}

func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, col := range t.Header {
		if col == name {
			return i
		}
	}
	return -1
}

func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Select returns a new table with only the named columns, in that order.
// Unknown columns are an error.
func (t *Table) Select(columns []string) (*Table, error) {
	indexes := make([]int, len(columns))
	for i, col := range columns {
		idx := t.Index(col)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		indexes[i] = idx
	}
	out := &Table{Header: append([]string(nil), columns...)}
	for _, row := range t.Rows {
		projected := make([]string, len(indexes))
		for i, idx := range indexes {
			projected[i] = row[idx]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// Distinct drops repeated rows, keeping the first occurrence.
func (t *Table) Distinct() *Table {
	out := &Table{Header: t.Header}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		key := fmt.Sprintf("%q", row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func pad(record []string, width int) []string {
	if len(record) >= width {
		return record[:width]
	}
	out := make([]string, width)
	copy(out, record)
	return out
}
