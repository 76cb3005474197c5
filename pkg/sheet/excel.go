package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const defaultExcelSheet = "Sheet1"

// Excel persists every table as a worksheet of a single workbook. Each write
// rewrites the workbook through a temp file so readers never see a torn file.
type Excel struct {
	path    string
	schemas map[string][]string
	mu      sync.Mutex
}

func NewExcel(path string, schemas map[string][]string) (*Excel, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("workbook path required")
	}
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &Excel{path: path, schemas: schemas}, nil
}

// EnsureTables creates the workbook and any missing schema worksheet.
// Existing worksheets keep their headers; missing schema columns are appended.
func (e *Excel) EnsureTables(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, created, err := e.open()
	if err != nil {
		return err
	}
	defer f.Close()

	names := make([]string, 0, len(e.schemas))
	for name := range e.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		columns := e.schemas[name]
		t, err := readWorksheet(f, name, nil)
		if err != nil {
			return err
		}
		if t == nil {
			t = NewTable(name, columns...)
		} else {
			for _, col := range columns {
				if !t.HasColumn(col) {
					t.Columns = append(t.Columns, col)
				}
			}
			t.Normalize()
		}
		if err := writeWorksheet(f, t); err != nil {
			return err
		}
	}
	if created {
		if _, ok := e.schemas[defaultExcelSheet]; !ok && len(e.schemas) > 0 {
			if err := f.DeleteSheet(defaultExcelSheet); err != nil {
				return fmt.Errorf("drop default worksheet: %w", err)
			}
		}
	}
	return e.save(f)
}

func (e *Excel) ReadTable(ctx context.Context, name string) (*Table, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := excelize.OpenFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyTable(e.schemas, name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	t, err := readWorksheet(f, name, e.schemas)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return emptyTable(e.schemas, name), nil
	}
	return t, nil
}

func (e *Excel) AppendRow(ctx context.Context, name string, row Row) error {
	return e.mutate(name, func(t *Table) error {
		t.Append(row)
		return nil
	})
}

func (e *Excel) UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error) {
	updated := 0
	err := e.mutate(name, func(t *Table) error {
		updated = t.Update(match, update)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (e *Excel) ReplaceTable(ctx context.Context, table *Table) error {
	if table == nil {
		return ErrInvalidTable
	}
	replacement := table.Clone()
	replacement.Normalize()
	return e.mutate(table.Name, func(t *Table) error {
		t.Columns = replacement.Columns
		t.Rows = replacement.Rows
		return nil
	})
}

// Ping reports whether the workbook can be opened.
func (e *Excel) Ping(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	return f.Close()
}

func (e *Excel) mutate(name string, fn func(*Table) error) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	f, _, err := e.open()
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := readWorksheet(f, name, e.schemas)
	if err != nil {
		return err
	}
	if t == nil {
		t = emptyTable(e.schemas, name)
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := writeWorksheet(f, t); err != nil {
		return err
	}
	return e.save(f)
}

func (e *Excel) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	return f, false, nil
}

func (e *Excel) save(f *excelize.File) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	dir := filepath.Dir(e.path)
	tmp, err := os.CreateTemp(dir, ".imiq-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmpName, e.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// readWorksheet returns nil when the worksheet does not exist.
func readWorksheet(f *excelize.File, name string, schemas map[string][]string) (*Table, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("lookup worksheet %s: %w", name, err)
	}
	if idx == -1 {
		return nil, nil
	}
	raw, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", name, err)
	}
	if len(raw) == 0 {
		return emptyTable(schemas, name), nil
	}

	header := make([]string, len(raw[0]))
	t := NewTable(name)
	for i, col := range raw[0] {
		header[i] = strings.TrimSpace(col)
		if header[i] != "" && !t.HasColumn(header[i]) {
			t.Columns = append(t.Columns, header[i])
		}
	}
	for _, cells := range raw[1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(t.Columns))
		for _, col := range t.Columns {
			row[col] = ""
		}
		for i, col := range header {
			if col == "" || i >= len(cells) {
				continue
			}
			row[col] = cells[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func writeWorksheet(f *excelize.File, t *Table) error {
	idx, err := f.GetSheetIndex(t.Name)
	if err != nil {
		return fmt.Errorf("lookup worksheet %s: %w", t.Name, err)
	}
	oldRows, oldWidth := 0, 0
	if idx == -1 {
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create worksheet %s: %w", t.Name, err)
		}
	} else {
		existing, err := f.GetRows(t.Name)
		if err != nil {
			return fmt.Errorf("read worksheet %s: %w", t.Name, err)
		}
		oldRows = len(existing)
		for _, cells := range existing {
			oldWidth = max(oldWidth, len(cells))
		}
	}

	width := max(len(t.Columns), oldWidth)
	header := make([]string, width)
	copy(header, t.Columns)
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		values := make([]string, width)
		for j, col := range t.Columns {
			values[j] = row[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, t.Name, err)
		}
	}
	for r := oldRows; r > len(t.Rows)+1; r-- {
		if err := f.RemoveRow(t.Name, r); err != nil {
			return fmt.Errorf("trim row %d of %s: %w", r, t.Name, err)
		}
	}
	return nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
