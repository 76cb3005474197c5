package sheet

import (
	"context"
	"sync"
)

// Memory keeps tables in process. It backs tests and the memory store driver.
type Memory struct {
	mu      sync.RWMutex
	tables  map[string]*Table
	schemas map[string][]string
}

func NewMemory(schemas map[string][]string) *Memory {
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &Memory{tables: map[string]*Table{}, schemas: schemas}
}

// Seed installs a table wholesale.
func (m *Memory) Seed(table *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := table.Clone()
	clone.Normalize()
	m.tables[table.Name] = clone
}

func (m *Memory) ReadTable(ctx context.Context, name string) (*Table, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[name]; ok {
		return t.Clone(), nil
	}
	return emptyTable(m.schemas, name), nil
}

func (m *Memory) AppendRow(ctx context.Context, name string, row Row) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tableLocked(name).Append(row)
	return nil
}

func (m *Memory) UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tableLocked(name).Update(match, update), nil
}

func (m *Memory) ReplaceTable(ctx context.Context, table *Table) error {
	if table == nil {
		return ErrInvalidTable
	}
	if err := validateName(table.Name); err != nil {
		return err
	}
	m.Seed(table)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) tableLocked(name string) *Table {
	t, ok := m.tables[name]
	if !ok {
		t = emptyTable(m.schemas, name)
		m.tables[name] = t
	}
	return t
}
