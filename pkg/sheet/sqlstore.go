package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableRecord is the header row of a table in the SQL backend.
type TableRecord struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Columns   string    `gorm:"column:columns;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (TableRecord) TableName() string { return "sheet_tables" }

// RowRecord stores one row as a JSON object keyed by column.
type RowRecord struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Sheet    string `gorm:"column:table_name;not null;index:idx_sheet_rows_position,priority:1"`
	Position int    `gorm:"column:position;not null;index:idx_sheet_rows_position,priority:2"`
	Payload  string `gorm:"column:payload;not null"`
}

func (RowRecord) TableName() string { return "sheet_rows" }

// Conn is the database handle the SQL store runs on. *db.Client satisfies it.
type Conn interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SQL keeps tables in two relational tables so the row store can run on
// Postgres (or SQLite in tests) instead of a workbook.
type SQL struct {
	conn    Conn
	schemas map[string][]string
	now     func() time.Time
}

func NewSQL(conn Conn, schemas map[string][]string) (*SQL, error) {
	if conn == nil || conn.DB() == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &SQL{conn: conn, schemas: schemas, now: time.Now}, nil
}

func (s *SQL) ReadTable(ctx context.Context, name string) (*Table, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	t, err := s.load(s.conn.DB().WithContext(ctx), name)
	if err != nil {
		return nil, err
	}
	return t.table, nil
}

func (s *SQL) AppendRow(ctx context.Context, name string, row Row) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.conn.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(tx, name)
		if err != nil {
			return err
		}
		before := len(loaded.table.Columns)
		loaded.table.Append(row)
		if !loaded.exists || len(loaded.table.Columns) != before {
			if err := s.saveHeader(tx, loaded.table); err != nil {
				return err
			}
		}
		// earlier rows only need rewriting when the header grew
		if len(loaded.table.Columns) != before {
			for i := range loaded.ids {
				if err := s.saveRow(tx, loaded.ids[i], loaded.table.Rows[i]); err != nil {
					return err
				}
			}
		}
		payload, err := json.Marshal(loaded.table.Rows[len(loaded.table.Rows)-1])
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		rec := RowRecord{Sheet: name, Position: loaded.nextPosition, Payload: string(payload)}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert row into %s: %w", name, err)
		}
		return nil
	})
}

func (s *SQL) UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	updated := 0
	err := s.conn.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(tx, name)
		if err != nil {
			return err
		}
		before := len(loaded.table.Columns)
		updated = loaded.table.Update(match, update)
		if updated == 0 {
			return nil
		}
		if len(loaded.table.Columns) != before {
			if err := s.saveHeader(tx, loaded.table); err != nil {
				return err
			}
		}
		for i := range loaded.ids {
			if err := s.saveRow(tx, loaded.ids[i], loaded.table.Rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *SQL) ReplaceTable(ctx context.Context, table *Table) error {
	if table == nil {
		return ErrInvalidTable
	}
	if err := validateName(table.Name); err != nil {
		return err
	}
	replacement := table.Clone()
	replacement.Normalize()
	return s.conn.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.saveHeader(tx, replacement); err != nil {
			return err
		}
		if err := tx.Where("table_name = ?", replacement.Name).Delete(&RowRecord{}).Error; err != nil {
			return fmt.Errorf("clear %s: %w", replacement.Name, err)
		}
		if len(replacement.Rows) == 0 {
			return nil
		}
		records := make([]RowRecord, 0, len(replacement.Rows))
		for i, row := range replacement.Rows {
			payload, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
			records = append(records, RowRecord{Sheet: replacement.Name, Position: i + 1, Payload: string(payload)})
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("insert rows into %s: %w", replacement.Name, err)
		}
		return nil
	})
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type loadedTable struct {
	table        *Table
	ids          []uint64
	exists       bool
	nextPosition int
}

func (s *SQL) load(db *gorm.DB, name string) (*loadedTable, error) {
	var header TableRecord
	err := db.Where("name = ?", name).Take(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &loadedTable{table: emptyTable(s.schemas, name), nextPosition: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s header: %w", name, err)
	}

	t := NewTable(name)
	if err := json.Unmarshal([]byte(header.Columns), &t.Columns); err != nil {
		return nil, fmt.Errorf("decode %s header: %w", name, err)
	}

	var records []RowRecord
	if err := db.Where("table_name = ?", name).Order("position ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load %s rows: %w", name, err)
	}
	out := &loadedTable{table: t, exists: true, nextPosition: 1}
	for _, rec := range records {
		row := Row{}
		if err := json.Unmarshal([]byte(rec.Payload), &row); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", name, rec.ID, err)
		}
		t.Rows = append(t.Rows, row)
		out.ids = append(out.ids, rec.ID)
		out.nextPosition = max(out.nextPosition, rec.Position+1)
	}
	t.Normalize()
	return out, nil
}

func (s *SQL) saveHeader(tx *gorm.DB, t *Table) error {
	cols, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	rec := TableRecord{Name: t.Name, Columns: string(cols), UpdatedAt: s.now().UTC()}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"columns", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s header: %w", t.Name, err)
	}
	return nil
}

func (s *SQL) saveRow(tx *gorm.DB, id uint64, row Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := tx.Model(&RowRecord{}).Where("id = ?", id).Update("payload", string(payload)).Error; err != nil {
		return fmt.Errorf("update row %d: %w", id, err)
	}
	return nil
}
