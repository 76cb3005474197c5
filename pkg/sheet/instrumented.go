package sheet

import (
	"context"
	"time"
)

// Observer receives the outcome of every store operation.
type Observer interface {
	ObserveOperation(op, table string, d time.Duration, err error)
}

const (
	OpRead    = "read"
	OpAppend  = "append"
	OpUpdate  = "update"
	OpReplace = "replace"
)

// Instrumented reports timings of the wrapped store to an Observer.
type Instrumented struct {
	next     Store
	observer Observer
	now      func() time.Time
}

func NewInstrumented(next Store, observer Observer) *Instrumented {
	return &Instrumented{next: next, observer: observer, now: time.Now}
}

func (s *Instrumented) ReadTable(ctx context.Context, name string) (*Table, error) {
	start := s.now()
	t, err := s.next.ReadTable(ctx, name)
	s.observe(OpRead, name, start, err)
	return t, err
}

func (s *Instrumented) AppendRow(ctx context.Context, name string, row Row) error {
	start := s.now()
	err := s.next.AppendRow(ctx, name, row)
	s.observe(OpAppend, name, start, err)
	return err
}

func (s *Instrumented) UpdateRows(ctx context.Context, name string, match func(Row) bool, update func(Row) Row) (int, error) {
	start := s.now()
	n, err := s.next.UpdateRows(ctx, name, match, update)
	s.observe(OpUpdate, name, start, err)
	return n, err
}

func (s *Instrumented) ReplaceTable(ctx context.Context, table *Table) error {
	start := s.now()
	err := s.next.ReplaceTable(ctx, table)
	name := ""
	if table != nil {
		name = table.Name
	}
	s.observe(OpReplace, name, start, err)
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Instrumented) observe(op, table string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(op, table, s.now().Sub(start), err)
}
