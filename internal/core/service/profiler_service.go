package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// ValueProfiler computes value distributions for the columns of one store.
// Column existence is checked against the schema reader; schemas are cached
// per table for the profiler's lifetime.
type ValueProfiler struct {
	reader port.SchemaReader
	values port.ValueSource

	mu      sync.Mutex
	schemas map[string][]domain.ColumnDescriptor
}

func NewValueProfiler(store port.Store) *ValueProfiler {
	return &ValueProfiler{
		reader:  store,
		values:  store,
		schemas: make(map[string][]domain.ColumnDescriptor),
	}
}

// Columns returns the schema of table, reading it from the store once.
func (p *ValueProfiler) Columns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	p.mu.Lock()
	cols, ok := p.schemas[table]
	p.mu.Unlock()
	if ok {
		return cols, nil
	}

	cols, err := p.reader.ListColumns(ctx, table)
	if err != nil {
		return nil, classify(fmt.Sprintf("listing columns of %q", table), err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q %w", table, domain.ErrNotFound)
	}

	p.mu.Lock()
	p.schemas[table] = cols
	p.mu.Unlock()
	return cols, nil
}

// Profile returns the value distribution of table.column. It fails with
// domain.ErrNotFound when the column is not in the table's schema and with
// domain.ErrQuery when a store query fails; the distribution is only valid
// when err is nil.
func (p *ValueProfiler) Profile(ctx context.Context, table, column string) (*domain.ValueDistribution, error) {
	cols, err := p.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	col, ok := domain.LookupColumn(cols, column)
	if !ok {
		return nil, fmt.Errorf("column %q %w in table %q", column, domain.ErrNotFound, table)
	}

	total, err := p.values.CountRows(ctx, table)
	if err != nil {
		return nil, classify("counting rows", err)
	}
	nonNull, err := p.values.CountNonNull(ctx, table, col.Name)
	if err != nil {
		return nil, classify("counting non-null values", err)
	}
	groups, err := p.values.ValueCounts(ctx, table, col.Name)
	if err != nil {
		return nil, classify("grouping values", err)
	}

	dist, err := domain.NewValueDistribution(total, nonNull, groups)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuery, err)
	}
	return dist, nil
}

// classify wraps err with ErrQuery unless the store already tagged it.
func classify(op string, err error) error {
	for _, known := range []error{domain.ErrQuery, domain.ErrNotFound, domain.ErrConnection, domain.ErrConfiguration} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrQuery, err)
}
