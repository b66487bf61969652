package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockTable struct {
	columns []domain.ColumnDescriptor
	rows    [][]any
	pk      []domain.PrimaryKeyColumn
	fks     []domain.ForeignKey
	indexes []domain.Index
}

func (t *mockTable) columnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// mockStore is an in-memory port.Store. Errors are injected per call with
// keys of the form "op", "op:table" or "op:table:column".
type mockStore struct {
	tables map[string]*mockTable
	order  []string
	errs   map[string]error

	mu     sync.Mutex
	calls  []string
	closed bool
}

func newMockStore() *mockStore {
	return &mockStore{
		tables: make(map[string]*mockTable),
		errs:   make(map[string]error),
	}
}

func (m *mockStore) addTable(name string, cols []string, rows ...[]any) *mockTable {
	t := &mockTable{rows: rows}
	for i, c := range cols {
		t.columns = append(t.columns, domain.ColumnDescriptor{Name: c, DeclaredType: "TEXT", Nullable: true, OrdinalPosition: i + 1})
	}
	m.tables[name] = t
	m.order = append(m.order, name)
	return t
}

func (m *mockStore) fail(key string, err error) {
	m.errs[key] = err
}

func (m *mockStore) record(op string, parts ...string) error {
	key := op
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprint(op, parts))
	candidates := []string{key}
	for _, p := range parts {
		key += ":" + p
		candidates = append(candidates, key)
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		if err, ok := m.errs[candidates[i]]; ok {
			return err
		}
	}
	return nil
}

func (m *mockStore) table(name string) (*mockTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q %w", name, domain.ErrNotFound)
	}
	return t, nil
}

func (m *mockStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockStore) ListTables(context.Context) ([]string, error) {
	if err := m.record("ListTables"); err != nil {
		return nil, err
	}
	return slices.Clone(m.order), nil
}

func (m *mockStore) ListColumns(_ context.Context, table string) ([]domain.ColumnDescriptor, error) {
	if err := m.record("ListColumns", table); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.columns), nil
}

func (m *mockStore) PrimaryKey(_ context.Context, table string) ([]domain.PrimaryKeyColumn, error) {
	if err := m.record("PrimaryKey", table); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return t.pk, nil
}

func (m *mockStore) ForeignKeys(_ context.Context, table string) ([]domain.ForeignKey, error) {
	if err := m.record("ForeignKeys", table); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return t.fks, nil
}

func (m *mockStore) Indexes(_ context.Context, table string) ([]domain.Index, error) {
	if err := m.record("Indexes", table); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return t.indexes, nil
}

func (m *mockStore) CountRows(_ context.Context, table string) (int64, error) {
	if err := m.record("CountRows", table); err != nil {
		return 0, err
	}
	t, err := m.table(table)
	if err != nil {
		return 0, err
	}
	return int64(len(t.rows)), nil
}

func (m *mockStore) CountNonNull(_ context.Context, table, column string) (int64, error) {
	if err := m.record("CountNonNull", table, column); err != nil {
		return 0, err
	}
	t, err := m.table(table)
	if err != nil {
		return 0, err
	}
	idx := t.columnIndex(column)
	var n int64
	for _, r := range t.rows {
		if r[idx] != nil {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ValueCounts(_ context.Context, table, column string) ([]domain.RawValueCount, error) {
	if err := m.record("ValueCounts", table, column); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	idx := t.columnIndex(column)

	var groups []domain.RawValueCount
	pos := make(map[any]int)
	for _, r := range t.rows {
		v := r[idx]
		i, ok := pos[v]
		if !ok {
			i = len(groups)
			pos[v] = i
			groups = append(groups, domain.RawValueCount{Value: v})
		}
		groups[i].Count++
	}
	slices.SortStableFunc(groups, func(a, b domain.RawValueCount) int {
		return int(b.Count - a.Count)
	})
	return groups, nil
}

func (m *mockStore) ScanRows(_ context.Context, table string, columns []string, fn func([]any) error) error {
	if err := m.record("ScanRows", table); err != nil {
		return err
	}
	t, err := m.table(table)
	if err != nil {
		return err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		if idx[i] = t.columnIndex(c); idx[i] < 0 {
			return errors.New("no such column: " + c)
		}
	}
	values := make([]any, len(columns))
	for _, r := range t.rows {
		for i, j := range idx {
			values[i] = r[j]
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// openerFor returns a StoreOpener serving stores by source name.
func openerFor(stores map[string]*mockStore, errs map[string]error) port.StoreOpener {
	return func(_ context.Context, src domain.Source) (port.Store, error) {
		if err, ok := errs[src.Name]; ok {
			return nil, err
		}
		s, ok := stores[src.Name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", domain.ErrConnection, src.Name)
		}
		return s, nil
	}
}

type mockPolicy struct {
	assessment   map[string]bool
	masks        map[string]domain.MaskType
	descriptions map[string]string
}

func (p mockPolicy) IsAssessmentTable(table string) bool {
	return p.assessment[table]
}

func (p mockPolicy) ColumnMask(table, column string) domain.MaskType {
	return p.masks[table+"."+column]
}

func (p mockPolicy) TableDescription(table string) string {
	return p.descriptions[table]
}
