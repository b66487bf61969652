package policy

import (
	"context"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// Store decorates a port.Store, merging policy descriptions into the
// column schema it reports.
type Store struct {
	port.Store
	policy *Policy
}

func NewStore(inner port.Store, pol *Policy) *Store {
	return &Store{Store: inner, policy: pol}
}

func (s *Store) ListColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	cols, err := s.Store.ListColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	MergeColumns(table, cols, s.policy)
	return cols, nil
}

// WrapOpener decorates every store open returns.
func WrapOpener(open port.StoreOpener, pol *Policy) port.StoreOpener {
	return func(ctx context.Context, src domain.Source) (port.Store, error) {
		store, err := open(ctx, src)
		if err != nil {
			return nil, err
		}
		return NewStore(store, pol), nil
	}
}
