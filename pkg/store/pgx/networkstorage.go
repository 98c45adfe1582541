package pgx

import (
	"context"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// NetworkDBStorage implements store.NetworkStorage on PostgreSQL. Writes are
// serialized with a mutex and each mutating call runs in its own
// transaction.
type NetworkDBStorage struct {
	conn   pgxIConn
	dbLock sync.Mutex
	// edge types rarely change; cached after the first AddEdges.
	edgeTypes map[string]int64
}

var _ store.NetworkStorage = (*NetworkDBStorage)(nil)

type NetworkDBStorageOption func(*NetworkDBStorage)

// WithEdgeTypes preloads the edge type lookup, skipping the query.
func WithEdgeTypes(types map[string]int64) NetworkDBStorageOption {
	return func(s *NetworkDBStorage) {
		s.edgeTypes = types
	}
}

// NewNetworkDBStorageWithConnection creates a NetworkDBStorage on an existing
// pool or connection.
func NewNetworkDBStorageWithConnection(conn pgxIConn, opts ...NetworkDBStorageOption) *NetworkDBStorage {
	s := &NetworkDBStorage{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *NetworkDBStorage) withTx(ctx context.Context, fn func(tx pgxv5.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
