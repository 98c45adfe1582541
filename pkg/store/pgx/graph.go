package pgx

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const accountLookupChunk = 500

// AddAccounts inserts the planned accounts. Names already stored are left
// to the unique constraint.
func (s *NetworkDBStorage) AddAccounts(ctx context.Context, rows []common.LinkRow, ownerID int64) (int, error) {
	planned := network.PlanAccounts(rows, ownerID, nil)
	if len(planned) == 0 {
		return 0, nil
	}
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	created := 0
	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		for _, a := range planned {
			tag, err := tx.Exec(ctx, insertAccountSQL, a.Name, a.Label, int64(a.Type), a.SuspectID)
			if err != nil {
				return fmt.Errorf("insert account %q: %w", a.Name, err)
			}
			created += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// AddEdges resolves the rows against stored accounts and edge types and
// inserts the edges whose combo id is new.
func (s *NetworkDBStorage) AddEdges(ctx context.Context, rows []common.LinkRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	names := store.AccountNames(rows)

	created := 0
	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		accounts := make(map[string]common.Account, len(names))
		err := store.InBatches(names, accountLookupChunk, func(batch []string) error {
			found, err := queryAccounts(ctx, tx, selectAccountsByNameSQL, batch)
			if err != nil {
				return err
			}
			for _, a := range found {
				accounts[a.Name] = a
			}
			return nil
		})
		if err != nil {
			return err
		}
		types, err := s.loadEdgeTypes(ctx, tx)
		if err != nil {
			return err
		}

		edges, skipped := network.PlanEdges(rows, accounts, types, nil)
		if skipped > 0 {
			logger.Warn("[Store][AddEdges] Skipped rows with invalid direction", "rows", skipped)
		}
		for _, e := range edges {
			tag, err := tx.Exec(ctx, insertEdgeSQL,
				e.SourceSuspectID, e.SourceAccountID, e.TargetAccountID,
				e.EdgeTypeID, e.Direction, e.ComboID,
			)
			if err != nil {
				return fmt.Errorf("insert edge %s: %w", e.ComboID, err)
			}
			created += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *NetworkDBStorage) loadEdgeTypes(ctx context.Context, conn pgxIConn) (map[string]int64, error) {
	if s.edgeTypes != nil {
		return s.edgeTypes, nil
	}
	rows, err := conn.Query(ctx, selectEdgeTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("query edge types: %w", err)
	}
	defer rows.Close()

	types := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan edge type: %w", err)
		}
		types[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.edgeTypes = types
	return types, nil
}

// LoadGraph reads every suspect, account, edge, case and case link.
func (s *NetworkDBStorage) LoadGraph(ctx context.Context) (*common.Graph, error) {
	g := &common.Graph{}
	var err error

	if g.Suspects, err = querySuspects(ctx, s.conn); err != nil {
		return nil, err
	}
	if g.Accounts, err = queryAccounts(ctx, s.conn, selectAccountsSQL); err != nil {
		return nil, err
	}
	if g.Edges, err = queryEdges(ctx, s.conn); err != nil {
		return nil, err
	}
	if g.Cases, err = queryCases(ctx, s.conn); err != nil {
		return nil, err
	}
	if g.CaseSuspects, err = queryCaseSuspects(ctx, s.conn); err != nil {
		return nil, err
	}

	logger.Debug("[Store][LoadGraph] Loaded graph",
		"suspects", len(g.Suspects),
		"accounts", len(g.Accounts),
		"edges", len(g.Edges),
	)
	return g, nil
}

func queryAccounts(ctx context.Context, conn pgxIConn, sql string, args ...any) ([]common.Account, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []common.Account
	for rows.Next() {
		var (
			a      common.Account
			typeID int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Label, &typeID, &a.SuspectID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = common.AccountType(typeID)
		out = append(out, a)
	}
	return out, rows.Err()
}

func queryEdges(ctx context.Context, conn pgxIConn) ([]common.Edge, error) {
	rows, err := conn.Query(ctx, selectEdgesSQL)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []common.Edge
	for rows.Next() {
		var e common.Edge
		if err := rows.Scan(
			&e.ID, &e.SourceSuspectID, &e.SourceAccountID, &e.TargetAccountID,
			&e.EdgeTypeID, &e.Direction, &e.ComboID,
		); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func queryCases(ctx context.Context, conn pgxIConn) ([]common.Case, error) {
	rows, err := conn.Query(ctx, selectCasesSQL)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var out []common.Case
	for rows.Next() {
		var c common.Case
		if err := rows.Scan(&c.ID, &c.Number); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryCaseSuspects(ctx context.Context, conn pgxIConn) ([]common.CaseSuspect, error) {
	rows, err := conn.Query(ctx, selectCaseSuspectsSQL)
	if err != nil {
		return nil, fmt.Errorf("query case suspects: %w", err)
	}
	defer rows.Close()

	var out []common.CaseSuspect
	for rows.Next() {
		var cs common.CaseSuspect
		if err := rows.Scan(&cs.ID, &cs.CaseID, &cs.SuspectID, &cs.SuspectCaseID); err != nil {
			return nil, fmt.Errorf("scan case suspect: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
