package pgx

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *NetworkDBStorage) AddSuspect(ctx context.Context, name string) (int64, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	var id int64
	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		return tx.QueryRow(ctx, insertSuspectSQL, util.SanitizePostgresText(name)).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert suspect: %w", err)
	}
	return id, nil
}

func (s *NetworkDBStorage) AddCase(ctx context.Context, caseNumber string) (int64, error) {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	var id int64
	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		return tx.QueryRow(ctx, insertCaseSQL, caseNumber).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	return id, nil
}

func (s *NetworkDBStorage) LinkCaseSuspect(ctx context.Context, caseID, suspectID int64, suspectCaseID string) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		_, err := tx.Exec(ctx, insertCaseSuspectSQL, caseID, suspectID, suspectCaseID)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert case suspect: %w", err)
	}
	return nil
}

func (s *NetworkDBStorage) FindCaseSuspect(ctx context.Context, suspectCaseID string) (*common.CaseSuspect, error) {
	var cs common.CaseSuspect
	err := s.conn.QueryRow(ctx, findCaseSuspectSQL, suspectCaseID).
		Scan(&cs.ID, &cs.CaseID, &cs.SuspectID, &cs.SuspectCaseID)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find case suspect %q: %w", suspectCaseID, err)
	}
	return &cs, nil
}

func (s *NetworkDBStorage) GetSuspect(ctx context.Context, id int64) (*common.Suspect, error) {
	var sus common.Suspect
	err := s.conn.QueryRow(ctx, selectSuspectSQL, id).Scan(
		&sus.ID, &sus.Name,
		&sus.FirstDegreeLinks, &sus.SecondDegreeLinks,
		&sus.FirstDegreeCaseLinks, &sus.SecondDegreeCaseLinks,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("suspect %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get suspect %d: %w", id, err)
	}
	return &sus, nil
}

func (s *NetworkDBStorage) ListSuspects(ctx context.Context) ([]common.Suspect, error) {
	return querySuspects(ctx, s.conn)
}

// UpdateLinkStats writes the given stats in ascending suspect id order
// inside one transaction.
func (s *NetworkDBStorage) UpdateLinkStats(ctx context.Context, stats map[int64]common.LinkStats) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	ids := make([]int64, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	updated := 0
	err := s.withTx(ctx, func(tx pgxv5.Tx) error {
		for _, id := range ids {
			st := stats[id]
			tag, err := tx.Exec(ctx, updateLinkStatsSQL, id,
				st.FirstDegreeLinks, st.SecondDegreeLinks,
				st.FirstDegreeCaseLinks, st.SecondDegreeCaseLinks,
			)
			if err != nil {
				return fmt.Errorf("update suspect %d: %w", id, err)
			}
			updated += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func querySuspects(ctx context.Context, conn pgxIConn) ([]common.Suspect, error) {
	rows, err := conn.Query(ctx, selectSuspectsSQL)
	if err != nil {
		return nil, fmt.Errorf("query suspects: %w", err)
	}
	defer rows.Close()

	var out []common.Suspect
	for rows.Next() {
		var sus common.Suspect
		if err := rows.Scan(
			&sus.ID, &sus.Name,
			&sus.FirstDegreeLinks, &sus.SecondDegreeLinks,
			&sus.FirstDegreeCaseLinks, &sus.SecondDegreeCaseLinks,
		); err != nil {
			return nil, fmt.Errorf("scan suspect: %w", err)
		}
		out = append(out, sus)
	}
	return out, rows.Err()
}
