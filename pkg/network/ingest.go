package network

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store"
)

// IngestResult reports what one relationship sheet added to the graph.
type IngestResult struct {
	SuspectID       int64
	ReusedSuspect   bool
	AccountsCreated int
	EdgesCreated    int
}

// Ingest adds the suspect, case, accounts and edges of one suspect's
// relationship rows. A suspect already linked under the same suspect case
// id is reused, so ingesting the same sheet twice adds nothing.
func Ingest(ctx context.Context, s store.NetworkStorage, rows []common.LinkRow) (*IngestResult, error) {
	if len(rows) == 0 {
		return &IngestResult{}, nil
	}
	head := rows[0]
	if head.SuspectCaseID == "" {
		return nil, fmt.Errorf("relationship rows have no suspect case id")
	}

	res := &IngestResult{}
	link, err := s.FindCaseSuspect(ctx, head.SuspectCaseID)
	if err != nil {
		return nil, fmt.Errorf("find case suspect: %w", err)
	}
	if link != nil {
		res.SuspectID = link.SuspectID
		res.ReusedSuspect = true
	} else {
		suspectID, err := s.AddSuspect(ctx, head.Name)
		if err != nil {
			return nil, fmt.Errorf("add suspect: %w", err)
		}
		caseID, err := s.AddCase(ctx, head.CaseID)
		if err != nil {
			return nil, fmt.Errorf("add case: %w", err)
		}
		if err := s.LinkCaseSuspect(ctx, caseID, suspectID, head.SuspectCaseID); err != nil {
			return nil, fmt.Errorf("link case suspect: %w", err)
		}
		res.SuspectID = suspectID
	}

	res.AccountsCreated, err = s.AddAccounts(ctx, rows, res.SuspectID)
	if err != nil {
		return nil, fmt.Errorf("add accounts: %w", err)
	}
	res.EdgesCreated, err = s.AddEdges(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("add edges: %w", err)
	}

	logger.Debug("[Network][Ingest] Ingested relationships",
		"suspect_case_id", head.SuspectCaseID,
		"suspect_id", res.SuspectID,
		"reused", res.ReusedSuspect,
		"accounts", res.AccountsCreated,
		"edges", res.EdgesCreated,
	)
	return res, nil
}

// Recalculate recomputes the link statistics of all suspects and writes
// the ones that changed. It returns the number of updated suspects.
func Recalculate(ctx context.Context, s store.NetworkStorage) (int, error) {
	g, err := s.LoadGraph(ctx)
	if err != nil {
		return 0, fmt.Errorf("load graph: %w", err)
	}
	changed := Changed(g.Suspects, ComputeLinks(g))
	if len(changed) == 0 {
		return 0, nil
	}
	n, err := s.UpdateLinkStats(ctx, changed)
	if err != nil {
		return 0, fmt.Errorf("update link stats: %w", err)
	}
	logger.Info("[Network][Recalculate] Updated link stats", "suspects", n, "total", len(g.Suspects))
	return n, nil
}
