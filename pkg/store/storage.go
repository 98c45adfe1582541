package store

import (
	"context"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
)

// NetworkStorage persists the suspect association graph. Every mutating
// method is transactional; account names and edge combo ids are unique.
type NetworkStorage interface {
	AddSuspect(ctx context.Context, name string) (int64, error)
	AddCase(ctx context.Context, caseNumber string) (int64, error)
	LinkCaseSuspect(ctx context.Context, caseID, suspectID int64, suspectCaseID string) error
	// FindCaseSuspect returns nil without error when no link exists.
	FindCaseSuspect(ctx context.Context, suspectCaseID string) (*common.CaseSuspect, error)

	// AddAccounts inserts the source and target accounts of rows not yet
	// stored and returns how many were created.
	AddAccounts(ctx context.Context, rows []common.LinkRow, ownerID int64) (int, error)
	// AddEdges inserts the edges of rows whose combo id is new and returns
	// how many were created.
	AddEdges(ctx context.Context, rows []common.LinkRow) (int, error)

	LoadGraph(ctx context.Context) (*common.Graph, error)
	// UpdateLinkStats writes the stats of the given suspects only.
	UpdateLinkStats(ctx context.Context, stats map[int64]common.LinkStats) (int, error)
	GetSuspect(ctx context.Context, id int64) (*common.Suspect, error)
	ListSuspects(ctx context.Context) ([]common.Suspect, error)
}
