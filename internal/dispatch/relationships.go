package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/gsheets"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/network"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// createRelationshipSheets gives the top ranked suspects without one a
// fresh relationship sheet and stores its URL on the suspect record.
func (d *Dispatcher) createRelationshipSheets(ctx context.Context, ranked *sheet.Table) (int, error) {
	ranked.EnsureColumn(ColRelationships)
	created := 0
	for i, rec := range ranked.Rows {
		if i >= d.cfg.RelationshipSheets {
			break
		}
		if strings.TrimSpace(rec.Get(ColRelationships)) != "" {
			continue
		}
		id := rec.Get(entity.ColSuspectID)
		url, err := d.deps.Workbook.CreateRelationshipSheet(ctx, id+"_relationships", network.RelationshipHeader)
		if err != nil {
			return created, fmt.Errorf("relationship sheet for %s: %w", id, err)
		}
		rec[ColRelationships] = url
		created++
	}
	return created, nil
}

// ingestRelationshipSheets reads every linked relationship sheet of active
// and closed suspects into the graph. Unreadable sheets are logged and
// skipped so a single broken link never blocks the run.
func (d *Dispatcher) ingestRelationshipSheets(ctx context.Context, suspects *entity.Group) int {
	edges := 0
	failed := 0
	for _, t := range []*sheet.Table{suspects.Active, suspects.Closed} {
		for _, rec := range t.Rows {
			link := strings.TrimSpace(rec.Get(ColRelationships))
			if link == "" {
				continue
			}
			log := logger.With("suspect_id", rec.Get(entity.ColSuspectID))
			spreadsheetID, ok := gsheets.SpreadsheetIDFromURL(link)
			if !ok {
				log.Warn("[Dispatch][Ingest] Not a spreadsheet link", "link", link)
				failed++
				continue
			}
			tbl, err := d.deps.Workbook.ReadFirstSheet(ctx, spreadsheetID)
			if err != nil {
				log.Warn("[Dispatch][Ingest] Failed to read relationship sheet", "err", err)
				failed++
				continue
			}
			rows := withSuspectDefaults(network.RowsFromTable(tbl), rec)
			if len(rows) == 0 {
				continue
			}
			res, err := network.Ingest(ctx, d.deps.Graph, rows)
			if err != nil {
				log.Warn("[Dispatch][Ingest] Failed to ingest relationship sheet", "err", err)
				failed++
				continue
			}
			edges += res.EdgesCreated
		}
	}
	if failed > 0 {
		logger.Warn("[Dispatch][Ingest] Some relationship sheets were skipped", "failed", failed)
	}
	return edges
}

// withSuspectDefaults fills the identifying columns investigators usually
// leave blank from the suspect record owning the sheet.
func withSuspectDefaults(rows []common.LinkRow, rec sheet.Record) []common.LinkRow {
	for i := range rows {
		if rows[i].SuspectCaseID == "" {
			rows[i].SuspectCaseID = rec.Get(entity.ColSuspectID)
		}
		if rows[i].CaseID == "" {
			rows[i].CaseID = rec.Get(entity.ColCaseID)
		}
		if rows[i].Name == "" {
			rows[i].Name = rec.Get(entity.ColName)
		}
	}
	return rows
}
