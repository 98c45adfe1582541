// Package network maintains the suspect association graph: it plans which
// accounts and edges a relationship sheet adds and recomputes the degree
// link statistics of every suspect.
package network

import (
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// Columns of a relationship sheet.
const (
	ColName             = "Name"
	ColSource           = "Source"
	ColTarget           = "Target"
	ColTargetLabel      = "Target_Label"
	ColRelationshipType = "Relationship_Type"
	ColEdgeDirection    = "Edge_Direction"
	ColCaseID           = "Case_ID"
	ColSuspectCaseID    = "Suspect_Case_ID"
)

// RelationshipHeader is the header of a fresh relationship sheet.
var RelationshipHeader = []string{
	ColName, ColSource, ColTarget, ColTargetLabel, ColRelationshipType,
	ColEdgeDirection, ColCaseID, ColSuspectCaseID,
}

// RowsFromTable reads a relationship sheet. Rows without source or target
// are skipped.
func RowsFromTable(t *sheet.Table) []common.LinkRow {
	if t == nil {
		return nil
	}
	rows := make([]common.LinkRow, 0, t.Len())
	for _, rec := range t.Rows {
		src := strings.TrimSpace(rec.Get(ColSource))
		dst := strings.TrimSpace(rec.Get(ColTarget))
		if src == "" || dst == "" {
			continue
		}
		dir, _ := sheet.Int(rec.Get(ColEdgeDirection))
		rows = append(rows, common.LinkRow{
			Name:             strings.TrimSpace(rec.Get(ColName)),
			Source:           src,
			Target:           dst,
			TargetLabel:      rec.Get(ColTargetLabel),
			RelationshipType: strings.TrimSpace(rec.Get(ColRelationshipType)),
			Direction:        dir,
			CaseID:           strings.TrimSpace(rec.Get(ColCaseID)),
			SuspectCaseID:    strings.TrimSpace(rec.Get(ColSuspectCaseID)),
		})
	}
	return rows
}

// AccountTypeFor infers the account type from its name.
func AccountTypeFor(name string) common.AccountType {
	if strings.Contains(strings.ToLower(name), "facebook") {
		return common.AccountFacebook
	}
	return common.AccountPhone
}

// PlanAccounts returns the accounts rows would add: every source account
// owned by ownerID, then every target account without owner. Names already
// in existing, or seen earlier in the batch, are skipped.
func PlanAccounts(rows []common.LinkRow, ownerID int64, existing map[string]struct{}) []common.Account {
	seen := make(map[string]struct{}, len(rows)*2)
	var out []common.Account
	add := func(name, label string, owner *int64) {
		if name == "" {
			return
		}
		if _, ok := existing[name]; ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, common.Account{
			Name:      name,
			Label:     label,
			Type:      AccountTypeFor(name),
			SuspectID: owner,
		})
	}

	owner := ownerID
	for _, r := range rows {
		add(r.Source, "", &owner)
	}
	for _, r := range rows {
		add(r.Target, r.TargetLabel, nil)
	}
	return out
}

// DirectionGlyph renders an edge direction inside a combo id.
func DirectionGlyph(direction int) (string, bool) {
	switch direction {
	case common.DirectionBoth:
		return "<->", true
	case common.DirectionForward:
		return "->", true
	case common.DirectionReverse:
		return "<-", true
	}
	return "", false
}

// ComboID builds the de-duplication key of an edge. Unresolved account ids
// render as "null". ok is false for unknown directions.
func ComboID(sourceID *int64, direction int, targetID *int64) (string, bool) {
	glyph, ok := DirectionGlyph(direction)
	if !ok {
		return "", false
	}
	return idString(sourceID) + glyph + idString(targetID), true
}

func idString(id *int64) string {
	if id == nil {
		return "null"
	}
	return strconv.FormatInt(*id, 10)
}

// PlanEdges resolves rows against the stored accounts and edge types and
// returns the edges whose combo id is neither in existing nor repeated in
// the batch. Lookup misses leave the id nil. Rows with an unknown direction
// are dropped.
func PlanEdges(
	rows []common.LinkRow,
	accounts map[string]common.Account,
	edgeTypes map[string]int64,
	existing map[string]struct{},
) (edges []common.Edge, skipped int) {
	pairs := make(map[[2]string]struct{}, len(rows))
	combos := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		pair := [2]string{r.Source, r.Target}
		if _, ok := pairs[pair]; ok {
			continue
		}
		pairs[pair] = struct{}{}

		var e common.Edge
		if src, ok := accounts[r.Source]; ok {
			e.SourceAccountID = ptr(src.ID)
			e.SourceSuspectID = src.SuspectID
		}
		if dst, ok := accounts[r.Target]; ok {
			e.TargetAccountID = ptr(dst.ID)
		}
		if id, ok := edgeTypes[r.RelationshipType]; ok {
			e.EdgeTypeID = ptr(id)
		}
		e.Direction = r.Direction

		combo, ok := ComboID(e.SourceAccountID, e.Direction, e.TargetAccountID)
		if !ok {
			skipped++
			continue
		}
		if _, ok := existing[combo]; ok {
			continue
		}
		if _, ok := combos[combo]; ok {
			continue
		}
		combos[combo] = struct{}{}
		e.ComboID = combo
		edges = append(edges, e)
	}
	return edges, skipped
}

func ptr(v int64) *int64 {
	return &v
}
