// Package entity reconciles freshly extracted victim, suspect and police
// records with the sheets investigators already work on, and moves records
// from the active to the closed collections.
package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/address"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/identity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

type GroupName string

const (
	Victims  GroupName = "victims"
	Suspects GroupName = "suspects"
	Police   GroupName = "police"
)

// Column names shared by the entity sheets.
const (
	ColCaseID       = "Case_ID"
	ColVictimID     = "Victim_ID"
	ColSuspectID    = "Suspect_ID"
	ColName         = "Name"
	ColSuspectName  = "Suspect_Name"
	ColPhone        = "Phone_Number(s)"
	ColAddress      = "Address"
	ColCaseStatus   = "Case_Status"
	ColDateClosed   = "Date_Closed"
	ColPriority     = "Priority"
	colAddressRef   = address.ColAddress2ID
	LegalCaseStatus = "Closed: Already in Legal Cases Sheet"
	DateLayout      = "01/02/2006"
)

// Group is one entity collection. Prior holds the active sheet as read at the
// start of the run, New the pending records derived from the extraction.
type Group struct {
	Name        GroupName
	UID         string
	ActiveSheet string
	ClosedSheet string

	New    *sheet.Table
	Prior  *sheet.Table
	Active *sheet.Table
	Closed *sheet.Table
}

// NewGroup creates a group. Nil tables are replaced with empty ones.
func NewGroup(name GroupName, uid string, pending, prior, closed *sheet.Table) *Group {
	g := &Group{
		Name:   name,
		UID:    uid,
		New:    orEmpty(pending),
		Prior:  orEmpty(prior),
		Closed: orEmpty(closed),
	}
	g.ActiveSheet, g.ClosedSheet = sheetNames(name)
	g.Active = g.Prior.Filter(func(rec sheet.Record) bool {
		return rec.Get(uid) != ""
	}).Clone()
	return g
}

func sheetNames(name GroupName) (string, string) {
	switch name {
	case Victims:
		return sheet.Victims, sheet.ClosedVictims
	case Suspects:
		return sheet.Suspects, sheet.ClosedSuspects
	case Police:
		return sheet.Police, sheet.ClosedPolice
	}
	return string(name), "Closed_" + string(name)
}

func orEmpty(t *sheet.Table) *sheet.Table {
	if t == nil {
		return sheet.New()
	}
	return t
}

// Disjoint reports whether no uid is both active and closed.
func (g *Group) Disjoint() bool {
	closed := g.Closed.Set(g.UID)
	for _, rec := range g.Active.Rows {
		if _, ok := closed[rec.Get(g.UID)]; ok {
			return false
		}
	}
	return true
}

// Context holds the groups of one reconciliation run.
type Context struct {
	groups map[GroupName]*Group
	order  []GroupName
}

func NewContext() *Context {
	return &Context{groups: make(map[GroupName]*Group)}
}

// Add registers g, replacing any group with the same name.
func (c *Context) Add(g *Group) {
	if _, ok := c.groups[g.Name]; !ok {
		c.order = append(c.order, g.Name)
	}
	c.groups[g.Name] = g
}

// Group returns the group registered under name.
func (c *Context) Group(name GroupName) (*Group, bool) {
	g, ok := c.groups[name]
	return g, ok
}

// Groups returns the groups in registration order.
func (c *Context) Groups() []*Group {
	out := make([]*Group, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.groups[name])
	}
	return out
}

func (c *Context) mustGroups(names ...GroupName) ([]*Group, error) {
	out := make([]*Group, len(names))
	for i, name := range names {
		g, ok := c.groups[name]
		if !ok {
			return nil, fmt.Errorf("entity group %q not registered", name)
		}
		out[i] = g
	}
	return out, nil
}

// MergeAddresses sets Address on every pending record. Unresolved references
// leave the address empty.
func (c *Context) MergeAddresses(book *address.Book) {
	for _, g := range c.Groups() {
		g.New.EnsureColumn(ColAddress)
		misses := 0
		for _, rec := range g.New.Rows {
			addr, ok := book.Resolve(rec.Get(colAddressRef))
			if !ok {
				misses++
			}
			rec[ColAddress] = addr
		}
		if misses > 0 {
			logger.Debug("[Entity][MergeAddresses] Unresolved addresses", "group", g.Name, "count", misses)
		}
	}
}

// SetCaseID replaces the raw form number in Case_ID with the derived case id.
// Records with a malformed form number are dropped.
func (c *Context) SetCaseID() {
	for _, g := range c.Groups() {
		g.New = g.New.Filter(func(rec sheet.Record) bool {
			caseID, err := identity.DeriveCaseID(rec.Get(ColCaseID))
			if err != nil {
				logger.Warn("[Entity][SetCaseID] Dropping record", "group", g.Name, "uid", rec.Get(g.UID), "err", err)
				return false
			}
			rec[ColCaseID] = caseID
			return true
		})
	}
}

// CombineSheets unions the pending records into the active set. Pending
// records are projected onto the prior sheet's header and lose against a
// record already active under the same uid.
func (c *Context) CombineSheets() {
	for _, g := range c.Groups() {
		header := g.Prior.Header
		if len(header) == 0 {
			header = visibleHeader(g.New.Header)
		}
		active := sheet.Concat(sheet.New(header...), g.Prior.Clone(), g.New.Project(header))
		active = active.Project(header)
		active.DedupeBy(g.UID)
		g.Active = active.Filter(func(rec sheet.Record) bool {
			return rec.Get(g.UID) != ""
		})
	}
}

func visibleHeader(header []string) []string {
	out := make([]string, 0, len(header))
	for _, col := range header {
		if col == colAddressRef {
			continue
		}
		out = append(out, col)
	}
	return out
}

// MoveClosed closes active records whose uid is in the arrests feed or
// whose Date_Closed is set, for every group.
func (c *Context) MoveClosed(arrests *Arrests, today time.Time) {
	arrested := arrests.SuspectIDs()
	for _, g := range c.Groups() {
		newly := g.Active.Filter(func(rec sheet.Record) bool {
			if _, ok := arrested[rec.Get(g.UID)]; ok {
				return true
			}
			return strings.TrimSpace(rec.Get(ColDateClosed)) != ""
		}).Clone()
		for _, rec := range newly.Rows {
			if _, ok := arrested[rec.Get(g.UID)]; ok {
				rec[ColCaseStatus] = LegalCaseStatus
			}
		}
		g.close(newly, today)
	}
}

// MoveOtherClosed applies the cross-group closing rules until nothing
// changes:
//
//   - a suspect closes when its police counterpart is closed or no active
//     victim shares its case
//   - a police record closes when its suspect is closed or no active victim
//     shares its case
//   - a victim closes when no active police record or no active suspect
//     shares its case
func (c *Context) MoveOtherClosed(today time.Time) error {
	gs, err := c.mustGroups(Suspects, Police, Victims)
	if err != nil {
		return err
	}
	suspects, police, victims := gs[0], gs[1], gs[2]

	for {
		victimCases := victims.Active.Set(ColCaseID)
		policeCases := police.Active.Set(ColCaseID)
		suspectCases := suspects.Active.Set(ColCaseID)
		closedPolice := police.Closed.Set(ColSuspectID)
		closedSuspects := suspects.Closed.Set(ColSuspectID)

		closeSuspects := suspects.Active.Filter(func(rec sheet.Record) bool {
			return has(closedPolice, rec.Get(ColSuspectID)) || !has(victimCases, rec.Get(ColCaseID))
		})
		closePolice := police.Active.Filter(func(rec sheet.Record) bool {
			return has(closedSuspects, rec.Get(ColSuspectID)) || !has(victimCases, rec.Get(ColCaseID))
		})
		closeVictims := victims.Active.Filter(func(rec sheet.Record) bool {
			return !has(policeCases, rec.Get(ColCaseID)) || !has(suspectCases, rec.Get(ColCaseID))
		})

		before := suspects.Active.Len() + police.Active.Len() + victims.Active.Len()
		suspects.close(closeSuspects.Clone(), today)
		police.close(closePolice.Clone(), today)
		victims.close(closeVictims.Clone(), today)
		if suspects.Active.Len()+police.Active.Len()+victims.Active.Len() == before {
			return nil
		}
	}
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// close appends newly closed records to Closed, keeping the first record per
// uid, and removes every closed uid from Active.
func (g *Group) close(newly *sheet.Table, today time.Time) {
	stamp := today.Format(DateLayout)
	for _, rec := range newly.Rows {
		if strings.TrimSpace(rec.Get(ColDateClosed)) == "" {
			rec[ColDateClosed] = stamp
		}
	}

	header := g.Closed.Header
	if len(header) == 0 {
		header = g.Active.Header
	}
	closed := sheet.Concat(sheet.New(header...), g.Closed, newly)
	closed.EnsureColumn(ColDateClosed)
	closed.DedupeBy(g.UID)
	g.Closed = closed

	ids := g.Closed.Set(g.UID)
	g.Active = g.Active.Filter(func(rec sheet.Record) bool {
		return !has(ids, rec.Get(g.UID))
	})
}

// Snapshot returns the active and closed tables of every group, in the
// order they are written back.
func (c *Context) Snapshot() []sheet.Named {
	var out []sheet.Named
	for _, name := range []GroupName{Victims, Suspects, Police} {
		g, ok := c.groups[name]
		if !ok {
			continue
		}
		out = append(out,
			sheet.Named{Name: g.ActiveSheet, Table: g.Active},
			sheet.Named{Name: g.ClosedSheet, Table: g.Closed},
		)
	}
	return out
}
