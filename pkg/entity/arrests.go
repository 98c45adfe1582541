package entity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/identity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// Columns of the legal cases (Arrests) sheet.
const (
	ColIRF           = "IRF#"
	ColArrestOutcome = "Outcome (Arrest)"
	personBoxes      = 7
)

// Arrest is one arrested suspect of a legal case.
type Arrest struct {
	SuspectID string
	CaseID    string
	Name      string
	Date      string
}

// Arrests is the parsed legal cases feed.
type Arrests struct {
	Records     []Arrest
	TotalByCase map[string]int
}

// ParseArrests reads the legal cases sheet. Only cases with an arrest
// outcome of 1 and person boxes marked as arrested are kept.
func ParseArrests(t *sheet.Table) *Arrests {
	a := &Arrests{TotalByCase: make(map[string]int)}
	if t == nil {
		return a
	}

	type boxCols struct{ name, arrested, date string }
	cols := make([]boxCols, personBoxes)
	for n := 1; n <= personBoxes; n++ {
		prefix := "PB" + strconv.Itoa(n) + " "
		cols[n-1] = boxCols{
			name:     findColumn(t.Header, prefix, "Name"),
			arrested: findColumn(t.Header, prefix, "Arrested"),
			date:     findColumn(t.Header, prefix, "Date"),
		}
	}

	for _, rec := range t.Rows {
		if outcome, _ := sheet.Int(rec.Get(ColArrestOutcome)); outcome != 1 {
			continue
		}
		caseID := strings.TrimSpace(rec.Get(ColIRF))
		if caseID == "" {
			continue
		}
		for n, c := range cols {
			if c.arrested == "" || !strings.Contains(rec.Get(c.arrested), "Yes") {
				continue
			}
			a.Records = append(a.Records, Arrest{
				SuspectID: identity.DeriveSuspectID(caseID, n+1),
				CaseID:    caseID,
				Name:      rec.Get(c.name),
				Date:      rec.Get(c.date),
			})
			a.TotalByCase[caseID]++
		}
	}
	return a
}

func findColumn(header []string, prefix, keyword string) string {
	for _, col := range header {
		if strings.HasPrefix(col, prefix) && strings.Contains(col, keyword) {
			return col
		}
	}
	return ""
}

// SuspectIDs returns the set of arrested suspect ids. Safe on nil.
func (a *Arrests) SuspectIDs() map[string]struct{} {
	out := make(map[string]struct{})
	if a == nil {
		return out
	}
	for _, r := range a.Records {
		out[r.SuspectID] = struct{}{}
	}
	return out
}

// Total returns the number of arrests recorded for caseID.
func (a *Arrests) Total(caseID string) int {
	if a == nil {
		return 0
	}
	return a.TotalByCase[caseID]
}

// Table renders the feed in the layout used for exports.
func (a *Arrests) Table() *sheet.Table {
	out := sheet.New("Suspect_ID", ColCaseID, ColName, "Arrest_Date", "Total_Arrests")
	if a == nil {
		return out
	}
	recs := append([]Arrest(nil), a.Records...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].SuspectID < recs[j].SuspectID })
	for _, r := range recs {
		out.Rows = append(out.Rows, sheet.Record{
			"Suspect_ID":    r.SuspectID,
			ColCaseID:       r.CaseID,
			ColName:         r.Name,
			"Arrest_Date":   r.Date,
			"Total_Arrests": strconv.Itoa(a.TotalByCase[r.CaseID]),
		})
	}
	return out
}
