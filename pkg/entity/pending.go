package entity

import (
	"sort"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/identity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// Columns of the raw extraction record sets.
const (
	RawFormNumber    = "cif_number"
	RawFullName      = "full_name"
	RawPhone         = "phone_contact"
	RawPersonID      = "person_id"
	RawPersonBox     = "pb_number"
	RawInterviewDate = "interview_date"
)

// BuildNewVictims turns the raw victim extract into pending victim records.
// Case_ID still carries the raw form number until Context.SetCaseID runs.
func BuildNewVictims(raw *sheet.Table) *sheet.Table {
	out := sheet.New(ColCaseID, ColName, ColPhone, ColAddress, ColVictimID, colAddressRef)
	if raw == nil {
		return out
	}
	for _, rec := range raw.Rows {
		name := strings.TrimSpace(rec.Get(RawFullName))
		if name == "" {
			continue
		}
		victimID, err := identity.VictimIDFromForm(rec.Get(RawFormNumber))
		if err != nil {
			logger.Warn("[Entity][BuildNewVictims] Dropping victim", "form", rec.Get(RawFormNumber), "err", err)
			continue
		}
		out.Rows = append(out.Rows, sheet.Record{
			ColCaseID:     rec.Get(RawFormNumber),
			ColName:       name,
			ColPhone:      rec.Get(RawPhone),
			ColAddress:    "",
			ColVictimID:   victimID,
			colAddressRef: rec.Get(colAddressRef),
		})
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Get(ColName) < out.Rows[j].Get(ColName)
	})
	out.DedupeBy(ColVictimID)
	return out
}

type formRef struct {
	form      string
	personBox int
}

// BuildNewSuspects joins the raw person box extract to the interview
// records by person id and derives one pending suspect per person box.
func BuildNewSuspects(raw, cifs *sheet.Table) *sheet.Table {
	out := sheet.New(ColCaseID, ColName, ColPhone, ColAddress, ColSuspectID, colAddressRef)
	if raw == nil {
		return out
	}

	forms := make(map[string][]formRef)
	if cifs != nil {
		for _, rec := range cifs.Rows {
			pid := strings.TrimSpace(rec.Get(RawPersonID))
			if pid == "" {
				continue
			}
			forms[pid] = append(forms[pid], formRef{
				form:      rec.Get(RawFormNumber),
				personBox: identity.ParsePersonBox(rec.Get(RawPersonBox)),
			})
		}
	}

	unmatched := 0
	for _, rec := range raw.Rows {
		refs, ok := forms[strings.TrimSpace(rec.Get(RawPersonID))]
		if !ok {
			unmatched++
			continue
		}
		for _, ref := range refs {
			suspectID, err := identity.SuspectIDFromForm(ref.form, ref.personBox)
			if err != nil {
				logger.Warn("[Entity][BuildNewSuspects] Dropping suspect", "form", ref.form, "err", err)
				continue
			}
			out.Rows = append(out.Rows, sheet.Record{
				ColCaseID:     ref.form,
				ColName:       strings.TrimSpace(rec.Get(RawFullName)),
				ColPhone:      rec.Get(RawPhone),
				ColAddress:    "",
				ColSuspectID:  suspectID,
				colAddressRef: rec.Get(colAddressRef),
			})
		}
	}
	if unmatched > 0 {
		logger.Debug("[Entity][BuildNewSuspects] Person boxes without interview", "count", unmatched)
	}
	out.DedupeBy(ColSuspectID)
	return out
}

// BuildNewPolice derives the pending police records from the pending
// suspects. The suspect's name moves to Suspect_Name.
func BuildNewPolice(suspects *sheet.Table) *sheet.Table {
	police := suspects.Clone()
	police.Rename(ColName, ColSuspectName)
	return police
}
