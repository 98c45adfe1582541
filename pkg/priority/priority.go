// Package priority ranks active suspects for investigative follow-up and
// carries the resulting priority over to the victim and police sheets.
package priority

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/identity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// StepComplete marks a case status in which the victim agreed to testify
// or the police agreed to arrest.
const StepComplete = "Step Complete"

// Columns read from or written to the entity sheets.
const (
	ColBioLocation     = "Bio_and_Location"
	ColEminence        = "Eminence"
	ColSolvability     = "Solvability"
	ColStrengthOfCase  = "Strength_of_Case"
	ColVictimsWilling  = "Victims_Willing_to_Testify"
	ColInterviewDate   = entity.RawInterviewDate
	interviewDateShort = "2006-01-02"
)

// Willing summarises the victims of one case who are willing to testify.
type Willing struct {
	CaseID string
	Count  int
	Names  string
}

// VictimsWillingToTestify groups the victims whose status contains
// StepComplete by case, ordered by case id.
func VictimsWillingToTestify(victims *sheet.Table) []Willing {
	if victims == nil {
		return nil
	}
	byCase := make(map[string]*Willing)
	names := make(map[string][]string)
	for _, rec := range victims.Rows {
		if !strings.Contains(rec.Get(entity.ColCaseStatus), StepComplete) {
			continue
		}
		caseID := rec.Get(entity.ColCaseID)
		w, ok := byCase[caseID]
		if !ok {
			w = &Willing{CaseID: caseID}
			byCase[caseID] = w
		}
		w.Count++
		names[caseID] = append(names[caseID], rec.Get(entity.ColName))
	}

	out := make([]Willing, 0, len(byCase))
	for caseID, w := range byCase {
		w.Names = strings.Join(names[caseID], ", ")
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID < out[j].CaseID })
	return out
}

func willingByCase(willing []Willing) map[string]Willing {
	out := make(map[string]Willing, len(willing))
	for _, w := range willing {
		out[w.CaseID] = w
	}
	return out
}

// AddVictimNamesToPolice returns a copy of police with the names of the
// willing victims of each case in Victims_Willing_to_Testify.
func AddVictimNamesToPolice(police *sheet.Table, willing []Willing) *sheet.Table {
	out := police.Clone()
	out.EnsureColumn(ColVictimsWilling)
	idx := willingByCase(willing)
	for _, rec := range out.Rows {
		rec[ColVictimsWilling] = idx[rec.Get(entity.ColCaseID)].Names
	}
	return out
}

// RecencyScore is 1 - 0.01 per day for cases younger than 100 days.
func RecencyScore(daysOld int) float64 {
	if daysOld < 100 {
		return 1 - float64(daysOld)*0.01
	}
	return 0
}

// Eminence reads the eminence cell. Blank or unreadable values count as 1.
func Eminence(text string) int {
	n, ok := sheet.Int(text)
	if !ok {
		return 1
	}
	return n
}

// ParseInterviewDates indexes the interview date of every case in the
// interview extract. Unparseable dates and form numbers are skipped.
func ParseInterviewDates(cifs *sheet.Table) map[string]time.Time {
	out := make(map[string]time.Time)
	if cifs == nil {
		return out
	}
	for _, rec := range cifs.Rows {
		caseID, err := identity.DeriveCaseID(rec.Get(entity.RawFormNumber))
		if err != nil {
			continue
		}
		raw := strings.TrimSpace(rec.Get(ColInterviewDate))
		if len(raw) >= len(interviewDateShort) {
			raw = raw[:len(interviewDateShort)]
		}
		d, err := time.Parse(interviewDateShort, raw)
		if err != nil {
			continue
		}
		if _, ok := out[caseID]; !ok {
			out[caseID] = d
		}
	}
	return out
}

// Factors are the per suspect signals feeding the scores.
type Factors struct {
	VictimMultiplier float64
	BioKnown         float64
	OthersArrested   float64
	WillingToArrest  float64
	Recency          float64
	StrengthOfCase   float64
	Eminence         int
}

// Scored is one ranked suspect.
type Scored struct {
	Record      sheet.Record
	Factors     Factors
	Solvability float64
	Priority    float64
}

// Inputs bundles everything the scorer reads besides its parameters.
type Inputs struct {
	Suspects       *sheet.Table
	Police         *sheet.Table
	Willing        []Willing
	Arrests        *entity.Arrests
	InterviewDates map[string]time.Time
	// StrengthOfCase maps Suspect_ID to the case strength probability.
	StrengthOfCase map[string]float64
}

// Scorer computes Solvability and Priority for the active suspects.
type Scorer struct {
	params *Parameters
	today  time.Time
}

// NewScorer validates params and returns a scorer evaluated at today.
func NewScorer(params *Parameters, today time.Time) (*Scorer, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: no parameters", ErrMissingWeight)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{params: params, today: today}, nil
}

// Score ranks the suspects by priority, highest first. Ties keep the input
// order. Suspect ids appearing more than once keep their best ranked row.
func (s *Scorer) Score(in Inputs) ([]Scored, error) {
	if in.Suspects == nil {
		return nil, nil
	}
	for _, col := range []string{entity.ColCaseID, entity.ColSuspectID, ColBioLocation, ColEminence} {
		if !in.Suspects.Has(col) {
			return nil, fmt.Errorf("%w: suspects sheet has no %q", ErrMissingColumn, col)
		}
	}

	willing := willingByCase(in.Willing)
	policeWilling := make(map[string]bool)
	if in.Police != nil {
		for _, rec := range in.Police.Rows {
			if strings.Contains(rec.Get(entity.ColCaseStatus), StepComplete) {
				policeWilling[rec.Get(entity.ColSuspectID)] = true
			}
		}
	}

	w := s.params.Weights
	total := s.params.Total()
	out := make([]Scored, 0, in.Suspects.Len())
	missingSOC := 0
	for _, rec := range in.Suspects.Rows {
		caseID := rec.Get(entity.ColCaseID)
		suspectID := rec.Get(entity.ColSuspectID)

		f := Factors{
			VictimMultiplier: s.params.VictimMultiplier(willing[caseID].Count),
			OthersArrested:   float64(in.Arrests.Total(caseID)),
			Eminence:         Eminence(rec.Get(ColEminence)),
		}
		if strings.TrimSpace(rec.Get(ColBioLocation)) != "" {
			f.BioKnown = 1
		}
		if policeWilling[suspectID] {
			f.WillingToArrest = 1
		}
		if d, ok := in.InterviewDates[caseID]; ok {
			f.Recency = RecencyScore(daysBetween(d, s.today))
		}
		if p, ok := in.StrengthOfCase[suspectID]; ok {
			f.StrengthOfCase = Round(p, 3)
		} else {
			missingSOC++
		}

		var solv float64
		if total != 0 {
			solv = (f.VictimMultiplier*w[FactorVictimWilling] +
				f.BioKnown*w[FactorBioLocation] +
				f.OthersArrested*w[FactorOthersArrested] +
				f.WillingToArrest*w[FactorPoliceWilling] +
				f.Recency*w[FactorRecency]) / total
		}
		prio := Round(solv*w[FactorSolvability]+
			f.StrengthOfCase*w[FactorStrength]+
			float64(f.Eminence)*0.1*w[FactorEminence], 3)

		out = append(out, Scored{Record: rec, Factors: f, Solvability: solv, Priority: prio})
	}
	if missingSOC > 0 {
		logger.Debug("[Priority][Score] Suspects without strength of case", "count", missingSOC)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })

	seen := make(map[string]struct{}, len(out))
	deduped := out[:0]
	for _, sc := range out {
		id := sc.Record.Get(entity.ColSuspectID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, sc)
	}
	return deduped, nil
}

// Table renders scored suspects in rank order using header plus the score
// columns. Records are copied.
func Table(header []string, scored []Scored) *sheet.Table {
	out := sheet.New(header...)
	for _, col := range []string{ColSolvability, ColStrengthOfCase, entity.ColPriority} {
		out.EnsureColumn(col)
	}
	for _, sc := range scored {
		rec := sc.Record.Clone()
		rec[ColSolvability] = sheet.FormatFloat(Round(sc.Solvability, 3))
		rec[ColStrengthOfCase] = sheet.FormatFloat(sc.Factors.StrengthOfCase)
		rec[entity.ColPriority] = sheet.FormatFloat(sc.Priority)
		out.Rows = append(out.Rows, rec)
	}
	return out
}

// PropagatePriority copies the suspects' Priority onto other by joinKey.
// Records without a matching suspect are dropped, duplicates by uid keep
// the first match, and the result is sorted by priority, highest first.
// suspects must already be in rank order.
func PropagatePriority(suspects, other *sheet.Table, joinKey, uid string) *sheet.Table {
	out := sheet.New(other.Header...)
	out.EnsureColumn(entity.ColPriority)

	matches := make(map[string][]string)
	for _, rec := range suspects.Rows {
		k := rec.Get(joinKey)
		matches[k] = append(matches[k], rec.Get(entity.ColPriority))
	}

	type ranked struct {
		rec sheet.Record
		p   float64
	}
	var rows []ranked
	seen := make(map[string]struct{})
	for _, rec := range other.Rows {
		prios, ok := matches[rec.Get(joinKey)]
		if !ok {
			continue
		}
		id := rec.Get(uid)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		n := rec.Clone()
		n[entity.ColPriority] = prios[0]
		p, _ := sheet.Float(prios[0])
		rows = append(rows, ranked{rec: n, p: p})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].p > rows[j].p })
	for _, r := range rows {
		out.Rows = append(out.Rows, r.rec)
	}
	return out
}

// Round rounds x to places decimals, half away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
