package soc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/entity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/identity"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"
)

// Row is the feature vector of one suspect.
type Row struct {
	SuspectID string
	Features  map[string]float64
}

const colDestination = "planned_destination"

// Columns that identify people or are free text and never become features.
var dropColumns = map[string]struct{}{
	"id": {}, "date_time_entered_into_system": {}, "status": {}, "location": {},
	"date_time_last_updated": {}, "staff_name": {}, "informant_number": {}, "case_notes": {},
	"pv_signed_form": {}, "consent_for_fundraising": {}, "social_media": {},
	"legal_action_taken_filed_against": {}, "officer_name": {}, "cif_id": {}, "person_id": {},
	"flag_count": {}, "main_pv_id": {}, "expected_earning": {}, "expected_earning_currency": {},
	"travel_expenses_paid_to_broker_amount": {}, "broker_relation": {},
	"travel_expenses_broker_repaid_amount": {}, "form_entered_by_id": {},
	"source_of_intelligence": {}, "incident_date": {}, "how_recruited_broker_other": {},
	"legal_action_taken": {}, "legal_action_taken_case_type": {}, "appearance": {},
	"date_visit_police_station": {}, "victim_statement_certified_date": {},
	"purpose_for_leaving_other": {}, "relation_to_pv": {}, "exploitation_other_value": {},
	entity.RawFormNumber: {}, entity.RawPersonBox: {}, entity.RawInterviewDate: {}, colDestination: {},
	"full_name": {}, "Arrest_Date": {},
}

var numericFeatures = map[string]struct{}{
	"number_of_victims": {}, "number_of_traffickers": {}, "known_broker_years": {},
	"known_broker_months": {}, "married_broker_years": {}, "married_broker_months": {},
	"reported_blue_flags": {}, "total_blue_flags": {}, "suspected_trafficker_count": {},
}

var categoricalFeatures = map[string]struct{}{
	"education": {}, "station_id": {}, "role": {}, "pv_occupation": {}, "occupation": {},
}

var (
	gulfPattern  = regexp.MustCompile(`Gulf|Kuwait|Dubai|UAE|Oman|Saudi|Iraq|Qatar|Bahrain`)
	punctuation  = regexp.MustCompile(`[^\w\s]+`)
	destinations = []string{"Nepal", "India", "Delhi", "Gorakhpur", "Bihar", "Mumbai", "Sunauli", "Banaras", "Kolkata"}
)

// PrepareFeatures turns the joined interview and person box extract into
// one feature row per suspect. The first row per suspect id wins.
func PrepareFeatures(cifs *sheet.Table) []Row {
	if cifs == nil {
		return nil
	}
	var out []Row
	seen := make(map[string]struct{})
	for _, rec := range cifs.Rows {
		pb := identity.ParsePersonBox(rec.Get(entity.RawPersonBox))
		suspectID, err := identity.SuspectIDFromForm(rec.Get(entity.RawFormNumber), pb)
		if err != nil {
			continue
		}
		if _, ok := seen[suspectID]; ok {
			continue
		}
		seen[suspectID] = struct{}{}
		out = append(out, Row{SuspectID: suspectID, Features: features(cifs.Header, rec, pb)})
	}
	return out
}

func features(header []string, rec sheet.Record, pb int) map[string]float64 {
	f := make(map[string]float64, len(header))
	for _, col := range header {
		if skipColumn(col) {
			continue
		}
		v := strings.TrimSpace(rec.Get(col))
		switch {
		case has(numericFeatures, col):
			n, _ := sheet.Float(v)
			f[col] = n
		case has(categoricalFeatures, col):
			if v != "" {
				f[col+"_"+v] = 1
			}
		case strings.Contains(col, "_pb"):
			// Person box fields list the box numbers they apply to.
			f[col+"2"] = boolValue(strings.Contains(v, strconv.Itoa(pb)))
		default:
			f[col] = truthy(v)
		}
	}

	dest := punctuation.ReplaceAllString(rec.Get(colDestination), "")
	f["destination_gulf"] = boolValue(gulfPattern.MatchString(dest))
	f["destination_unknown"] = boolValue(strings.Contains(dest, "know"))
	for _, d := range destinations {
		f["destination_"+d] = boolValue(strings.Contains(dest, d))
	}
	return f
}

func skipColumn(col string) bool {
	if has(dropColumns, col) {
		return true
	}
	return strings.Contains(col, "contact") || strings.Contains(col, "_lb") || strings.Contains(col, "guardian")
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func truthy(v string) float64 {
	switch strings.ToLower(v) {
	case "", "0", "f", "false", "no", "none", "null":
		return 0
	}
	return 1
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
