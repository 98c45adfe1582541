package common

// AccountType classifies an account by the kind of contact it represents.
type AccountType int64

const (
	AccountFacebook AccountType = 1
	AccountPhone    AccountType = 2
)

func (t AccountType) String() string {
	switch t {
	case AccountFacebook:
		return "Facebook"
	case AccountPhone:
		return "Phone"
	}
	return "Unknown"
}

// Edge directions as entered on the relationship sheets.
const (
	DirectionBoth    = 1
	DirectionForward = 2
	DirectionReverse = 3
)

// Suspect is a node of the association graph. Several suspects may share
// a name; each one belongs to exactly one suspect case id.
type Suspect struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	LinkStats
}

// LinkStats are the derived degree counts stored on a suspect.
type LinkStats struct {
	FirstDegreeLinks      int `json:"first_degree_links"`
	SecondDegreeLinks     int `json:"second_degree_links"`
	FirstDegreeCaseLinks  int `json:"first_degree_case_links"`
	SecondDegreeCaseLinks int `json:"second_degree_case_links"`
}

// Account is a phone number or social media handle. Target accounts of
// third parties have no owning suspect.
type Account struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Label     string      `json:"label"`
	Type      AccountType `json:"type"`
	SuspectID *int64      `json:"suspect_id,omitempty"`
}

// EdgeType is a weighted relationship category.
type EdgeType struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// DefaultEdgeTypes are seeded into every new graph database.
var DefaultEdgeTypes = []EdgeType{
	{ID: 1, Name: "Facebook Friend", Weight: 3},
	{ID: 2, Name: "Facebook Like", Weight: 2},
	{ID: 3, Name: "Phone Contact", Weight: 5},
	{ID: 4, Name: "Phone Call", Weight: 4},
	{ID: 5, Name: "SMS", Weight: 4},
}

// Edge connects two accounts. Ids that could not be resolved stay nil.
type Edge struct {
	ID              int64  `json:"id"`
	SourceSuspectID *int64 `json:"source_suspect_id,omitempty"`
	SourceAccountID *int64 `json:"source_account_id,omitempty"`
	TargetAccountID *int64 `json:"target_account_id,omitempty"`
	EdgeTypeID      *int64 `json:"edge_type_id,omitempty"`
	Direction       int    `json:"edge_direction"`
	ComboID         string `json:"edge_combo_id"`
}

// Case is one investigative case number in the graph.
type Case struct {
	ID     int64  `json:"id"`
	Number string `json:"case_number"`
}

// CaseSuspect links a graph suspect to a case under its external suspect id.
type CaseSuspect struct {
	ID            int64  `json:"id"`
	CaseID        int64  `json:"case_id"`
	SuspectID     int64  `json:"suspect_id"`
	SuspectCaseID string `json:"suspect_case_id"`
}

// LinkRow is one row of a suspect's relationship sheet.
type LinkRow struct {
	Name             string `json:"name" validate:"required"`
	Source           string `json:"source" validate:"required"`
	Target           string `json:"target" validate:"required"`
	TargetLabel      string `json:"target_label"`
	RelationshipType string `json:"relationship_type"`
	Direction        int    `json:"edge_direction" validate:"min=1,max=3"`
	CaseID           string `json:"case_id" validate:"required"`
	SuspectCaseID    string `json:"suspect_case_id" validate:"required"`
}

// Graph is a full read of the association graph.
type Graph struct {
	Suspects     []Suspect     `json:"suspects"`
	Accounts     []Account     `json:"accounts"`
	Edges        []Edge        `json:"edges"`
	Cases        []Case        `json:"cases"`
	CaseSuspects []CaseSuspect `json:"case_suspects"`
}
