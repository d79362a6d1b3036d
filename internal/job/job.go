package job

// Requirement priorities as emitted by the requirement extraction stage.
const (
	PriorityMust       = "must"
	PriorityPreferred  = "preferred"
	PriorityNiceToHave = "nice_to_have"
)

// CategoryRole marks the synthesized fallback requirement built from a job
// title when the extraction stage could not obtain a usable model response.
const CategoryRole = "role"

// Posting is a single job posting extracted from an alert email. The
// canonical Link is its identity: two postings are the same posting iff
// their canonical links are equal.
type Posting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`

	// Filled in by the matching stages.
	Requirements []Requirement     `json:"requirements,omitempty"`
	Score        int               `json:"score"`
	Summary      string            `json:"summary,omitempty"`
	Report       *EvaluationReport `json:"report,omitempty"`
}

// Requirement is one structured requirement extracted from a posting.
type Requirement struct {
	Category string `json:"category"`
	Item     string `json:"item"`
	Level    string `json:"level,omitempty"`
	Priority string `json:"priority"`
}

// Evidence links a requirement to a citation in the candidate profile.
// Gap and Reason are used by partial matches and gaps respectively.
type Evidence struct {
	Requirement string `json:"requirement"`
	Evidence    string `json:"evidence,omitempty"`
	Gap         string `json:"gap,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// EvaluationReport is the structured stage-B evaluation of a posting
// against the candidate profile. MatchScore is always within [0, 1].
type EvaluationReport struct {
	MatchScore     float64    `json:"match_score"`
	StrongMatches  []Evidence `json:"strong_matches"`
	PartialMatches []Evidence `json:"partial_matches"`
	Gaps           []Evidence `json:"gaps"`
	Suggestions    []string   `json:"cv_suggestions"`
}

// Links returns the canonical links of the given postings, in order.
func Links(postings []*Posting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.Link)
	}
	return out
}

// Titles returns the titles of the given postings, in order.
func Titles(postings []*Posting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.Title)
	}
	return out
}
