package lookup

// Result represents the metadata record the catalog lookup service returns
// for a scanned code. A Result is owned by the lookup that produced it: it is
// superseded wholesale by the next lookup, or replaced by a reconciler merge,
// never partially mutated.
type Result struct {
	OK          bool        `json:"ok"`
	ISBN        string      `json:"isbn,omitempty"`
	Code        string      `json:"code,omitempty"`
	Title       string      `json:"title,omitempty"`
	Authors     []string    `json:"authors"`
	Description string      `json:"description,omitempty"`
	CoverURL    string      `json:"cover_url,omitempty"`
	CoverURLs   []string    `json:"cover_urls"`
	Candidates  []Candidate `json:"candidates"`
}

// Candidate is an alternative metadata match offered alongside the primary
// guess. Match flags the candidate the service itself believed was correct;
// it is advisory only and the user may pick any candidate.
type Candidate struct {
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Source      string   `json:"source,omitempty"`
	Match       bool     `json:"match"`
}

// Clone returns a deep copy so a merge never aliases the original's slices.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Authors = append([]string(nil), r.Authors...)
	out.CoverURLs = append([]string(nil), r.CoverURLs...)
	out.Candidates = append([]Candidate(nil), r.Candidates...)
	return &out
}
