package model

// CutoffRecord is one historical fact parsed from an admission cutoff table.
// Immutable once ingested.
type CutoffRecord struct {
	Year        int    `json:"year"`
	CollegeCode string `json:"collegeCode"`
	CollegeName string `json:"collegeName,omitempty"`
	Branch      string `json:"branch"`
	Category    string `json:"category"`
	Rank        int    `json:"rank"`
}

// GroupKey identifies the (college, branch, category) series a record belongs to.
func (r CutoffRecord) GroupKey() string {
	return r.CollegeCode + "|" + r.Branch + "|" + r.Category
}
