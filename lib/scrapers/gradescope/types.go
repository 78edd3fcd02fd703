package gradescope

// AssignmentCandidate is one row-level extraction result. It is raw scrape
// output: due fields are untouched page text/attributes, normalization
// happens at merge time.
type AssignmentCandidate struct {
	CourseId   string `json:"courseId"`
	CourseName string `json:"courseName"`
	// AssignmentId may be empty when only a href identified the row.
	AssignmentId string `json:"assignmentId"`
	Name         string `json:"name"`
	Href         string `json:"href"`
	// DueText is the human-readable due line, e.g. "Jan 27 at 11:59PM".
	DueText string `json:"dueText"`
	// DueStructured is the raw datetime attribute of the chosen time
	// element, e.g. "2026-01-27 23:59:00 -0500".
	DueStructured string `json:"dueStructured"`
	Submitted     bool   `json:"submitted"`
	StatusText    string `json:"statusText"`
}

// ScrapeResult is the outcome of one extraction pass over one course page.
// It is transient: produced once, consumed exactly once by the merge step.
type ScrapeResult struct {
	CourseId   string                `json:"courseId"`
	CourseName string                `json:"courseName"`
	Items      []AssignmentCandidate `json:"items"`
	// NotAuthorized marks a reachable page the session may not view.
	NotAuthorized bool `json:"notAuthorized"`
}

// DiscoveredCourse is one dashboard card. Term is empty when no label
// could be inferred from the surrounding layout.
type DiscoveredCourse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Url  string `json:"url"`
	Term string `json:"term"`
}
