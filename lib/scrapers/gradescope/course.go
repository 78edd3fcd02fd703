package gradescope

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"duesoon-backend/lib/domtree"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("scrapers/gradescope")

var (
	coursePathRegex     = regexp.MustCompile(`/courses/(\d+)`)
	assignmentPathRegex = regexp.MustCompile(`/assignments/(\d+)`)
	notAuthorizedRegex  = regexp.MustCompile(`(?i)not authorized to access`)
	dueLineRegex        = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b\s+\d{1,2}\s+(?:at\s+)?\d{1,2}:\d{2}\s*(AM|PM)\b`)
	submittedRegex      = regexp.MustCompile(`(?i)submitted`)
	noSubmissionRegex   = regexp.MustCompile(`(?i)no submission`)
)

// pickDueLine returns the first rendered line that looks like a
// month/day/time due date.
func pickDueLine(lines []string) string {
	for _, line := range lines {
		if dueLineRegex.MatchString(line) {
			return line
		}
	}
	return ""
}

func resolveUrl(pageUrl, ref string) string {
	base, err := url.Parse(pageUrl)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// courseNameSelectors is the prioritized heading probe; layouts vary
// across course page versions, first non-empty match wins.
var courseNameSelectors = []func(*domtree.Node) bool{
	domtree.ByTag("h1"),
	func(n *domtree.Node) bool { return n.HasClass("courseHeader--title") },
	func(n *domtree.Node) bool { return n.Attr("data-testid") == "course-header-title" },
	func(n *domtree.Node) bool { return n.HasClass("courseHeader") },
}

func courseNameFromPage(root *domtree.Node) string {
	for _, sel := range courseNameSelectors {
		if el := root.Find(sel); el != nil {
			if name := el.Text(); name != "" {
				return name
			}
		}
	}
	return ""
}

// ScrapeCourse extracts assignment candidates from one rendered course
// page. It tries the assignment table first and falls back to a page-wide
// link scan only when the table yields nothing.
func ScrapeCourse(ctx context.Context, root *domtree.Node, pageUrl string) ScrapeResult {
	_, span := tracer.Start(ctx, "ScrapeCourse")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	courseId := ""
	if m := coursePathRegex.FindStringSubmatch(pageUrl); m != nil {
		courseId = m[1]
	}
	courseName := courseNameFromPage(root)

	if notAuthorizedRegex.MatchString(root.Body().Text()) {
		span.AddEvent("not authorized")
		return ScrapeResult{
			CourseId:      courseId,
			CourseName:    courseName,
			Items:         []AssignmentCandidate{},
			NotAuthorized: true,
		}
	}

	items := scrapeTable(root, pageUrl, courseId, courseName)
	if len(items) == 0 {
		items = scrapeLinkScan(root, pageUrl, courseId, courseName)
	}

	span.SetAttributes(attribute.Int("items", len(items)))
	return ScrapeResult{
		CourseId:   courseId,
		CourseName: courseName,
		Items:      items,
	}
}

func rowCells(row *domtree.Node) []*domtree.Node {
	var tds []*domtree.Node
	for _, c := range row.Children {
		if c.Tag == "td" {
			tds = append(tds, c)
		}
	}
	return tds
}

// pickDueTime chooses the time element representing the actual due date
// among the (possibly many) timestamps in the due cell. Preference order
// matters: rows frequently carry "Late Due Date" and "Released" times
// whose shape is identical.
func pickDueTime(timeEls []*domtree.Node) *domtree.Node {
	for _, t := range timeEls {
		if strings.HasPrefix(strings.ToLower(t.Attr("aria-label")), "due at") {
			return t
		}
	}
	for _, t := range timeEls {
		aria := strings.ToLower(t.Attr("aria-label"))
		if strings.Contains(aria, "due") && !strings.Contains(aria, "late due") {
			return t
		}
	}
	for _, t := range timeEls {
		if t.HasClass("submissionTimeChart--dueDate") {
			return t
		}
	}
	return nil
}

func scrapeTable(root *domtree.Node, pageUrl, courseId, courseName string) []AssignmentCandidate {
	items := []AssignmentCandidate{}

	table := root.Find(func(n *domtree.Node) bool {
		return n.Attr("id") == "assignments-student-table"
	})
	if table == nil {
		table = root.Find(domtree.ByTag("table"))
	}
	scope := table
	if scope == nil {
		scope = root
	}

	rows := scope.FindAll(func(n *domtree.Node) bool {
		return n.Tag == "tr" && n.Parent != nil && n.Parent.Tag == "tbody"
	})
	for _, row := range rows {
		// newer layouts use a submit button as the primary control
		btn := row.Find(func(n *domtree.Node) bool {
			return n.Tag == "button" &&
				n.HasClass("js-submitAssignment") &&
				n.Attr("data-assignment-id") != ""
		})
		link := row.Find(func(n *domtree.Node) bool {
			return n.Tag == "a" && assignmentPathRegex.MatchString(n.Attr("href"))
		})
		if link == nil {
			link = row.Find(domtree.ByTag("a"))
		}

		assignmentId := btn.Attr("data-assignment-id")
		if assignmentId == "" && link != nil {
			if m := assignmentPathRegex.FindStringSubmatch(link.Attr("href")); m != nil {
				assignmentId = m[1]
			}
		}
		// a row without a resolvable identifier is not an assignment row
		if assignmentId == "" {
			continue
		}

		name := btn.Text()
		if name == "" {
			name = link.Text()
		}
		if name == "" {
			name = "(untitled)"
		}

		href := resolveUrl(pageUrl, "/courses/"+courseId+"/assignments/"+assignmentId)

		tds := rowCells(row)

		var statusText string
		if len(tds) > 0 {
			statusCell := tds[0]
			if el := statusCell.Find(func(n *domtree.Node) bool {
				return n.HasClass("submissionStatus--text")
			}); el != nil {
				statusText = el.Text()
			} else {
				statusText = statusCell.Text()
			}
		}
		submitted := submittedRegex.MatchString(statusText) && !noSubmissionRegex.MatchString(statusText)

		// the due date is confined to the LAST cell; time elements
		// elsewhere in the row ("Released", late deadlines) must never
		// be considered
		var dueText, dueStructured string
		if len(tds) > 0 {
			dueCell := tds[len(tds)-1]
			timeEls := dueCell.FindAll(func(n *domtree.Node) bool {
				return n.Tag == "time" && n.Attr("datetime") != ""
			})
			if dueTime := pickDueTime(timeEls); dueTime != nil {
				dueStructured = dueTime.Attr("datetime")
				dueText = dueTime.Text()
			} else {
				dueText = pickDueLine(dueCell.Lines())
			}
		}

		items = append(items, AssignmentCandidate{
			CourseId:      courseId,
			CourseName:    courseName,
			AssignmentId:  assignmentId,
			Name:          name,
			Href:          href,
			DueText:       dueText,
			DueStructured: dueStructured,
			Submitted:     submitted,
			StatusText:    statusText,
		})
	}
	return items
}

// scrapeLinkScan is the fallback for pages without a recognizable table:
// every assignment anchor is a candidate, deduplicated by identifier, and
// the due line is searched in the anchor's nearest structural container.
func scrapeLinkScan(root *domtree.Node, pageUrl, courseId, courseName string) []AssignmentCandidate {
	items := []AssignmentCandidate{}
	seen := map[string]bool{}

	anchors := root.FindAll(func(n *domtree.Node) bool {
		return n.Tag == "a" && assignmentPathRegex.MatchString(n.Attr("href"))
	})
	for _, a := range anchors {
		m := assignmentPathRegex.FindStringSubmatch(a.Attr("href"))
		assignmentId := m[1]
		if seen[assignmentId] {
			continue
		}
		seen[assignmentId] = true

		container := a.Closest(func(n *domtree.Node) bool {
			return n.Tag == "tr" || n.Tag == "li" || n.Tag == "div"
		})
		if container == nil {
			container = a.Parent
		}

		var dueText, dueStructured string
		if container != nil {
			dueText = pickDueLine(container.Lines())

			timeEls := container.FindAll(func(n *domtree.Node) bool {
				return n.Tag == "time" && n.Attr("datetime") != ""
			})
			dueTime := pickDueTime(timeEls)
			if dueTime == nil && len(timeEls) > 0 {
				// no table structure here, so a lone timestamp in the
				// container is the best available guess
				dueTime = timeEls[len(timeEls)-1]
			}
			if dueTime != nil {
				dueStructured = dueTime.Attr("datetime")
			}
		}

		name := a.Text()
		if name == "" {
			name = "(untitled)"
		}

		items = append(items, AssignmentCandidate{
			CourseId:      courseId,
			CourseName:    courseName,
			AssignmentId:  assignmentId,
			Name:          name,
			Href:          resolveUrl(pageUrl, a.Attr("href")),
			DueText:       dueText,
			DueStructured: dueStructured,
		})
	}
	return items
}
