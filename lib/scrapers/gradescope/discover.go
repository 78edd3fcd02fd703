package gradescope

import (
	"context"
	"regexp"
	"strings"

	"duesoon-backend/lib/domtree"
	"duesoon-backend/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
)

var termRegex = regexp.MustCompile(`(?i)\b(Spring|Summer|Fall|Winter)\s+20\d{2}\b`)

const (
	// anchors smaller than a course card share the /courses/ href
	// pattern but are navigation links
	minCardWidth  = 200.0
	minCardHeight = 60.0

	maxCourseNameLen = 120

	// bounds for the upward/backward term label walk
	termWalkDepth    = 6
	termWalkSiblings = 8
)

var courseHeadingTags = map[string]bool{"h3": true, "h2": true, "h1": true, "strong": true}

// DiscoverCourses enumerates the course cards visible on a rendered
// dashboard. Duplicated cards collapse to one entry (last occurrence
// wins) while keeping first-seen document order, which downstream term
// defaulting depends on.
func DiscoverCourses(ctx context.Context, root *domtree.Node, pageUrl string) []DiscoveredCourse {
	_, span := tracer.Start(ctx, "DiscoverCourses")
	defer span.End()

	var order []string
	byId := map[string]int{}
	out := []DiscoveredCourse{}

	anchors := root.FindAll(func(n *domtree.Node) bool {
		href := n.Attr("href")
		return n.Tag == "a" && strings.HasPrefix(href, "/courses/") && coursePathRegex.MatchString(href)
	})
	for _, a := range anchors {
		m := coursePathRegex.FindStringSubmatch(a.Attr("href"))
		id := m[1]

		// geometry is only known for browser-rendered trees; a zero rect
		// means "layout unknown" and the card filter cannot apply
		if !a.Rect.Zero() && (a.Rect.Width <= minCardWidth || a.Rect.Height <= minCardHeight) {
			continue
		}

		name := ""
		if title := a.Find(func(n *domtree.Node) bool { return courseHeadingTags[n.Tag] }); title != nil {
			name = title.Text()
		}
		if name == "" {
			name = a.Text()
		}
		name = textutil.Truncate(name, maxCourseNameLen)
		if name == "" {
			name = "Course " + id
		}

		course := DiscoveredCourse{
			Id:   id,
			Name: name,
			Url:  resolveUrl(pageUrl, a.Attr("href")),
			Term: findTermNear(a, root),
		}

		if idx, exists := byId[id]; exists {
			out[idx] = course
			continue
		}
		byId[id] = len(out)
		out = append(out, course)
		order = append(order, id)
	}

	span.SetAttributes(
		attribute.Int("courses", len(out)),
		attribute.StringSlice("ids", order),
	)
	return out
}

// findTermNear looks for a season+year label near a course anchor: first
// a bounded walk over preceding siblings at increasing ancestor depth,
// then a whole-page scan for small labelled nodes, picking the closest
// one at or above the anchor's vertical offset.
func findTermNear(el, root *domtree.Node) string {
	cur := el
	for depth := 0; depth < termWalkDepth && cur != nil; depth++ {
		sib := cur.PrevSibling()
		for steps := 0; sib != nil && steps < termWalkSiblings; steps++ {
			if m := termRegex.FindString(sib.Text()); m != "" {
				return m
			}
			sib = sib.PrevSibling()
		}
		cur = cur.Parent
	}

	// geometric fallback needs layout info
	if el.Rect.Zero() {
		return ""
	}

	candidates := root.FindAll(func(n *domtree.Node) bool {
		return !n.Rect.Zero() &&
			n.ElementChildren() <= 2 &&
			termRegex.MatchString(n.Text())
	})
	y := el.Rect.Y
	best := ""
	for _, c := range candidates {
		if c.Rect.Y <= y+5 {
			best = termRegex.FindString(c.Text())
		}
	}
	return best
}

// TermsInOrder lists the distinct term labels among discovered courses in
// first-seen order. The first entry is treated as the current term.
func TermsInOrder(courses []DiscoveredCourse) []string {
	var terms []string
	seen := map[string]bool{}
	for _, c := range courses {
		if c.Term == "" || seen[c.Term] {
			continue
		}
		seen[c.Term] = true
		terms = append(terms, c.Term)
	}
	return terms
}
