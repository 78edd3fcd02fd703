package gradescope

import (
	"context"
	"testing"

	"duesoon-backend/lib/domtree"

	"github.com/stretchr/testify/require"
)

// dashboardJSON mimics the serialized tree a browser render produces:
// course cards with real bounding boxes, term headers between card rows,
// and a small sidebar link that repeats a course href.
const dashboardJSON = `{
  "tag": "body", "rect": {"x": 0, "y": 0, "width": 1280, "height": 900},
  "children": [
    {"tag": "nav", "rect": {"x": 0, "y": 0, "width": 1280, "height": 40},
     "children": [
       {"tag": "a", "attrs": {"href": "/courses/101"},
        "rect": {"x": 10, "y": 10, "width": 150, "height": 20},
        "children": [{"text": "Algorithms"}]}
     ]},
    {"tag": "h2", "rect": {"x": 20, "y": 100, "width": 300, "height": 24},
     "children": [{"text": "Fall 2025"}]},
    {"tag": "a", "attrs": {"href": "/courses/101"},
     "rect": {"x": 20, "y": 130, "width": 320, "height": 96},
     "children": [
       {"tag": "h3", "rect": {"x": 30, "y": 140, "width": 200, "height": 20},
        "children": [{"text": "Algorithms"}]}
     ]},
    {"tag": "a", "attrs": {"href": "/courses/102"},
     "rect": {"x": 360, "y": 130, "width": 320, "height": 96},
     "children": [
       {"tag": "h3", "rect": {"x": 370, "y": 140, "width": 200, "height": 20},
        "children": [{"text": "Databases"}]}
     ]},
    {"tag": "h2", "rect": {"x": 20, "y": 400, "width": 300, "height": 24},
     "children": [{"text": "Spring 2025"}]},
    {"tag": "a", "attrs": {"href": "/courses/103"},
     "rect": {"x": 20, "y": 430, "width": 320, "height": 96},
     "children": [
       {"tag": "h3", "rect": {"x": 30, "y": 440, "width": 200, "height": 20},
        "children": [{"text": "Compilers"}]}
     ]}
  ]
}`

func TestDiscoverCoursesFromRenderedDashboard(t *testing.T) {
	root, err := domtree.DecodeJSON([]byte(dashboardJSON))
	require.NoError(t, err)

	courses := DiscoverCourses(context.Background(), root, "https://www.gradescope.com/")
	require.Len(t, courses, 3)

	require.Equal(t, DiscoveredCourse{
		Id:   "101",
		Name: "Algorithms",
		Url:  "https://www.gradescope.com/courses/101",
		Term: "Fall 2025",
	}, courses[0])
	require.Equal(t, "102", courses[1].Id)
	require.Equal(t, "Fall 2025", courses[1].Term)
	require.Equal(t, "103", courses[2].Id)
	require.Equal(t, "Spring 2025", courses[2].Term)

	require.Equal(t, []string{"Fall 2025", "Spring 2025"}, TermsInOrder(courses))
}

func TestDiscoverCoursesGeometricTermFallback(t *testing.T) {
	// the term label appears after the card in document order, so the
	// sibling walk misses it; the page scan finds it by position
	fixture := `{
  "tag": "body", "rect": {"x": 0, "y": 0, "width": 1280, "height": 900},
  "children": [
    {"tag": "div", "rect": {"x": 20, "y": 130, "width": 340, "height": 100},
     "children": [
       {"tag": "a", "attrs": {"href": "/courses/201"},
        "rect": {"x": 20, "y": 130, "width": 320, "height": 96},
        "children": [
          {"tag": "h3", "rect": {"x": 30, "y": 140, "width": 200, "height": 20},
           "children": [{"text": "Networks"}]}
        ]}
     ]},
    {"tag": "span", "rect": {"x": 20, "y": 100, "width": 120, "height": 20},
     "children": [{"text": "Winter 2026"}]}
  ]
}`
	root, err := domtree.DecodeJSON([]byte(fixture))
	require.NoError(t, err)

	courses := DiscoverCourses(context.Background(), root, "https://www.gradescope.com/")
	require.Len(t, courses, 1)
	require.Equal(t, "Winter 2026", courses[0].Term)
}

func TestDiscoverCoursesStaticTree(t *testing.T) {
	// statically fetched pages carry no geometry: every course anchor
	// passes the card filter, and duplicate ids collapse last-wins while
	// keeping first-seen order
	page := `
<html><body>
<h2>Fall 2025</h2>
<a href="/courses/301"><h3>Ethics</h3></a>
<a href="/courses/302">Linear Algebra</a>
<a href="/courses/302"><h3>Linear Algebra II</h3></a>
<a href="/courses/303"></a>
</body></html>`
	root, err := domtree.ParseString(page)
	require.NoError(t, err)

	courses := DiscoverCourses(context.Background(), root, "https://www.gradescope.com/")
	require.Len(t, courses, 3)
	require.Equal(t, "301", courses[0].Id)
	require.Equal(t, "Ethics", courses[0].Name)
	require.Equal(t, "302", courses[1].Id)
	require.Equal(t, "Linear Algebra II", courses[1].Name)
	require.Equal(t, "Course 303", courses[2].Name)
	require.Equal(t, "Fall 2025", courses[0].Term)
}

func TestTermsInOrder(t *testing.T) {
	terms := TermsInOrder([]DiscoveredCourse{
		{Id: "1", Term: "Fall 2025"},
		{Id: "2", Term: ""},
		{Id: "3", Term: "Fall 2025"},
		{Id: "4", Term: "Spring 2025"},
	})
	require.Equal(t, []string{"Fall 2025", "Spring 2025"}, terms)
}
