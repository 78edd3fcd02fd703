package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"duesoon-backend/lib/domtree"
	"duesoon-backend/lib/renderer"
	"duesoon-backend/lib/scrapers/gradescope"

	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	pages  map[string]string
	opened []string
}

type fakePage struct {
	url  string
	root *domtree.Node
}

func (p fakePage) URL() string         { return p.url }
func (p fakePage) Root() *domtree.Node { return p.root }
func (p fakePage) Close() error        { return nil }

func (r *fakeRenderer) Render(ctx context.Context, url string) (renderer.Page, error) {
	r.opened = append(r.opened, url)
	html, ok := r.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	root, err := domtree.ParseString(html)
	if err != nil {
		return nil, err
	}
	return fakePage{url: url, root: root}, nil
}

const fakeDashboard = `
<html><body>
<h2>Fall 2025</h2>
<a href="/courses/101"><h3>Algorithms</h3></a>
<a href="/courses/102"><h3>Databases</h3></a>
<a href="/courses/103"><h3>Compilers</h3></a>
</body></html>`

const fakeCourse101 = `
<html><body>
<h1>Algorithms</h1>
<table><tbody>
  <tr>
    <td>
      <div class="submissionStatus--text">No Submission</div>
      <button class="js-submitAssignment" data-assignment-id="7">Homework 1</button>
    </td>
    <td><time datetime="2026-01-27 23:59:00 -0500" aria-label="Due at Jan 27 at 11:59PM">Jan 27 at 11:59PM</time></td>
  </tr>
</tbody></table>
</body></html>`

const fakeCourse102 = `
<html><body>
<h1>Databases</h1>
<p>You are not authorized to access this page.</p>
</body></html>`

func setupService(t *testing.T) (*Service, *fakeRenderer) {
	store := setupStore(t)
	fake := &fakeRenderer{pages: map[string]string{
		"https://www.gradescope.com/":            fakeDashboard,
		"https://www.gradescope.com/courses/101": fakeCourse101,
		"https://www.gradescope.com/courses/102": fakeCourse102,
		// course 103 intentionally unrenderable
	}}
	svc := NewService(store, fake, Options{
		BaseUrl:   "https://www.gradescope.com/",
		RateLimit: time.Millisecond,
	})
	return svc, fake
}

func TestRefreshAll(t *testing.T) {
	svc, fake := setupService(t)
	ctx := context.Background()

	summary, err := svc.RefreshAll(ctx)
	require.NoError(t, err)

	require.Equal(t, []string{"101", "102", "103"}, summary.DiscoveredCourseIds)
	require.Equal(t, []string{"Fall 2025"}, summary.DiscoveredTerms)
	require.False(t, summary.LastRefreshAt.IsZero())
	require.Len(t, summary.Results, 3)

	algo := summary.Results[0]
	require.Equal(t, "101", algo.Id)
	require.Equal(t, 1, algo.ItemsFound)
	require.Equal(t, 1, algo.ParsedDue)
	require.Empty(t, algo.Err)

	denied := summary.Results[1]
	require.True(t, denied.NotAuthorized)
	require.Empty(t, denied.Err)

	// a dead course page is isolated to its own outcome
	failed := summary.Results[2]
	require.Equal(t, "103", failed.Id)
	require.NotEmpty(t, failed.Err)

	require.Equal(t, []string{
		"https://www.gradescope.com/",
		"https://www.gradescope.com/courses/101",
		"https://www.gradescope.com/courses/102",
		"https://www.gradescope.com/courses/103",
	}, fake.opened)

	snapshot, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, AccessOk, snapshot.Courses["101"].Access)
	require.Equal(t, AccessDenied, snapshot.Courses["102"].Access)
	require.Equal(t, AccessUnknown, snapshot.Courses["103"].Access)
	require.Contains(t, snapshot.Assignments, "101|7")
	// term filter snapped to the first discovered term
	require.Equal(t, "Fall 2025", snapshot.Settings.TermFilter)
	// the persisted summary matches what the call returned
	require.NotNil(t, snapshot.Summary)
	require.Equal(t, summary.LastRefreshAt.Unix(), snapshot.Summary.LastRefreshAt.Unix())
}

func TestRefreshAllKeepsExplicitTermFilter(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Store().SetTermFilter(ctx, "Spring 2025"))

	_, err := svc.RefreshAll(ctx)
	require.NoError(t, err)

	settings, err := svc.Settings(ctx)
	require.NoError(t, err)
	require.Equal(t, "Spring 2025", settings.TermFilter)
}

func TestRefreshAllSingleFlight(t *testing.T) {
	svc, _ := setupService(t)

	svc.refreshing.Lock()
	defer svc.refreshing.Unlock()

	_, err := svc.RefreshAll(context.Background())
	require.ErrorIs(t, err, ErrRefreshInFlight)
}

func TestApplyScrapeResult(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	root, err := domtree.ParseString(fakeCourse101)
	require.NoError(t, err)
	res := gradescope.ScrapeCourse(ctx, root, "https://www.gradescope.com/courses/101")

	require.NoError(t, svc.ApplyScrapeResult(ctx, res))

	snapshot, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Contains(t, snapshot.Assignments, "101|7")
}

func TestClearAll(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.ClearAll(ctx))

	snapshot, err := svc.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot.Courses)
	require.Empty(t, snapshot.Assignments)
}
