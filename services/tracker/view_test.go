package tracker

import (
	"fmt"
	"testing"
	"time"

	"duesoon-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func at(t time.Time) *time.Time { return &t }

func TestBuildUpcomingWindowAndBadges(t *testing.T) {
	now := time.Date(2026, time.January, 20, 12, 0, 0, 0, timezone.Location)

	snapshot := Snapshot{
		Settings: Settings{WindowDays: 14, TermFilter: TermAll, ShowPast: true},
		Assignments: map[string]Assignment{
			"101|1": {Key: "101|1", CourseId: "101", Name: "overdue essay", DueAt: at(now.Add(-24 * time.Hour))},
			"101|2": {Key: "101|2", CourseId: "101", Name: "due tonight", DueAt: at(now.Add(10 * time.Hour))},
			"101|3": {Key: "101|3", CourseId: "101", Name: "due next week", DueAt: at(now.Add(7 * 24 * time.Hour))},
			"101|4": {Key: "101|4", CourseId: "101", Name: "far future", DueAt: at(now.Add(30 * 24 * time.Hour))},
			"101|5": {Key: "101|5", CourseId: "101", Name: "no due date"},
		},
	}

	items := BuildUpcoming(snapshot, now)
	require.Len(t, items, 3)
	require.Equal(t, "overdue essay", items[0].Name)
	require.Equal(t, BadgeOverdue, items[0].Badge)
	require.Equal(t, "due tonight", items[1].Name)
	require.Equal(t, BadgeSoon, items[1].Badge)
	require.Equal(t, "due next week", items[2].Name)
	require.Equal(t, BadgeUpcoming, items[2].Badge)
}

func TestBuildUpcomingHidesPastAndSubmittedByDefault(t *testing.T) {
	now := time.Date(2026, time.January, 20, 12, 0, 0, 0, timezone.Location)

	snapshot := Snapshot{
		Settings: DefaultSettings(),
		Assignments: map[string]Assignment{
			"101|1": {Key: "101|1", Name: "already past", DueAt: at(now.Add(-time.Hour))},
			"101|2": {Key: "101|2", Name: "already submitted", Submitted: true, DueAt: at(now.Add(time.Hour))},
			"101|3": {Key: "101|3", Name: "still open", DueAt: at(now.Add(time.Hour))},
		},
	}

	items := BuildUpcoming(snapshot, now)
	require.Len(t, items, 1)
	require.Equal(t, "still open", items[0].Name)

	snapshot.Settings.ShowPast = true
	snapshot.Settings.ShowSubmitted = true
	items = BuildUpcoming(snapshot, now)
	require.Len(t, items, 3)
	require.Equal(t, BadgeOverdue, items[0].Badge)
	require.Equal(t, BadgeSubmitted, items[1].Badge)
}

func TestBuildUpcomingTermFilter(t *testing.T) {
	now := time.Date(2026, time.January, 20, 12, 0, 0, 0, timezone.Location)

	snapshot := Snapshot{
		Settings: Settings{WindowDays: 14, TermFilter: "Spring 2026"},
		Courses: map[string]Course{
			"101": {Id: "101", Term: "Spring 2026"},
			"102": {Id: "102", Term: "Fall 2025"},
			"103": {Id: "103"},
		},
		Assignments: map[string]Assignment{
			"101|1": {Key: "101|1", CourseId: "101", Name: "current term", DueAt: at(now.Add(time.Hour))},
			"102|1": {Key: "102|1", CourseId: "102", Name: "old term", DueAt: at(now.Add(time.Hour))},
			"103|1": {Key: "103|1", CourseId: "103", Name: "term unknown", DueAt: at(now.Add(2 * time.Hour))},
			"999|1": {Key: "999|1", CourseId: "999", Name: "course unknown", DueAt: at(now.Add(3 * time.Hour))},
		},
	}

	// only the filtered term shows; unknown terms and unknown courses
	// are hidden along with the other terms
	items := BuildUpcoming(snapshot, now)
	require.Len(t, items, 1)
	require.Equal(t, "current term", items[0].Name)

	snapshot.Settings.TermFilter = TermAll
	items = BuildUpcoming(snapshot, now)
	require.Len(t, items, 4)
}

func TestBuildUpcomingFallbackWhenWindowEmpty(t *testing.T) {
	now := time.Date(2026, time.January, 20, 12, 0, 0, 0, timezone.Location)

	assignments := map[string]Assignment{}
	for i := 0; i < 15; i++ {
		key := fmt.Sprintf("101|%d", i)
		assignments[key] = Assignment{
			Key:   key,
			Name:  fmt.Sprintf("assignment %d", i),
			DueAt: at(now.Add(time.Duration(30+i) * 24 * time.Hour)),
		}
	}
	snapshot := Snapshot{
		Settings:    DefaultSettings(),
		Assignments: assignments,
	}

	items := BuildUpcoming(snapshot, now)
	require.Len(t, items, fallbackCount)
	require.Equal(t, "assignment 0", items[0].Name)
	require.Equal(t, BadgeUpcoming, items[0].Badge)
}

func TestBuildUpcomingEmpty(t *testing.T) {
	items := BuildUpcoming(Snapshot{Settings: DefaultSettings()}, timezone.Now())
	require.Empty(t, items)
}
