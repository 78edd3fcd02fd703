package tracker

import (
	"sort"
	"time"
)

type Badge string

const (
	BadgeSubmitted Badge = "submitted"
	BadgeOverdue   Badge = "overdue"
	BadgeSoon      Badge = "soon"
	BadgeUpcoming  Badge = "upcoming"
)

const soonThreshold = 48 * time.Hour

// fallbackCount caps the "nothing due inside the window" consolation
// list.
const fallbackCount = 10

type UpcomingItem struct {
	Assignment
	Badge Badge `json:"badge"`
}

func classify(a Assignment, now time.Time) Badge {
	switch {
	case a.Submitted:
		return BadgeSubmitted
	case a.DueAt.Before(now):
		return BadgeOverdue
	case a.DueAt.Sub(now) < soonThreshold:
		return BadgeSoon
	default:
		return BadgeUpcoming
	}
}

// BuildUpcoming evaluates the due-soon view: dated assignments filtered
// by the settings (term, submitted, past), sorted by due date, cut off
// at the window. When the window is empty the next few upcoming items
// are shown instead so the view is never blank while work exists.
func BuildUpcoming(snapshot Snapshot, now time.Time) []UpcomingItem {
	settings := snapshot.Settings

	var dated []Assignment
	for _, a := range snapshot.Assignments {
		if a.DueAt == nil {
			continue
		}
		if a.Submitted && !settings.ShowSubmitted {
			continue
		}
		if a.DueAt.Before(now) && !settings.ShowPast {
			continue
		}
		if settings.TermFilter != "" && settings.TermFilter != TermAll {
			// an active filter shows exactly that term; assignments whose
			// course term is unknown fall out until the next discovery
			if snapshot.Courses[a.CourseId].Term != settings.TermFilter {
				continue
			}
		}
		dated = append(dated, a)
	}

	sort.Slice(dated, func(i, j int) bool {
		if !dated[i].DueAt.Equal(*dated[j].DueAt) {
			return dated[i].DueAt.Before(*dated[j].DueAt)
		}
		return dated[i].Key < dated[j].Key
	})

	cutoff := now.Add(time.Duration(settings.WindowDays) * 24 * time.Hour)
	inWindow := []UpcomingItem{}
	for _, a := range dated {
		if a.DueAt.After(cutoff) {
			break
		}
		inWindow = append(inWindow, UpcomingItem{Assignment: a, Badge: classify(a, now)})
	}
	if len(inWindow) > 0 {
		return inWindow
	}

	// nothing inside the window: fall back to the next upcoming items
	fallback := []UpcomingItem{}
	for _, a := range dated {
		if a.DueAt.Before(now) {
			continue
		}
		fallback = append(fallback, UpcomingItem{Assignment: a, Badge: classify(a, now)})
		if len(fallback) == fallbackCount {
			break
		}
	}
	return fallback
}
