package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duesoon-backend/lib/kvstore"
	"duesoon-backend/lib/scrapers/gradescope"
	"duesoon-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/tracker")

const (
	keyAssignments = "gs_assignments"
	keyCourses     = "gs_courses"
	keySettings    = "gs_settings"
	keySummary     = "gs_debug"
)

const (
	AccessUnknown = ""
	AccessOk      = "ok"
	AccessDenied  = "denied"
)

// TermAll is the term filter sentinel meaning "no filtering".
const TermAll = "ALL"

type Course struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Url      string    `json:"url,omitempty"`
	Term     string    `json:"term,omitempty"`
	Access   string    `json:"access,omitempty"`
	LastSeen time.Time `json:"last_seen"`
}

type Assignment struct {
	Key          string     `json:"key"`
	CourseId     string     `json:"course_id"`
	CourseName   string     `json:"course_name"`
	AssignmentId string     `json:"assignment_id,omitempty"`
	Name         string     `json:"name"`
	Url          string     `json:"url,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	DueText      string     `json:"due_text,omitempty"`
	Submitted    bool       `json:"submitted"`
	LastUpdated  time.Time  `json:"last_updated"`
}

type Settings struct {
	WindowDays    int    `json:"window_days"`
	TermFilter    string `json:"term_filter"`
	ShowPast      bool   `json:"show_past"`
	ShowSubmitted bool   `json:"show_submitted"`
}

func DefaultSettings() Settings {
	return Settings{
		WindowDays: 14,
		TermFilter: TermAll,
	}
}

// SettingsPatch is a partial settings update; nil fields keep the
// current value.
type SettingsPatch struct {
	WindowDays    *int    `json:"window_days,omitempty"`
	TermFilter    *string `json:"term_filter,omitempty"`
	ShowPast      *bool   `json:"show_past,omitempty"`
	ShowSubmitted *bool   `json:"show_submitted,omitempty"`
}

type CourseOutcome struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Term          string `json:"term,omitempty"`
	Url           string `json:"url,omitempty"`
	NotAuthorized bool   `json:"not_authorized,omitempty"`
	ItemsFound    int    `json:"items_found"`
	ParsedDue     int    `json:"parsed_due"`
	Err           string `json:"err,omitempty"`
}

// RefreshSummary describes the most recent refresh run. Each run
// overwrites the previous summary wholesale.
type RefreshSummary struct {
	LastRefreshAt       time.Time       `json:"last_refresh_at"`
	OpenedUrls          []string        `json:"opened_urls,omitempty"`
	DiscoveredCourseIds []string        `json:"discovered_course_ids,omitempty"`
	DiscoveredTerms     []string        `json:"discovered_terms,omitempty"`
	Results             []CourseOutcome `json:"results,omitempty"`
	Notes               string          `json:"notes,omitempty"`
}

type Snapshot struct {
	Courses     map[string]Course     `json:"courses"`
	Assignments map[string]Assignment `json:"assignments"`
	Settings    Settings              `json:"settings"`
	Summary     *RefreshSummary       `json:"summary,omitempty"`
	// BytesInUse is the durable store's on-disk footprint, surfaced as a
	// diagnostic alongside the data itself.
	BytesInUse int64 `json:"bytes_in_use"`
}

// Store persists the reconciled course/assignment state in a durable
// keyed store. Each collection is written wholesale under a fixed key.
type Store struct {
	kv *kvstore.Store
}

func NewStore(kv *kvstore.Store) Store {
	return Store{kv: kv}
}

func (s Store) Courses(ctx context.Context) (map[string]Course, error) {
	courses := map[string]Course{}
	err := s.kv.Get(ctx, keyCourses, &courses)
	if err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("read courses: %w", err)
	}
	return courses, nil
}

func (s Store) Assignments(ctx context.Context) (map[string]Assignment, error) {
	assignments := map[string]Assignment{}
	err := s.kv.Get(ctx, keyAssignments, &assignments)
	if err != nil && !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, fmt.Errorf("read assignments: %w", err)
	}
	return assignments, nil
}

func (s Store) Settings(ctx context.Context) (Settings, error) {
	settings := DefaultSettings()
	var stored Settings
	err := s.kv.Get(ctx, keySettings, &stored)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings: %w", err)
	}
	if stored.WindowDays > 0 {
		settings.WindowDays = stored.WindowDays
	}
	if stored.TermFilter != "" {
		settings.TermFilter = stored.TermFilter
	}
	settings.ShowPast = stored.ShowPast
	settings.ShowSubmitted = stored.ShowSubmitted
	return settings, nil
}

func (s Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	ctx, span := tracer.Start(ctx, "store.UpdateSettings")
	defer span.End()

	settings, err := s.Settings(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Settings{}, err
	}
	if patch.WindowDays != nil {
		settings.WindowDays = *patch.WindowDays
	}
	if patch.TermFilter != nil {
		settings.TermFilter = *patch.TermFilter
	}
	if patch.ShowPast != nil {
		settings.ShowPast = *patch.ShowPast
	}
	if patch.ShowSubmitted != nil {
		settings.ShowSubmitted = *patch.ShowSubmitted
	}
	if err := s.kv.Set(ctx, keySettings, settings); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Settings{}, fmt.Errorf("write settings: %w", err)
	}
	return settings, nil
}

func (s Store) SetTermFilter(ctx context.Context, term string) error {
	_, err := s.UpdateSettings(ctx, SettingsPatch{TermFilter: &term})
	return err
}

func placeholderName(courseId string) string {
	return "Course " + courseId
}

// courseUrlFromItems recovers the course page url from an item link when
// a scrape result carries no explicit one.
func courseUrlFromItems(items []gradescope.AssignmentCandidate) string {
	for _, item := range items {
		if idx := strings.Index(item.Href, "/assignments/"); idx > 0 {
			return item.Href[:idx]
		}
	}
	return ""
}

// Merge reconciles one scrape result into the store. An access-denied
// result latches the course as denied and leaves assignments alone; a
// result with a nil item list changes nothing (the scrape found no
// recognizable page structure). Otherwise the course is marked ok and
// every item overwrites its record wholesale, last write wins. Items
// fall back to their own course id, then the result's, then "unknown",
// so a malformed result never drops whole rows.
func (s Store) Merge(ctx context.Context, res gradescope.ScrapeResult) error {
	ctx, span := tracer.Start(ctx, "store.Merge")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", res.CourseId),
		attribute.Bool("not_authorized", res.NotAuthorized),
		attribute.Int("items", len(res.Items)),
	)

	courses, err := s.Courses(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	now := timezone.Now()

	if res.NotAuthorized {
		if res.CourseId == "" {
			return nil
		}
		stored, exists := courses[res.CourseId]
		stored.Id = res.CourseId
		// denial says nothing about the course's name; only fill it in
		// when the course is new to us
		if !exists {
			stored.Name = res.CourseName
			if stored.Name == "" {
				stored.Name = placeholderName(res.CourseId)
			}
		}
		stored.Access = AccessDenied
		stored.LastSeen = now
		courses[res.CourseId] = stored
		if err := s.kv.Set(ctx, keyCourses, courses); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("write courses: %w", err)
		}
		return nil
	}

	if res.Items == nil {
		return nil
	}

	if res.CourseId != "" {
		stored := courses[res.CourseId]
		stored.Id = res.CourseId
		stored.Name = res.CourseName
		if stored.Name == "" {
			stored.Name = courses[res.CourseId].Name
		}
		if stored.Name == "" {
			stored.Name = placeholderName(res.CourseId)
		}
		if stored.Url == "" {
			stored.Url = courseUrlFromItems(res.Items)
		}
		stored.Access = AccessOk
		stored.LastSeen = now
		courses[res.CourseId] = stored
		if err := s.kv.Set(ctx, keyCourses, courses); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("write courses: %w", err)
		}
	}

	assignments, err := s.Assignments(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	for _, item := range res.Items {
		id := item.AssignmentId
		if id == "" {
			id = item.Href
		}
		if id == "" {
			continue
		}

		courseId := item.CourseId
		if courseId == "" {
			courseId = res.CourseId
		}
		if courseId == "" {
			courseId = "unknown"
		}
		key := courseId + "|" + id

		name := item.CourseName
		if name == "" {
			name = res.CourseName
		}
		if name == "" {
			name = courses[courseId].Name
		}
		if name == "" {
			name = placeholderName(courseId)
		}

		rec := Assignment{
			Key:          key,
			CourseId:     courseId,
			CourseName:   name,
			AssignmentId: item.AssignmentId,
			Name:         item.Name,
			Url:          item.Href,
			DueText:      item.DueText,
			Submitted:    item.Submitted,
			LastUpdated:  now,
		}
		if due, ok := gradescope.ParseDue(item.DueText, item.DueStructured); ok {
			rec.DueAt = &due
		}
		assignments[key] = rec
	}
	if err := s.kv.Set(ctx, keyAssignments, assignments); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write assignments: %w", err)
	}
	return nil
}

// ReplaceCourses swaps the course membership for the discovered set.
// Access state and last-seen times survive for courses that remain;
// courses no longer discovered drop out of the set, though their
// assignment records stay until overwritten or cleared.
func (s Store) ReplaceCourses(ctx context.Context, discovered []gradescope.DiscoveredCourse) error {
	ctx, span := tracer.Start(ctx, "store.ReplaceCourses")
	defer span.End()
	span.SetAttributes(attribute.Int("courses", len(discovered)))

	existing, err := s.Courses(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	courses := make(map[string]Course, len(discovered))
	for _, d := range discovered {
		prev := existing[d.Id]
		courses[d.Id] = Course{
			Id:       d.Id,
			Name:     d.Name,
			Url:      d.Url,
			Term:     d.Term,
			Access:   prev.Access,
			LastSeen: prev.LastSeen,
		}
	}
	if err := s.kv.Set(ctx, keyCourses, courses); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write courses: %w", err)
	}
	return nil
}

func (s Store) Summary(ctx context.Context) (*RefreshSummary, error) {
	var summary RefreshSummary
	err := s.kv.Get(ctx, keySummary, &summary)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return &summary, nil
}

func (s Store) SaveSummary(ctx context.Context, summary RefreshSummary) error {
	if err := s.kv.Set(ctx, keySummary, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (s Store) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "store.Snapshot")
	defer span.End()

	courses, err := s.Courses(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	assignments, err := s.Assignments(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	summary, err := s.Summary(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Courses:     courses,
		Assignments: assignments,
		Settings:    settings,
		Summary:     summary,
		BytesInUse:  s.kv.BytesInUse(),
	}, nil
}

// Clear wipes the tracked courses, assignments and refresh summary.
// Settings are user preferences, not scraped state, and survive.
func (s Store) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.Clear")
	defer span.End()

	err := s.kv.Delete(ctx, keyAssignments, keyCourses, keySummary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}
