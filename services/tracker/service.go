package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"duesoon-backend/lib/renderer"
	"duesoon-backend/lib/scrapers/gradescope"
	"duesoon-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrRefreshInFlight is returned when RefreshAll is called while another
// refresh is still running. The caller should retry after the current
// run finishes rather than queueing.
var ErrRefreshInFlight = errors.New("a refresh is already in flight")

const defaultRateLimit = 900 * time.Millisecond

type Options struct {
	// BaseUrl is the dashboard page course discovery starts from.
	BaseUrl string
	// RateLimit is the pause between successive page fetches.
	RateLimit time.Duration
}

type Service struct {
	store     Store
	renderer  renderer.Renderer
	baseUrl   string
	rateLimit time.Duration

	refreshing sync.Mutex
}

func NewService(store Store, r renderer.Renderer, opts Options) *Service {
	rateLimit := opts.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	return &Service{
		store:     store,
		renderer:  r,
		baseUrl:   opts.BaseUrl,
		rateLimit: rateLimit,
	}
}

func (s *Service) Store() Store {
	return s.store
}

// RefreshAll runs one full acquisition pass: discover courses from the
// dashboard, replace the course membership, then scrape and merge each
// course sequentially with a fixed delay between fetches. A failure on
// one course is recorded in its outcome and never aborts the rest. The
// summary of the run is persisted wholesale at the end.
func (s *Service) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	if !s.refreshing.TryLock() {
		return RefreshSummary{}, ErrRefreshInFlight
	}
	defer s.refreshing.Unlock()

	ctx, span := tracer.Start(ctx, "RefreshAll")
	defer span.End()

	summary := RefreshSummary{
		OpenedUrls: []string{s.baseUrl},
	}

	var discovered []gradescope.DiscoveredCourse
	err := renderer.WithPage(ctx, s.renderer, s.baseUrl, func(page renderer.Page) error {
		discovered = gradescope.DiscoverCourses(ctx, page.Root(), page.URL())
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("render dashboard: %w", err)
	}
	span.SetAttributes(attribute.Int("discovered", len(discovered)))

	if err := s.store.ReplaceCourses(ctx, discovered); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	for _, c := range discovered {
		summary.DiscoveredCourseIds = append(summary.DiscoveredCourseIds, c.Id)
	}
	summary.DiscoveredTerms = gradescope.TermsInOrder(discovered)

	// an unset filter snaps to the first-seen term, which is the current
	// one on the dashboard layout
	if len(summary.DiscoveredTerms) > 0 {
		settings, err := s.store.Settings(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}
		if settings.TermFilter == "" || settings.TermFilter == TermAll {
			if err := s.store.SetTermFilter(ctx, summary.DiscoveredTerms[0]); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return summary, err
			}
		}
	}

	for _, course := range discovered {
		// every fetch follows the previous one (the dashboard included)
		// after a fixed pause
		if err := sleepCtx(ctx, s.rateLimit); err != nil {
			summary.Notes = "refresh interrupted: " + err.Error()
			break
		}

		outcome := s.refreshCourse(ctx, course)
		summary.Results = append(summary.Results, outcome)
		summary.OpenedUrls = append(summary.OpenedUrls, course.Url)
	}

	summary.LastRefreshAt = timezone.Now()
	if err := s.store.SaveSummary(ctx, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	return summary, nil
}

func (s *Service) refreshCourse(ctx context.Context, course gradescope.DiscoveredCourse) CourseOutcome {
	ctx, span := tracer.Start(ctx, "refreshCourse")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", course.Id),
		attribute.String("url", course.Url),
	)

	outcome := CourseOutcome{
		Id:   course.Id,
		Name: course.Name,
		Term: course.Term,
		Url:  course.Url,
	}

	err := renderer.WithPage(ctx, s.renderer, course.Url, func(page renderer.Page) error {
		res := gradescope.ScrapeCourse(ctx, page.Root(), page.URL())
		outcome.NotAuthorized = res.NotAuthorized
		outcome.ItemsFound = len(res.Items)
		for _, item := range res.Items {
			if _, ok := gradescope.ParseDue(item.DueText, item.DueStructured); ok {
				outcome.ParsedDue++
			}
		}
		return s.store.Merge(ctx, res)
	})
	if err != nil {
		slog.WarnContext(ctx, "course refresh failed",
			"course", course.Id, "url", course.Url, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome.Err = err.Error()
	}
	return outcome
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ApplyScrapeResult ingests an externally produced scrape, the push
// counterpart of RefreshAll.
func (s *Service) ApplyScrapeResult(ctx context.Context, res gradescope.ScrapeResult) error {
	ctx, span := tracer.Start(ctx, "ApplyScrapeResult")
	defer span.End()

	err := s.store.Merge(ctx, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Service) GetSnapshot(ctx context.Context) (Snapshot, error) {
	return s.store.Snapshot(ctx)
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.store.Settings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	return s.store.UpdateSettings(ctx, patch)
}

// ClearAll wipes scraped state; settings survive.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Upcoming evaluates the filtered due-soon view against the current
// wall clock.
func (s *Service) Upcoming(ctx context.Context) ([]UpcomingItem, error) {
	ctx, span := tracer.Start(ctx, "Upcoming")
	defer span.End()

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	items := BuildUpcoming(snapshot, timezone.Now())
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}
