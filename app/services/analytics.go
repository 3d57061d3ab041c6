package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/collection"
)

const (
	// TrackBodyLimit caps POST /api/analytics/track bodies.
	TrackBodyLimit = 16 << 10
	MaxProperties  = 50
)

var eventNameRE = regexp.MustCompile(`^[a-z][a-z0-9_.:-]{0,63}$`)

type TrackInput struct {
	Event      string         `json:"event" validate:"required"`
	UserID     string         `json:"userId" validate:"nullable,max=64"`
	PageID     string         `json:"pageId" validate:"nullable,max=200"`
	Properties map[string]any `json:"properties"`
}

type PageCount struct {
	PageID string `json:"pageId"`
	Views  int    `json:"views"`
}

type EventTotals struct {
	Total  int            `json:"total"`
	ByName map[string]int `json:"byName"`
}

type AnalyticsSummary struct {
	TotalViews int         `json:"totalViews"`
	TopPages   []PageCount `json:"topPages"`
	Events     EventTotals `json:"events"`
}

type AnalyticsService struct {
	store *store.Store
}

func NewAnalyticsService(s *store.Store) *AnalyticsService {
	return &AnalyticsService{store: s}
}

// RecordView counts one view of pageID. The increment runs under the
// collection lock, and the loser of a racing first view falls back to it.
func (s *AnalyticsService) RecordView(ctx context.Context, pageID, referrer string) (models.PageView, error) {
	for attempt := 0; attempt < 2; attempt++ {
		cur, err := s.store.PageViews.FindFirst(ctx, store.Query[models.PageView]{
			Where: map[string]any{"pageId": pageID},
		})
		if err != nil {
			return models.PageView{}, err
		}
		now := s.store.Now()

		if cur != nil {
			pv, err := s.store.PageViews.Modify(ctx, cur.ID, func(pv *models.PageView) error {
				pv.Views++
				pv.LastViewedAt = now
				if referrer != "" {
					pv.LastReferrer = referrer
				}
				return nil
			})
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return pv, err
		}

		pv, err := s.store.PageViews.Create(ctx, models.PageView{
			PageID:       pageID,
			Views:        1,
			LastReferrer: referrer,
			CreatedAt:    now,
			LastViewedAt: now,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		return pv, err
	}
	return models.PageView{}, fmt.Errorf("%w: page view %q kept changing", ErrConflict, pageID)
}

// Track validates and stores one analytics event.
func (s *AnalyticsService) Track(ctx context.Context, in TrackInput) (models.AnalyticsEvent, error) {
	errs := map[string]string{}
	if !eventNameRE.MatchString(in.Event) {
		errs["event"] = "The event format is invalid."
	}
	if len(in.Properties) > MaxProperties {
		errs["properties"] = fmt.Sprintf("The properties must not have more than %d items.", MaxProperties)
	}
	if len(errs) > 0 {
		return models.AnalyticsEvent{}, &ValidationError{Fields: errs}
	}

	props := in.Properties
	if props == nil {
		props = map[string]any{}
	}
	return s.store.Events.Create(ctx, models.AnalyticsEvent{
		Event:      in.Event,
		UserID:     in.UserID,
		PageID:     in.PageID,
		Properties: props,
		ReceivedAt: s.store.Now(),
	})
}

// PageView returns the view record of one page.
func (s *AnalyticsService) PageView(ctx context.Context, pageID string) (models.PageView, error) {
	pv, err := s.store.PageViews.FindFirst(ctx, store.Query[models.PageView]{
		Where: map[string]any{"pageId": pageID},
	})
	if err != nil {
		return models.PageView{}, err
	}
	if pv == nil {
		return models.PageView{}, fmt.Errorf("%w: page %q", ErrNotFound, pageID)
	}
	return *pv, nil
}

// Summary totals views and events. topPages holds at most limit pages.
func (s *AnalyticsService) Summary(ctx context.Context, limit int) (AnalyticsSummary, error) {
	views, err := s.store.PageViews.FindMany(ctx, store.Query[models.PageView]{})
	if err != nil {
		return AnalyticsSummary{}, err
	}
	events, err := s.store.Events.FindMany(ctx, store.Query[models.AnalyticsEvent]{})
	if err != nil {
		return AnalyticsSummary{}, err
	}

	pages := repositories.Items(ctx, s.store.PageViews.Name(), views)
	evs := repositories.Items(ctx, s.store.Events.Name(), events)

	collection.SortByDesc(pages, func(p models.PageView) int { return p.Views })
	top := collection.Map(collection.Take(pages, limit), func(p models.PageView) PageCount {
		return PageCount{PageID: p.PageID, Views: p.Views}
	})

	return AnalyticsSummary{
		TotalViews: collection.Sum(pages, func(p models.PageView) int { return p.Views }),
		TopPages:   top,
		Events: EventTotals{
			Total:  len(evs),
			ByName: collection.CountBy(evs, func(e models.AnalyticsEvent) string { return e.Event }),
		},
	}, nil
}
