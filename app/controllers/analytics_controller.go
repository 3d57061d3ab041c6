package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

type PageViewRequest struct {
	PageID   string `json:"pageId" validate:"required,max=200"`
	Referrer string `json:"referrer" validate:"nullable,max=2000"`
}

type AnalyticsController struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// View counts one page view.
func (ac *AnalyticsController) View(c *ctx.Context) {
	var in PageViewRequest
	if !c.BindJSON(&in) {
		return
	}

	pv, err := ac.analytics.RecordView(c.Context(), in.PageID, in.Referrer)
	if err != nil {
		fail(c, err, "Page not found")
		return
	}
	c.Success(pv)
}

// Track stores one event. Bodies over TrackBodyLimit are a 413.
func (ac *AnalyticsController) Track(c *ctx.Context) {
	var in services.TrackInput
	if !c.BindJSONLimit(&in, services.TrackBodyLimit) {
		return
	}

	ev, err := ac.analytics.Track(c.Context(), in)
	if err != nil {
		fail(c, err, "Event not found")
		return
	}
	c.Accepted(ev)
}

// Show returns one page's views with ?pageId=, or the summary without.
func (ac *AnalyticsController) Show(c *ctx.Context) {
	if pageID := c.Query("pageId"); pageID != "" {
		pv, err := ac.analytics.PageView(c.Context(), pageID)
		if err != nil {
			fail(c, err, "Page not found")
			return
		}
		c.Success(pv)
		return
	}

	limit, ok := intQuery(c, "limit", 10, 1, 100)
	if !ok {
		c.Error(http.StatusBadRequest, "Invalid limit")
		return
	}
	summary, err := ac.analytics.Summary(c.Context(), limit)
	if err != nil {
		fail(c, err, "Page not found")
		return
	}
	c.Success(summary)
}
