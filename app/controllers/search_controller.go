package controllers

import (
	"strings"
	"unicode/utf8"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

func (sc *SearchController) Index(c *ctx.Context) {
	errs := map[string]string{}

	q := strings.TrimSpace(c.Query("q"))
	if n := utf8.RuneCountInString(q); n < 2 || n > 100 {
		errs["q"] = "The q must be between 2 and 100 characters."
	}
	kind := c.DefaultQuery("type", services.SearchAll)
	if !services.ValidSearchType(kind) {
		errs["type"] = "The selected type is invalid."
	}
	limit, ok := intQuery(c, "limit", 10, 1, 50)
	if !ok {
		errs["limit"] = "The limit must be between 1 and 50."
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return
	}

	res, err := sc.search.Search(c.Context(), q, kind, limit)
	if err != nil {
		fail(c, err, "Nothing found")
		return
	}
	c.Success(res)
}
