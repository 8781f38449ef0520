package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mailgun/holster/v4/clock"

	"paperly-gateway/catalog"
)

type searchParams struct {
	Q          string   `form:"q"`
	Author     string   `form:"author"`
	YearFrom   int      `form:"year_from"`
	YearTo     int      `form:"year_to"`
	Keywords   []string `form:"keywords"`
	OpenAccess *bool    `form:"open_access"`
	Page       int      `form:"page"`
	Limit      int      `form:"limit"`
	SortBy     string   `form:"sort_by"`
}

type paperSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Year          int      `json:"year"`
	Journal       string   `json:"journal"`
	CitationCount int      `json:"citation_count"`
	OpenAccess    bool     `json:"open_access"`
}

type searchMeta struct {
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int64   `json:"total"`
	DurationMS float64 `json:"duration_ms"`
	Cached     bool    `json:"cached"`
}

type searchPage struct {
	Data []paperSummary `json:"data"`
	Meta searchMeta     `json:"meta"`
}

func (s *Server) Search(c *gin.Context) {
	var p searchParams
	if err := c.ShouldBindQuery(&p); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid search parameters", err)
		return
	}
	q, err := catalog.SearchQuery{
		Q:          p.Q,
		Author:     p.Author,
		YearFrom:   p.YearFrom,
		YearTo:     p.YearTo,
		Keywords:   p.Keywords,
		OpenAccess: p.OpenAccess,
		Page:       p.Page,
		Limit:      p.Limit,
		SortBy:     p.SortBy,
	}.Normalize()
	if err != nil {
		s.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	v, cached, err := s.memo.Get(c.Request.Context(), q.CacheKey(), s.ttls.Search, func(ctx context.Context) (any, error) {
		start := clock.Now()
		res, err := s.repo.SearchPapers(ctx, q)
		if err != nil {
			return nil, err
		}
		page := searchPage{
			Data: make([]paperSummary, 0, len(res.Papers)),
			Meta: searchMeta{Page: q.Page, Limit: q.Limit, Total: res.Total},
		}
		for _, p := range res.Papers {
			page.Data = append(page.Data, summarize(p))
		}
		page.Meta.DurationMS = ms(clock.Since(start))
		return page, nil
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			s.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		s.RespondWithError(c, http.StatusInternalServerError, "Search failed", err)
		return
	}

	page := v.(searchPage)
	page.Meta.Cached = cached
	c.JSON(http.StatusOK, page)
}

func summarize(p catalog.Paper) paperSummary {
	authors := []string(p.Authors)
	if authors == nil {
		authors = []string{}
	}
	return paperSummary{
		ID:            p.ID,
		Title:         p.Title,
		Authors:       authors,
		Year:          p.Year,
		Journal:       p.Journal,
		CitationCount: p.CitationCount,
		OpenAccess:    p.OpenAccess,
	}
}
