package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mailgun/holster/v4/clock"

	"paperly-gateway/catalog"
)

type paperMeta struct {
	Cached     bool    `json:"cached"`
	DurationMS float64 `json:"duration_ms"`
}

type paperResponse struct {
	Data *catalog.Paper `json:"data"`
	Meta paperMeta      `json:"meta"`
}

type citationResponse struct {
	Data citationData   `json:"data"`
	Meta map[string]any `json:"meta"`
}

type citationData struct {
	Citation string `json:"citation"`
	Format   string `json:"format"`
	PaperID  string `json:"paper_id"`
}

// Paper atende /papers/<id>, /papers/<id>/export e
// /papers/<id>/recommendations. IDs podem conter "/"
// (DOIs), por isso a rota é catch-all.
func (s *Server) Paper(c *gin.Context) {
	path := strings.Trim(c.Param("path"), "/")
	if id, ok := strings.CutSuffix(path, "/export"); ok && id != "" {
		s.exportPaper(c, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/recommendations"); ok && id != "" {
		s.recommend(c, id)
		return
	}
	if path == "" {
		s.RespondWithError(c, http.StatusNotFound, "Paper not found", catalog.ErrPaperNotFound)
		return
	}
	s.getPaper(c, path)
}

func paperCacheKey(id string) string { return "paper:" + id }

func (s *Server) getPaper(c *gin.Context, id string) {
	start := clock.Now()
	v, cached, err := s.memo.Get(c.Request.Context(), paperCacheKey(id), s.ttls.Paper, func(ctx context.Context) (any, error) {
		return s.repo.GetPaper(ctx, id)
	})
	if errors.Is(err, catalog.ErrPaperNotFound) {
		s.RespondWithError(c, http.StatusNotFound, "Paper not found", err)
		return
	}
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to load paper", err)
		return
	}

	c.JSON(http.StatusOK, paperResponse{
		Data: v.(*catalog.Paper),
		Meta: paperMeta{Cached: cached, DurationMS: ms(clock.Since(start))},
	})
}

func (s *Server) exportPaper(c *gin.Context, id string) {
	format := c.DefaultQuery("format", "bibtex")

	paper, err := s.repo.GetPaper(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrPaperNotFound) {
		s.RespondWithError(c, http.StatusNotFound, "Paper not found", err)
		return
	}
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to load paper", err)
		return
	}

	citation, err := catalog.Cite(paper, format)
	if err != nil {
		s.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	c.JSON(http.StatusOK, citationResponse{
		Data: citationData{Citation: citation, Format: strings.ToLower(format), PaperID: paper.ID},
		Meta: map[string]any{"available_formats": catalog.CitationFormats},
	})
}

type recommendationsMeta struct {
	Strategy   string  `json:"strategy"`
	Total      int     `json:"total"`
	PaperID    string  `json:"paper_id"`
	Cached     bool    `json:"cached"`
	DurationMS float64 `json:"duration_ms"`
}

type recommendationsResponse struct {
	Data []catalog.Recommendation `json:"data"`
	Meta recommendationsMeta      `json:"meta"`
}

func (s *Server) recommend(c *gin.Context, id string) {
	start := clock.Now()
	strategy := strings.ToLower(c.DefaultQuery("strategy", catalog.StrategySimilarity))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(catalog.DefaultRecommendations)))
	if err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "limit must be an integer", err)
		return
	}

	key := fmt.Sprintf("recommendations:%s:%s:%d", id, strategy, limit)
	v, cached, err := s.memo.Get(c.Request.Context(), key, s.ttls.Recommendations, func(ctx context.Context) (any, error) {
		return catalog.Recommend(ctx, s.repo, id, strategy, limit)
	})
	switch {
	case errors.Is(err, catalog.ErrPaperNotFound):
		s.RespondWithError(c, http.StatusNotFound, "Paper not found", err)
		return
	case errors.Is(err, catalog.ErrUnknownStrategy), errors.Is(err, catalog.ErrInvalidQuery):
		s.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		return
	case err != nil:
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to load recommendations", err)
		return
	}

	recs := v.([]catalog.Recommendation)
	c.JSON(http.StatusOK, recommendationsResponse{
		Data: recs,
		Meta: recommendationsMeta{
			Strategy:   strategy,
			Total:      len(recs),
			PaperID:    id,
			Cached:     cached,
			DurationMS: ms(clock.Since(start)),
		},
	})
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
