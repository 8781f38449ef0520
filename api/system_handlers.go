package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mailgun/holster/v4/clock"
	"go.uber.org/zap"

	"paperly-gateway/cache"
	"paperly-gateway/catalog"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit/domain"
	"paperly-gateway/middleware/ratelimit/infra"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status         string            `json:"status"`
	Services       map[string]string `json:"services"`
	ResponseTimeMS float64           `json:"response_time_ms"`
	Timestamp      int64             `json:"timestamp"`
	Version        string            `json:"version"`
}

func (s *Server) Health(c *gin.Context) {
	start := clock.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", Services: map[string]string{"database": "up"}, Version: Version}
	status := http.StatusOK
	if err := s.repo.Ping(ctx); err != nil {
		s.log.Error("database health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Services["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	resp.ResponseTimeMS = ms(clock.Since(start))
	resp.Timestamp = clock.Now().Unix()
	c.JSON(status, resp)
}

type fitnessRule struct {
	Name         string  `json:"name"`
	PathContains string  `json:"path_contains,omitempty"`
	Method       string  `json:"method,omitempty"`
	ThresholdMS  float64 `json:"threshold_ms"`
}

func (s *Server) Fitness(c *gin.Context) {
	rules := make([]fitnessRule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, fitnessRule{
			Name:         r.Name,
			PathContains: r.PathContains,
			Method:       strings.ToUpper(r.Method),
			ThresholdMS:  ms(r.Threshold),
		})
	}
	c.JSON(http.StatusOK, gin.H{"fitness_functions": rules, "timestamp": clock.Now().Unix()})
}

type tierInfo struct {
	Tier          domain.Tier `json:"tier"`
	Quota         int         `json:"quota"`
	PeriodSeconds int64       `json:"period_seconds"`
}

type statusResponse struct {
	APIStatus string         `json:"api_status"`
	Version   string         `json:"version"`
	Database  map[string]any `json:"database"`
	Cache     cache.Stats    `json:"cache"`
	RateLimit map[string]any `json:"rate_limit"`
}

func (s *Server) tierInfo() []tierInfo {
	out := make([]tierInfo, 0, len(s.tiers))
	for _, t := range domain.AllTiers {
		if l, ok := s.tiers[t]; ok {
			out = append(out, tierInfo{Tier: t, Quota: l.Quota, PeriodSeconds: int64(l.Period / time.Second)})
		}
	}
	return out
}

func (s *Server) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	db := map[string]any{"status": "up"}
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		s.log.Error("database status check failed", zap.Error(err))
		db["status"] = "down"
		counts = catalog.Counts{}
	}
	db["papers_count"] = counts.Papers
	db["users_count"] = counts.Users
	db["library_items_count"] = counts.LibraryItems

	rl := map[string]any{"tiers": s.tierInfo()}
	if s.limiter != nil {
		rl["decisions"] = limiterSummary(s.limiter)
	}

	c.JSON(http.StatusOK, statusResponse{
		APIStatus: "operational",
		Version:   Version,
		Database:  db,
		Cache:     s.memo.Cache().Stats(),
		RateLimit: rl,
	})
}

func limiterSummary(st *infra.MemoryStatsStore) map[string]any {
	return map[string]any{
		"total":    st.Total(),
		"by_tier":  st.ByTier(),
		"by_route": st.ByRoute(),
	}
}

func (s *Server) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cache_stats": s.memo.Cache().Stats(), "timestamp": clock.Now().Unix()})
}

func (s *Server) DeleteCacheKey(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		s.RespondWithError(c, http.StatusBadRequest, "cache key is required", nil)
		return
	}
	if !s.memo.Cache().Delete(key) {
		s.RespondWithError(c, http.StatusNotFound, "Cache key not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// prefixos de chave por tipo de cache; "all" limpa tudo
var cachePrefixes = map[string]string{
	"all":             "",
	"search":          "search:",
	"papers":          "paper:",
	"recommendations": "recommendations:",
}

type clearCacheRequest struct {
	CacheType string `json:"cache_type"`
}

func (s *Server) ClearCache(c *gin.Context) {
	req := clearCacheRequest{CacheType: "all"}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.RespondWithError(c, http.StatusBadRequest, "Invalid cache clear request", err)
			return
		}
	}
	cacheType := strings.ToLower(strings.TrimSpace(req.CacheType))
	if cacheType == "" {
		cacheType = "all"
	}
	prefix, ok := cachePrefixes[cacheType]
	if !ok {
		s.RespondWithError(c, http.StatusBadRequest, "cache_type must be all, search, papers or recommendations", nil)
		return
	}

	n := s.memo.Cache().DeletePrefix(prefix)
	s.log.Info("cache cleared",
		zap.String("cache_type", cacheType),
		zap.Int("keys_cleared", n),
		zap.String("request_id", monitoring.RequestIDFromContext(c.Request.Context())))
	c.JSON(http.StatusOK, gin.H{
		"message":      "Cache cleared successfully",
		"cache_type":   cacheType,
		"keys_cleared": n,
		"timestamp":    clock.Now().Unix(),
	})
}
