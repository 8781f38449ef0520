// Package api expõe as rotas HTTP do gateway (gin) e monta o pipeline de
// middlewares em volta delas.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paperly-gateway/auth"
	"paperly-gateway/cache"
	"paperly-gateway/catalog"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit/domain"
	"paperly-gateway/middleware/ratelimit/infra"
)

const Version = "1.0.0"

type CacheTTLs struct {
	Search          time.Duration
	Paper           time.Duration
	Recommendations time.Duration
}

type Options struct {
	Repo     catalog.Repository
	Cache    *cache.TTLCache
	Tokens   *auth.JWT
	Tiers    domain.Tiers
	Rules    []monitoring.Rule
	TTLs     CacheTTLs
	Limiter  *infra.MemoryStatsStore
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Server struct {
	repo     catalog.Repository
	memo     *cache.Memoizer
	tokens   *auth.JWT
	tiers    domain.Tiers
	rules    []monitoring.Rule
	ttls     CacheTTLs
	limiter  *infra.MemoryStatsStore
	gatherer prometheus.Gatherer
	log      *zap.Logger
}

func NewServer(opts Options) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.New()
	}
	if opts.Tiers == nil {
		opts.Tiers = domain.DefaultTiers()
	}
	if opts.Rules == nil {
		opts.Rules = monitoring.DefaultRules()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		repo:     opts.Repo,
		memo:     cache.NewMemoizer(opts.Cache),
		tokens:   opts.Tokens,
		tiers:    opts.Tiers,
		rules:    opts.Rules,
		ttls:     opts.TTLs,
		limiter:  opts.Limiter,
		gatherer: opts.Gatherer,
		log:      opts.Logger.Named("api"),
	}
}

// Router registra todas as rotas. Panics não são recuperados aqui: quem faz
// isso é o middleware de monitoring, na borda do pipeline.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) {
		s.RespondWithError(c, http.StatusNotFound, "Not found", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		s.RespondWithError(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", s.Login)

		v1.GET("/search", s.Search)
		v1.GET("/papers/*path", s.Paper)

		library := v1.Group("/library", s.requireIdentity)
		library.GET("", s.ListLibrary)
		library.POST("", s.SaveToLibrary)
		library.DELETE("/*paper_id", s.RemoveFromLibrary)

		v1.GET("/health", s.Health)
		v1.GET("/health/fitness", s.Fitness)
		v1.GET("/status", s.Status)

		admin := v1.Group("/admin", s.requireIdentity, s.requireAdmin)
		admin.GET("/cache/stats", s.CacheStats)
		admin.POST("/cache/clear", s.ClearCache)
		admin.DELETE("/cache/*key", s.DeleteCacheKey)
	}
	return r
}

func (s *Server) requireIdentity(c *gin.Context) {
	if _, ok := auth.FromContext(c.Request.Context()); !ok {
		s.RespondWithError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	id, _ := auth.FromContext(c.Request.Context())
	if !id.IsAdmin() {
		s.RespondWithError(c, http.StatusForbidden, "Admin access required", nil)
		return
	}
	c.Next()
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}
