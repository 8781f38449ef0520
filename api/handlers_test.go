package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paperly-gateway/auth"
	"paperly-gateway/cache"
	"paperly-gateway/catalog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var attention = &catalog.Paper{
	ID:            "arxiv:1706.03762",
	Title:         "Attention Is All You Need",
	Authors:       catalog.StringArray{"Ashish Vaswani", "Noam Shazeer"},
	Year:          2017,
	Journal:       "arXiv",
	DOI:           "arxiv:1706.03762",
	OpenAccess:    true,
	CitationCount: 45670,
}

var dqn = &catalog.Paper{
	ID:       "10.1038/nature14539",
	Title:    "Human-level control through deep reinforcement learning",
	Authors:  catalog.StringArray{"Volodymyr Mnih"},
	Year:     2015,
	Journal:  "Nature",
	DOI:      "10.1038/nature14539",
	Keywords: catalog.StringArray{"reinforcement learning", "deep learning", "AI", "neural networks"},
}

var atari = catalog.Paper{
	ID:       "10.1126/science.1240527",
	Title:    "Playing Atari with Deep Reinforcement Learning",
	Year:     2013,
	Keywords: catalog.StringArray{"deep learning", "reinforcement learning", "games", "neural networks"},
}

type fixture struct {
	repo    *mockRepository
	cache   *cache.TTLCache
	tokens  *auth.JWT
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   &mockRepository{},
		cache:  cache.New(),
		tokens: auth.NewJWT("test-secret", time.Hour),
	}
	srv := NewServer(Options{
		Repo:     f.repo,
		Cache:    f.cache,
		Tokens:   f.tokens,
		TTLs:     CacheTTLs{Search: time.Minute, Paper: time.Minute, Recommendations: 10 * time.Minute},
		Gatherer: prometheus.NewRegistry(),
	})
	f.handler = auth.Middleware(f.tokens, nil)(srv.Router())
	t.Cleanup(func() { f.repo.AssertExpectations(t) })
	return f
}

func (f *fixture) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := f.tokens.Issue(id)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, target, body, token string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

var (
	student = auth.Identity{UserID: 1, Email: "student@utec.edu.pe", Role: auth.RoleStudent}
	admin   = auth.Identity{UserID: 2, Email: "admin@utec.edu.pe", Role: auth.RoleAdmin}
)

func TestLogin(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	f.repo.On("GetUserByEmail", mock.Anything, "student@utec.edu.pe").
		Return(&catalog.User{ID: 1, Email: "student@utec.edu.pe", Name: "Student UTEC", Role: "student", HashedPassword: hash}, nil)
	f.repo.On("GetUserByEmail", mock.Anything, "ghost@utec.edu.pe").
		Return(nil, catalog.ErrUserNotFound)

	t.Run("success", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/auth/login", `{"email":"student@utec.edu.pe","password":"password123"}`, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp loginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bearer", resp.TokenType)
		assert.NotContains(t, w.Body.String(), "hashed_password")

		id, err := f.tokens.Resolve(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, student, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/auth/login", `{"email":"student@utec.edu.pe","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("unknown user", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/auth/login", `{"email":"ghost@utec.edu.pe","password":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/auth/login", `{"email":"not-an-email"}`, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearch_CachesNormalizedQuery(t *testing.T) {
	f := newFixture(t)
	f.repo.On("SearchPapers", mock.Anything, mock.MatchedBy(func(q catalog.SearchQuery) bool {
		return q.Q == "attention" && q.Page == 1 && q.Limit == 20 && q.SortBy == catalog.SortRelevance
	})).Return(catalog.SearchResult{Papers: []catalog.Paper{*attention}, Total: 1}, nil).Once()

	w1 := f.do(http.MethodGet, "/api/v1/search?q=attention", "", "")
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())

	var first searchPage
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &first))
	assert.False(t, first.Meta.Cached)
	assert.Equal(t, int64(1), first.Meta.Total)
	require.Len(t, first.Data, 1)
	assert.Equal(t, "arxiv:1706.03762", first.Data[0].ID)

	w2 := f.do(http.MethodGet, "/api/v1/search?q=attention&page=1&limit=20&sort_by=relevance", "", "")
	require.Equal(t, http.StatusOK, w2.Code)

	var second searchPage
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &second))
	assert.True(t, second.Meta.Cached)
	assert.Equal(t, first.Data, second.Data)
}

func TestSearch_RejectsInvalidParams(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{
		"/api/v1/search?limit=101",
		"/api/v1/search?page=0&limit=0&sort_by=hype",
		"/api/v1/search?year_from=abc",
	} {
		w := f.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestSearch_RepositoryFailureIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.repo.On("SearchPapers", mock.Anything, mock.Anything).
		Return(catalog.SearchResult{}, errors.New("db down")).Once()
	f.repo.On("SearchPapers", mock.Anything, mock.Anything).
		Return(catalog.SearchResult{}, nil).Once()

	w := f.do(http.MethodGet, "/api/v1/search?q=x", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")

	w = f.do(http.MethodGet, "/api/v1/search?q=x", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaper_DetailWithSlashInIDIsCached(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetPaper", mock.Anything, "10.1038/nature14539").Return(dqn, nil).Once()

	w := f.do(http.MethodGet, "/api/v1/papers/10.1038/nature14539", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"cached":false`)

	w = f.do(http.MethodGet, "/api/v1/papers/10.1038/nature14539", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cached":true`)

	_, ok := f.cache.Get("paper:10.1038/nature14539")
	assert.True(t, ok)
}

func TestPaper_NotFound(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetPaper", mock.Anything, "missing").Return(nil, catalog.ErrPaperNotFound)

	w := f.do(http.MethodGet, "/api/v1/papers/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":404,"message":"Paper not found"}}`, w.Body.String())
}

func TestPaper_Export(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetPaper", mock.Anything, "arxiv:1706.03762").Return(attention, nil)

	w := f.do(http.MethodGet, "/api/v1/papers/arxiv:1706.03762/export?format=ieee", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp citationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `Ashish Vaswani, Noam Shazeer, "Attention Is All You Need," arXiv, 2017.`, resp.Data.Citation)

	w = f.do(http.MethodGet, "/api/v1/papers/arxiv:1706.03762/export?format=docx", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaper_RecommendationsAreCached(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetPaper", mock.Anything, "10.1038/nature14539").Return(dqn, nil).Once()
	f.repo.On("SearchPapers", mock.Anything, mock.MatchedBy(func(q catalog.SearchQuery) bool {
		return assert.ObjectsAreEqual([]string{"reinforcement learning", "deep learning"}, q.Keywords) &&
			q.SortBy == catalog.SortCitations && q.Limit == catalog.DefaultRecommendations+1
	})).Return(catalog.SearchResult{Papers: []catalog.Paper{*dqn, atari}, Total: 2}, nil).Once()

	w := f.do(http.MethodGet, "/api/v1/papers/10.1038/nature14539/recommendations", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp recommendationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, atari.ID, resp.Data[0].PaperID)
	assert.Equal(t, 0.6, resp.Data[0].Score)
	assert.Equal(t, catalog.StrategySimilarity, resp.Meta.Strategy)
	assert.Equal(t, "10.1038/nature14539", resp.Meta.PaperID)
	assert.False(t, resp.Meta.Cached)

	w = f.do(http.MethodGet, "/api/v1/papers/10.1038/nature14539/recommendations?strategy=similarity&limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Meta.Cached)

	_, ok := f.cache.Get("recommendations:10.1038/nature14539:similarity:5")
	assert.True(t, ok)
}

func TestPaper_RecommendationsRejectBadInput(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetPaper", mock.Anything, "missing").Return(nil, catalog.ErrPaperNotFound)

	for target, want := range map[string]int{
		"/api/v1/papers/arxiv:1706.03762/recommendations?strategy=collaborative": http.StatusBadRequest,
		"/api/v1/papers/arxiv:1706.03762/recommendations?limit=abc":              http.StatusBadRequest,
		"/api/v1/papers/arxiv:1706.03762/recommendations?limit=21":               http.StatusBadRequest,
		"/api/v1/papers/missing/recommendations":                                 http.StatusNotFound,
	} {
		assert.Equal(t, want, f.do(http.MethodGet, target, "", "").Code, target)
	}
}

func TestLibrary_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/library", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/library", "", "forged").Code)
}

func TestLibrary_SaveListRemove(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, student)

	f.repo.On("SaveToLibrary", mock.Anything, uint(1), "10.1038/nature14539", []string{"rl"}, "classic").
		Return(&catalog.LibraryItem{ID: 7, UserID: 1, PaperID: "10.1038/nature14539", Tags: catalog.StringArray{"rl"}, Notes: "classic"}, nil)
	f.repo.On("SaveToLibrary", mock.Anything, uint(1), "missing", []string(nil), "").
		Return(nil, catalog.ErrPaperNotFound)
	f.repo.On("ListLibrary", mock.Anything, uint(1)).
		Return([]catalog.LibraryItem{{ID: 7, UserID: 1, PaperID: "10.1038/nature14539", Paper: dqn}}, nil)
	f.repo.On("RemoveFromLibrary", mock.Anything, uint(1), "10.1038/nature14539").Return(nil).Once()
	f.repo.On("RemoveFromLibrary", mock.Anything, uint(1), "10.1038/nature14539").Return(catalog.ErrLibraryItemNotFound).Once()

	w := f.do(http.MethodPost, "/api/v1/library", `{"paper_id":"10.1038/nature14539","tags":["rl"],"notes":"classic"}`, tok)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/library", `{"paper_id":"missing"}`, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/library", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), "Human-level control")

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/library/10.1038/nature14539", "", tok).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/library/10.1038/nature14539", "", tok).Code)
}

func TestAdmin_CacheEndpoints(t *testing.T) {
	f := newFixture(t)
	f.cache.Set("paper:arxiv:1706.03762", attention, time.Minute)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/cache/stats", "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/cache/stats", "", f.token(t, student)).Code)

	tok := f.token(t, admin)
	w := f.do(http.MethodGet, "/api/v1/admin/cache/stats", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":1`)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/admin/cache/paper:arxiv:1706.03762", "", tok).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/admin/cache/paper:arxiv:1706.03762", "", tok).Code)
}

func TestAdmin_ClearCacheByType(t *testing.T) {
	f := newFixture(t)
	f.cache.Set(`search:{"q":"deep"}`, 1, time.Minute)
	f.cache.Set("paper:arxiv:1706.03762", attention, time.Minute)
	f.cache.Set("recommendations:arxiv:1706.03762:similarity:5", 3, time.Minute)
	tok := f.token(t, admin)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/v1/admin/cache/clear", "", f.token(t, student)).Code)

	w := f.do(http.MethodPost, "/api/v1/admin/cache/clear", `{"cache_type":"search"}`, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"keys_cleared":1`)
	assert.Contains(t, w.Body.String(), `"cache_type":"search"`)
	_, ok := f.cache.Get("paper:arxiv:1706.03762")
	assert.True(t, ok)

	w = f.do(http.MethodPost, "/api/v1/admin/cache/clear", `{"cache_type":"everything"}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/admin/cache/clear", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_type":"all"`)
	assert.Contains(t, w.Body.String(), `"keys_cleared":2`)
	assert.Zero(t, f.cache.Stats().Entries)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Ping", mock.Anything).Return(nil).Once()
	f.repo.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

	w := f.do(http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)

	w = f.do(http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestFitnessAndStatus(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Counts", mock.Anything).Return(catalog.Counts{Papers: 4, Users: 2}, nil)

	w := f.do(http.MethodGet, "/api/v1/health/fitness", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"catalog_response_time"`)
	assert.Contains(t, w.Body.String(), `"threshold_ms":100`)

	w = f.do(http.MethodGet, "/api/v1/status", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"papers_count":4`)
	assert.Contains(t, w.Body.String(), `"tier":"anonymous","quota":50,"period_seconds":60`)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/v2/search", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":404`)
}
