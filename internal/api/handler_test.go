package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salesagent/salesagent/internal/matching"
	"github.com/salesagent/salesagent/internal/model"
	"github.com/salesagent/salesagent/internal/service"
)

type memTenderSource struct {
	tenders []model.Tender
}

func (s *memTenderSource) Tenders(_ context.Context) ([]model.Tender, error) {
	return s.tenders, nil
}

type memProductSource struct {
	products []model.Product
}

func (s *memProductSource) Products(_ context.Context) ([]model.Product, error) {
	return s.products, nil
}

type memMatchStore struct {
	saved []model.Match
}

func (s *memMatchStore) SaveMatches(_ context.Context, matches []model.Match) error {
	s.saved = append(s.saved, matches...)
	return nil
}

func (s *memMatchStore) Matches(_ context.Context) ([]model.Match, error) {
	return s.saved, nil
}

func newTestRouter(t *testing.T, matches service.MatchStore) (*gin.Engine, *memTenderSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tenders := &memTenderSource{tenders: []model.Tender{
		{ID: "t1", DisplayName: "Helpdesk services", SearchTags: []string{"helpdesk"}},
	}}
	products := &memProductSource{products: []model.Product{
		{Name: "SupportDesk", Keywords: []string{"helpdesk"}},
	}}

	agent, err := matching.New(matching.Config{MinScore: 1.0}, nil, zap.NewNop())
	require.NoError(t, err)

	svc, err := service.New(service.Deps{
		Agent:     agent,
		Tenders:   tenders,
		Products:  products,
		Matches:   matches,
		OutputDir: t.TempDir(),
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	handler := NewHandler(svc, tenders, matches, zap.NewNop(), "test")
	router := SetupRouter(ServerConfig{Debug: true}, handler, zap.NewNop())

	return router, tenders
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t, &memMatchStore{})

	resp := doRequest(router, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"healthy"`)
}

func TestRunMatchEndpoint(t *testing.T) {
	store := &memMatchStore{}
	router, _ := newTestRouter(t, store)

	resp := doRequest(router, http.MethodPost, "/api/v1/match", `{"save": true}`)

	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		RunID      string        `json:"run_id"`
		Strategy   string        `json:"strategy"`
		MatchCount int           `json:"match_count"`
		Matches    []model.Match `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, matching.StrategyRuleBased, body.Strategy)
	assert.Equal(t, 1, body.MatchCount)
	assert.Len(t, store.saved, 1)
}

func TestRunMatchEndpointEmptyBody(t *testing.T) {
	router, _ := newTestRouter(t, &memMatchStore{})

	resp := doRequest(router, http.MethodPost, "/api/v1/match", "")

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestListTendersEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &memMatchStore{})

	resp := doRequest(router, http.MethodGet, "/api/v1/tenders", "")

	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		TotalCount int            `json:"total_count"`
		Tenders    []model.Tender `json:"tenders"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalCount)
}

func TestListMatchesEndpoint(t *testing.T) {
	store := &memMatchStore{saved: []model.Match{
		{TenderID: "t1", MatchedProduct: "SupportDesk", Score: 80, MatchType: model.MatchTypeAI},
	}}
	router, _ := newTestRouter(t, store)

	resp := doRequest(router, http.MethodGet, "/api/v1/matches", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"SupportDesk"`)
}

func TestMatchStatsEndpoint(t *testing.T) {
	store := &memMatchStore{saved: []model.Match{
		{TenderID: "t1", MatchedProduct: "SupportDesk", Score: 80, MatchType: model.MatchTypeAI},
	}}
	router, _ := newTestRouter(t, store)

	resp := doRequest(router, http.MethodGet, "/api/v1/matches/stats", "")

	require.Equal(t, http.StatusOK, resp.Code)

	var stats service.Stats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalMatches)
	assert.Equal(t, 1, stats.ScoreDistribution["76-100"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &memMatchStore{})

	resp := doRequest(router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := doRequest(router, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
