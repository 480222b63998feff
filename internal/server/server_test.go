package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/internal/models"
	"github.com/royteeuwen/slice/monitoring"
	"github.com/royteeuwen/slice/resource/memory"
)

const content = `
name: Test site
content:
  home:
    title: Home
    teasers:
      first:
        title: First
`

type broken struct{}

func newServer(t *testing.T) *Server {
	t.Helper()
	tree, err := memory.Load(strings.NewReader(content))
	require.NoError(t, err)

	c := slice.New()
	require.NoError(t, models.Register(c))
	require.NoError(t, c.Register(func() (*broken, error) {
		return nil, assert.AnError
	}, slice.WithLifetime(slice.Transient)))
	require.NoError(t, c.Build())

	mapper := models.Mapper(c)
	mapper.Alias("broken", slice.KeyOf[*broken]())

	s, err := New(c, mapper, tree)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRender(t *testing.T) {
	s := newServer(t)
	rr := get(t, s.Handler(), "/models/page/content/home")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var page models.Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, "Home", page.Title)
	assert.Equal(t, "Test site", page.Site.Name)
	require.Len(t, page.Teasers, 1)
	assert.Equal(t, "/content/home/teasers/first", page.Teasers[0].Path)
}

func TestRender_Errors(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"unknown model", "/models/article/content/home", http.StatusNotFound},
		{"missing page", "/models/page/content/missing", http.StatusNotFound},
		{"failing model", "/models/broken/content/home", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, h, tt.target)
			assert.Equal(t, tt.code, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStats(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/models/page/content/home").Code)
	s.Monitor().Rollover()
	require.Equal(t, http.StatusOK, get(t, h, "/models/teaser/content/home/teasers/first").Code)

	rr := get(t, h, "/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats struct {
		Live   []monitoring.Report `json:"live"`
		Totals []monitoring.Report `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))

	require.Len(t, stats.Live, 1)
	assert.Equal(t, "*models.Teaser", stats.Live[0].Model)

	require.Len(t, stats.Totals, 1)
	assert.Equal(t, "*models.Page", stats.Totals[0].Model)
	require.Len(t, stats.Totals[0].SubModels, 1)
	assert.Equal(t, "*models.Teaser", stats.Totals[0].SubModels[0].Model)
}

func TestMetrics(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/models/page/content/home").Code)

	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `slice_model_invocations_total{chain="*models.Page",model="*models.Page"} 1`)
	assert.Contains(t, body, "slice_render_duration_seconds_count")
}

func TestHealth(t *testing.T) {
	rr := get(t, newServer(t).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
