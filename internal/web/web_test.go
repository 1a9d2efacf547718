package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/cache"
	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/journal"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/publication"
	"github.com/pkp/pkplib/internal/schema"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/search/database"
	"github.com/pkp/pkplib/internal/site"
	"github.com/pkp/pkplib/internal/web"
	"github.com/pkp/pkplib/internal/web/handler"
)

var locales = []string{"en", "fr_CA"} //nolint:gochecknoglobals

type fixture struct {
	svc       *web.Service
	deps      *handler.Deps
	contextID uint64
}

func setup(t *testing.T) *fixture {
	t.Helper()

	schemas, err := schema.NewService()
	require.NoError(t, err)

	db := dbtest.Open(t)
	engine := database.New(db, search.NewTokenizer(3, 60), 25)

	journals, err := journal.New(db, schemas, locales, "en")
	require.NoError(t, err)

	pubs, err := publication.New(db, schemas, engine, locales, "en")
	require.NoError(t, err)

	nav, err := navigation.New(db, schemas, locales, "en")
	require.NoError(t, err)

	deps := &handler.Deps{
		DB: db,
		Site: &site.Service{
			DB:            db,
			Schema:        schemas.MustGet(schema.Site),
			Cache:         &cache.Cache{Store: cache.Nop{}, TTL: time.Minute},
			Locales:       locales,
			PrimaryLocale: "en",
		},
		Journals:     journals,
		Publications: pubs,
		Navigation:   nav,
		Search:       engine,
	}

	cfg := &config.Config{
		Title:     "PKP Library",
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		Locale:    config.Locale{Primary: "en", Supported: locales},
	}

	svc, err := web.New(cfg, deps)
	require.NoError(t, err)

	j, verrs, err := journals.Add(context.Background(), map[string]any{
		"urlPath":          "pk",
		"primaryLocale":    "en",
		"supportedLocales": []any{"en", "fr_CA"},
		"name":             map[string]any{"en": "Public Knowledge"},
		"enabled":          true,
	})
	require.NoError(t, err)
	require.Empty(t, verrs)

	return &fixture{svc: svc, deps: deps, contextID: j.ID()}
}

// do sends a request and returns the status and body.
func (f *fixture) do(t *testing.T, method, target, body string) (int, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.svc.App.Test(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v), body)

	return v
}

func TestService_CheckAliveAndMetrics(t *testing.T) {
	f := setup(t)

	status, body := f.do(t, http.MethodGet, web.CheckAlivePath, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
	assert.True(t, f.svc.Alive())

	status, body = f.do(t, http.MethodGet, web.MetricsPath, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")

	status, _ = f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, status)
}

func TestSiteSettings(t *testing.T) {
	f := setup(t)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantErrors []string
		wantTitle  string
	}{
		{
			name:       "title",
			body:       `{"title":{"en":"Public Knowledge Network"}}`,
			wantStatus: http.StatusOK,
			wantTitle:  "Public Knowledge Network",
		},
		{
			name:       "unsupported locale",
			body:       `{"title":{"xx":"Unknown"}}`,
			wantStatus: http.StatusBadRequest,
			wantErrors: []string{"title"},
		},
		{
			name:       "broken json",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPut, "/api/v1/site/settings", tc.body)
			require.Equal(t, tc.wantStatus, status, body)

			if tc.wantStatus != http.StatusOK {
				res := decode[handler.ErrorResponse](t, body)
				assert.NotEmpty(t, res.Error)
				assert.ElementsMatch(t, tc.wantErrors, res.Errors.Fields())

				return
			}

			settings := decode[map[string]any](t, body)
			assert.Equal(t, map[string]any{"en": tc.wantTitle}, settings["title"])
		})
	}

	status, body := f.do(t, http.MethodGet, "/api/v1/site/settings", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "en", decode[map[string]any](t, body)["primaryLocale"])
}

func TestNavigationMenus(t *testing.T) {
	f := setup(t)
	base := "/api/v1/contexts/" + itoa(f.contextID)

	status, body := f.do(t, http.MethodPost, base+"/navigationMenus", `{"title":"Primary","areaName":"primary"}`)
	require.Equal(t, http.StatusCreated, status, body)
	menu := decode[struct{ ID uint64 }](t, body)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "title taken", body: `{"title":"Primary"}`, wantStatus: http.StatusConflict},
		{name: "area taken", body: `{"title":"Other","areaName":"primary"}`, wantStatus: http.StatusConflict},
		{name: "empty title", body: `{"areaName":"user"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, base+"/navigationMenus", tc.body)
			assert.Equal(t, tc.wantStatus, status, body)
		})
	}

	status, body = f.do(t, http.MethodPost, base+"/navigationMenuItems",
		`{"type":"NMI_TYPE_ABOUT","titleLocaleKey":"navigation.about"}`)
	require.Equal(t, http.StatusCreated, status, body)
	about := decode[map[string]any](t, body)

	status, body = f.do(t, http.MethodPost, base+"/navigationMenuItems", `{"type":"NMI_TYPE_UNKNOWN"}`)
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, []string{"type"}, decode[handler.ErrorResponse](t, body).Errors.Fields())

	tree := `[{"itemId":` + jsonNumber(about["id"]) + `,"title":{"fr_CA":"À propos"}}]`
	status, body = f.do(t, http.MethodPut, base+"/navigationMenus/"+itoa(menu.ID)+"/tree", tree)
	require.Equal(t, http.StatusOK, status, body)

	got := decode[struct {
		Title string
		Tree  []struct {
			Title map[string]any
		}
	}](t, body)
	assert.Equal(t, "Primary", got.Title)
	require.Len(t, got.Tree, 1)
	assert.Equal(t, "À propos", got.Tree[0].Title["fr_CA"])

	status, _ = f.do(t, http.MethodGet, "/api/v1/contexts/999/navigationMenus/"+itoa(menu.ID), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodGet, base+"/navigationMenus", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, decode[map[string]any](t, body)["itemsMax"])

	status, body = f.do(t, http.MethodGet, "/pk/navigation/primary", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `<a href="/pk/about">About</a>`)

	status, body = f.do(t, http.MethodGet, "/pk/navigation/primary?locale=fr_CA", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `<a href="/pk/about">À propos</a>`)

	status, _ = f.do(t, http.MethodGet, "/pk/navigation/footer", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodDelete, base+"/navigationMenuItems/"+jsonNumber(about["id"]), "")
	assert.Equal(t, http.StatusNoContent, status)

	status, body = f.do(t, http.MethodGet, "/pk/navigation/primary", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "About")
}

func TestCustomPage(t *testing.T) {
	f := setup(t)
	base := "/api/v1/contexts/" + itoa(f.contextID)

	status, body := f.do(t, http.MethodPost, base+"/navigationMenuItems",
		`{"type":"NMI_TYPE_CUSTOM","path":"policies","title":{"en":"Policies"},"content":{"en":"Open access"}}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = f.do(t, http.MethodGet, "/pk/policies", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "<h1>Policies</h1>")
	assert.Contains(t, body, "Open access")
	assert.Contains(t, body, `<a href="/pk">Public Knowledge</a>`)
	assert.Contains(t, body, `<span class="current">Policies</span>`)

	status, _ = f.do(t, http.MethodGet, "/pk/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/nowhere/policies", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPublicationsAndSearch(t *testing.T) {
	f := setup(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/publications", `{
		"submissionId": 7, "contextId": 1, "status": 3, "datePublished": "2024-05-01",
		"title": {"en": "Open Science Futures"},
		"authors": [{"givenName": "Ada", "familyName": "Byron"}]
	}`)
	require.Equal(t, http.StatusCreated, status, body)
	id := jsonNumber(decode[map[string]any](t, body)["id"])

	status, body = f.do(t, http.MethodPost, "/api/v1/publications", `{"submissionId": 8, "contextId": 1}`)
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.NotEmpty(t, decode[handler.ErrorResponse](t, body).Errors)

	testCases := []struct {
		name       string
		target     string
		wantStatus int
		wantItems  int
	}{
		{name: "published in context", target: "/api/v1/publications?contextId=1&status=3", wantStatus: 200, wantItems: 1},
		{name: "queued", target: "/api/v1/publications?status=1", wantStatus: 200},
		{name: "bad status", target: "/api/v1/publications?status=x", wantStatus: 400},
		{name: "search", target: "/api/v1/search?query=science", wantStatus: 200, wantItems: 1},
		{name: "search by author", target: "/api/v1/search?authors=byron", wantStatus: 200, wantItems: 1},
		{name: "search other words", target: "/api/v1/search?query=chemistry", wantStatus: 200},
		{name: "empty search", target: "/api/v1/search", wantStatus: 400},
		{name: "bad date", target: "/api/v1/search?query=science&dateFrom=May", wantStatus: 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodGet, tc.target, "")
			require.Equal(t, tc.wantStatus, status, body)

			if status != http.StatusOK {
				return
			}

			res := decode[struct {
				ItemsMax int64
				Items    []map[string]any
			}](t, body)
			assert.EqualValues(t, tc.wantItems, res.ItemsMax)
			assert.Len(t, res.Items, tc.wantItems)
		})
	}

	status, body = f.do(t, http.MethodGet, "/api/v1/search?query=science", "")
	require.Equal(t, http.StatusOK, status)
	hit := decode[struct {
		Items []struct {
			SubmissionID uint64
			Publication  map[string]any
		}
	}](t, body).Items[0]
	assert.EqualValues(t, 7, hit.SubmissionID)
	assert.Equal(t, map[string]any{"en": "Open Science Futures"}, hit.Publication["title"])

	status, body = f.do(t, http.MethodGet, "/api/v1/search?query=science&perPage=100000000", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, handler.MaxPerPage, decode[map[string]any](t, body)["perPage"])

	status, body = f.do(t, http.MethodPut, "/api/v1/publications/"+id, `{"title":{"en":"Closed Chemistry"}}`)
	require.Equal(t, http.StatusOK, status, body)

	status, body = f.do(t, http.MethodGet, "/api/v1/search?query=chemistry", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, decode[map[string]any](t, body)["itemsMax"])

	status, _ = f.do(t, http.MethodDelete, "/api/v1/publications/"+id, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/publications/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/publications/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// jsonNumber formats an id decoded from json.
func jsonNumber(v any) string {
	b, _ := json.Marshal(v)

	return string(b)
}
