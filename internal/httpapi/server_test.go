package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryan-besnyi/siteindex/cache"
	"github.com/bryan-besnyi/siteindex/cache/codec"
	"github.com/bryan-besnyi/siteindex/cache/provider/memory"
	"github.com/bryan-besnyi/siteindex/config"
	"github.com/bryan-besnyi/siteindex/internal/linkcheck"
	"github.com/bryan-besnyi/siteindex/internal/listing"
	"github.com/bryan-besnyi/siteindex/internal/store"
)

const (
	testToken      = "test-admin-token"
	selectListings = "SELECT id, title, category, url, partition, created_at, updated_at FROM listings"
)

type env struct {
	srv  *Server
	mock sqlmock.Sqlmock
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mem := memory.New(0)
	t.Cleanup(func() { mem.Close(context.Background()) })

	idx, err := cache.New(cache.Options[[]listing.Listing]{
		Provider: mem,
		Codec:    codec.JSON[[]listing.Listing]{},
	})
	require.NoError(t, err)
	counts, err := cache.New(cache.Options[[]listing.Counts]{
		Provider: mem,
		Codec:    codec.JSON[[]listing.Counts]{},
	})
	require.NoError(t, err)

	log := zap.NewNop()
	st := store.New(db, idx, counts, log,
		store.WithIDGenerator(func() string { return "new-id" }),
		store.WithClock(func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
	checker := linkcheck.New(linkcheck.Config{BatchEvery: time.Millisecond}, nil, log)

	cfg := &config.Config{Admin: config.AdminConfig{Token: testToken}}
	return &env{
		srv:  New(cfg, st, idx, &cache.Stats{}, checker, log),
		mock: mock,
	}
}

func (e *env) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func listingRows(ls ...listing.Listing) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "category", "url", "partition", "created_at", "updated_at"})
	for _, l := range ls {
		rows.AddRow(l.ID, l.Title, l.Category, l.URL, l.Partition, l.CreatedAt, l.UpdatedAt)
	}
	return rows
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectPing()

	rec := e.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthDatabaseDown(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectPing().WillReturnError(assert.AnError)

	rec := e.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp["status"])
	assert.Equal(t, "unreachable", resp["database"])
}

func TestListListings(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery(selectListings+" WHERE partition = $1 ORDER BY category ASC, title ASC").
		WithArgs(listing.PartitionCanada).
		WillReturnRows(listingRows(listing.Listing{ID: "a", Title: "Admissions", Category: "A", URL: "https://canadacollege.edu/admissions", Partition: listing.PartitionCanada}))

	rec := e.do(http.MethodGet, "/api/listings?partition=CAN", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ls []listing.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ls))
	require.Len(t, ls, 1)
	assert.Equal(t, "Admissions", ls[0].Title)
}

func TestListListingsRejectsBadParams(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/listings?partition=NOPE", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/listings?category=lowercase", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorRenderedOnce(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/listings?partition=NOPE", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	// a handler error must produce exactly one JSON body
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "message")
}

func TestListPartitions(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/partitions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ps []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	assert.Equal(t, []string{"CAN", "CSM", "SKY", "DO"}, ps)
}

func TestAdminGate(t *testing.T) {
	e := newEnv(t)
	body := `{"title":"Bookstore","category":"B","url":"https://smccd.edu/bookstore","partition":"DO"}`

	rec := e.do(http.MethodPost, "/api/listings", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/api/listings", body, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGateFailsClosedWithoutToken(t *testing.T) {
	e := newEnv(t)
	e.srv.cfg.Admin.Token = ""

	rec := e.do(http.MethodGet, "/admin/cache/stats", "", "any")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateListing(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectExec("INSERT INTO listings (id,title,category,url,partition,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"title":"Bookstore","category":"B","url":"https://smccd.edu/bookstore","partition":"DO"}`
	rec := e.do(http.MethodPost, "/api/listings", body, testToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var l listing.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, "new-id", l.ID)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestCreateListingValidation(t *testing.T) {
	e := newEnv(t)
	cases := map[string]string{
		"missing_title": `{"category":"B","url":"https://smccd.edu","partition":"DO"}`,
		"bad_category":  `{"title":"x","category":"bb","url":"https://smccd.edu","partition":"DO"}`,
		"bad_url":       `{"title":"x","category":"B","url":"not a url","partition":"DO"}`,
		"bad_partition": `{"title":"x","category":"B","url":"https://smccd.edu","partition":"XX"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/listings", body, testToken)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDeleteListingNotFound(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery("DELETE FROM listings WHERE id = $1 RETURNING category, partition").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"category", "partition"}))

	rec := e.do(http.MethodDelete, "/api/listings/missing", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheStats(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/admin/cache/stats", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Contains(t, snap, "hits")
	assert.Contains(t, snap, "misses")
}

func TestCacheInvalidate(t *testing.T) {
	e := newEnv(t)

	// seed one cached read
	e.mock.ExpectQuery(selectListings + " ORDER BY category ASC, title ASC").
		WillReturnRows(listingRows())
	rec := e.do(http.MethodGet, "/api/listings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/cache", `{"pattern":"idx:*"}`, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp invalidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.InvalidatedCount)
}

func TestCacheInvalidateSelectorErrors(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodDelete, "/admin/cache", `{}`, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodDelete, "/admin/cache", `{"key":"a","pattern":"b*"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheKeysInspector(t *testing.T) {
	e := newEnv(t)

	e.mock.ExpectQuery(selectListings + " ORDER BY category ASC, title ASC").
		WillReturnRows(listingRows())
	rec := e.do(http.MethodGet, "/api/listings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/admin/cache/keys?pattern=idx:*", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []cache.KeyInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "idx:::", infos[0].Key)
	assert.Greater(t, infos[0].TTL, time.Duration(0))
}

func TestLatestLinkCheckEmpty(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery("SELECT id, started_at, finished_at, checked, broken FROM link_runs ORDER BY started_at DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "finished_at", "checked", "broken"}))

	rec := e.do(http.MethodGet, "/admin/linkcheck", "", testToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	ts := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	e.mock.ExpectQuery(selectListings + " ORDER BY category ASC, title ASC").
		WillReturnRows(listingRows(listing.Listing{
			ID: "a", Title: "Admissions", Category: "A",
			URL: "https://smccd.edu/admissions", Partition: listing.PartitionDistrict,
			CreatedAt: ts, UpdatedAt: ts,
		}))

	rec := e.do(http.MethodGet, "/api/export", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,title,category,url,partition,updated_at", lines[0])
	assert.Contains(t, lines[1], "Admissions")
	assert.Contains(t, lines[1], "DO")
}
