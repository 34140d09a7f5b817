package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-bot/internal/domain"
)

// Compile-time checks.
var (
	_ ResourceLister = (*fakeResources)(nil)
	_ Pinger         = (*fakePinger)(nil)
	_ AuditLister    = (*fakeAudit)(nil)
)

type fakeResources struct {
	list []domain.Resource
	err  error
}

func (f *fakeResources) List(context.Context) ([]domain.Resource, error) { return f.list, f.err }

func (f *fakeResources) GetState(_ context.Context, group string) (domain.State, error) {
	for _, r := range f.list {
		if r.GroupName == group {
			return r.State, nil
		}
	}
	return 0, domain.ErrNotFound("resource %q not found", group)
}

// fakeAudit pages over entries the way the store does.
type fakeAudit struct {
	entries []domain.AuditEntry
	last    domain.AuditFilter
}

func (f *fakeAudit) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	f.last = filter
	if filter.Offset >= len(f.entries) {
		return nil, nil
	}
	end := min(filter.Offset+filter.Limit, len(f.entries))
	return f.entries[filter.Offset:end], nil
}

type fakePinger struct{ err error }

func (p *fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T, res *fakeResources, db *fakePinger) http.Handler {
	t.Helper()
	return newAuditRouter(t, res, &fakeAudit{}, db)
}

func newAuditRouter(t *testing.T, res *fakeResources, audit *fakeAudit, db *fakePinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(t.Context(), NewHandler(res, audit, db, logger), logger)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	db := &fakePinger{}
	h := newTestRouter(t, &fakeResources{}, db)

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	db.err = errors.New("disk I/O error")
	rec = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListResources(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	h := newTestRouter(t, &fakeResources{list: []domain.Resource{
		{GroupName: "mc", Class: domain.ClassSimple, State: domain.StateActive, UpdatedAt: updated},
		{GroupName: "pz", Class: domain.ClassCompound, State: domain.StateHostInactive, UpdatedAt: updated},
	}}, &fakePinger{})

	rec := get(t, h, "/v1/resources")
	require.Equal(t, http.StatusOK, rec.Code)

	var body resourceList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "ACTIVE", body.Data[0].State)
	assert.Equal(t, "HOST_INACTIVE", body.Data[1].State)
	assert.Equal(t, "compound", body.Data[1].Class)
}

func TestListResources_StoreError(t *testing.T) {
	h := newTestRouter(t, &fakeResources{err: errors.New("boom")}, &fakePinger{})

	rec := get(t, h, "/v1/resources")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestGetResource(t *testing.T) {
	h := newTestRouter(t, &fakeResources{list: []domain.Resource{
		{GroupName: "mc", State: domain.StateInactive},
	}}, &fakePinger{})

	rec := get(t, h, "/v1/resources/mc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"INACTIVE"`)

	rec = get(t, h, "/v1/resources/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &fakeResources{}, &fakePinger{})

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListAudit_Pages(t *testing.T) {
	audit := &fakeAudit{}
	for _, target := range []string{"a", "b", "c"} {
		audit.entries = append(audit.entries, domain.AuditEntry{
			ID: target, Principal: "system", Action: domain.AuditGrantCommand, Target: target,
		})
	}
	h := newAuditRouter(t, &fakeResources{}, audit, &fakePinger{})

	rec := get(t, h, "/v1/audit?max_results=2&action=GRANT_COMMAND")
	require.Equal(t, http.StatusOK, rec.Code)
	var first auditList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	require.Len(t, first.Data, 2)
	require.NotEmpty(t, first.NextPageToken)
	require.NotNil(t, audit.last.Action)
	assert.Equal(t, domain.AuditGrantCommand, *audit.last.Action)

	rec = get(t, h, "/v1/audit?max_results=2&page_token="+first.NextPageToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var second auditList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	require.Len(t, second.Data, 1)
	assert.Equal(t, "c", second.Data[0].Target)
	assert.Empty(t, second.NextPageToken)
}

func TestListAudit_BadMaxResults(t *testing.T) {
	h := newTestRouter(t, &fakeResources{}, &fakePinger{})

	rec := get(t, h, "/v1/audit?max_results=many")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
