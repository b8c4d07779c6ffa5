package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartseg/api/internal/store"
)

type stubLister struct {
	rows  []store.Detection
	err   error
	limit int
}

func (s *stubLister) Recent(_ context.Context, limit int) ([]store.Detection, error) {
	s.limit = limit
	return s.rows, s.err
}

func TestHistory(t *testing.T) {
	l := &stubLister{rows: []store.Detection{{RequestID: "r1", Source: "http", DetectedObjects: []string{"can"}}}}
	rec := httptest.NewRecorder()
	History(l).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, l.limit)
	var body struct {
		Items []store.Detection `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "r1", body.Items[0].RequestID)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	History(&stubLister{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestHistory_Errors(t *testing.T) {
	rec := httptest.NewRecorder()
	History(&stubLister{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	History(&stubLister{err: errors.New("db down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "db down", decodeError(t, rec))

	rec = httptest.NewRecorder()
	History(&stubLister{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/history", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
