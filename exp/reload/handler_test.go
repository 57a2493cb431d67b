package reload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyanchen/swappable"
)

func TestHandlerReloadAndStatus(t *testing.T) {
	s := newDocSingleton(t)
	var reject atomic.Bool
	hook := func(*fileDoc) bool { return !reject.Load() }

	srv := httptest.NewServer(Handler("/admin", NewTrigger[*fileDoc](s), hook))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/reload?key=deploy", "application/json", nil)
	require.NoError(t, err)
	var result Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deploy", result.Key)
	assert.Equal(t, uint64(2), result.Generation)

	reject.Store(true)
	resp, err = http.Post(srv.URL+"/admin/reload", "application/json", nil)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "hook_rejected", raw["outcome"])
	assert.Equal(t, "http", raw["key"])

	resp, err = http.Get(srv.URL + "/admin/status")
	require.NoError(t, err)
	var status swappable.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "doc", status.Name)
	assert.Equal(t, uint64(2), status.Generation)

	resp, err = http.Get(srv.URL + "/admin/reload")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandlerReportsConstructionFailure(t *testing.T) {
	var fail atomic.Bool
	s, err := swappable.New(swappable.Definition[struct{}, *fileDoc]{
		New: func() (*fileDoc, error) {
			if fail.Load() {
				return nil, assert.AnError
			}
			return &fileDoc{}, nil
		},
	})
	require.NoError(t, err)
	fail.Store(true)

	h := Handler("", NewTrigger[*fileDoc](s), nil)
	req := httptest.NewRequest(http.MethodPost, "/reload", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, assert.AnError.Error())
	assert.Equal(t, swappable.Failed, body.Result.Outcome)
}

func TestHandlerRootsPrefix(t *testing.T) {
	s := newDocSingleton(t)
	trigger := NewTrigger[*fileDoc](s)

	for _, prefix := range []string{"admin", "/admin/", "admin/"} {
		var h http.Handler
		require.NotPanics(t, func() { h = Handler(prefix, trigger, nil) }, prefix)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code, prefix)
	}
}

func TestHandlerReportsAbandonedRequest(t *testing.T) {
	s := newDocSingleton(t)
	h := Handler("/admin", NewTrigger[*fileDoc](s), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, context.Canceled.Error())
	assert.Equal(t, uint64(1), s.Generation())
}
