package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clambin/energyua-monitor/internal/api"
	"github.com/clambin/energyua-monitor/internal/resolver"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	snapshot *schedule.Snapshot
	dumpPath string
	dumpErr  error
	dumpDir  string
}

func (f *fakeResolver) Snapshot() (schedule.Snapshot, bool) {
	if f.snapshot == nil {
		return schedule.Snapshot{}, false
	}
	return *f.snapshot, true
}

func (f *fakeResolver) DumpRaw(dir string) (string, error) {
	f.dumpDir = dir
	return f.dumpPath, f.dumpErr
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

func TestAPI_Snapshot(t *testing.T) {
	r := fakeResolver{}
	h := api.New(&r, ok, "", slog.Default())

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	r.snapshot = &schedule.Snapshot{
		Intervals:    []schedule.Interval{{Label: "З 10:00 до 12:00"}},
		MinutesUntil: 10,
		CountdownHM:  "00:10",
		Pretrigger:   true,
	}
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var s schedule.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, "З 10:00 до 12:00", s.Intervals[0].Label)
	assert.True(t, s.Pretrigger)
}

func TestAPI_Dump(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "dumped", path: "/tmp/energyua-20240501T095000.html", wantCode: http.StatusOK, wantBody: `"file": "/tmp/energyua-20240501T095000.html"`},
		{name: "no data", err: resolver.ErrNoData, wantCode: http.StatusConflict, wantBody: resolver.ErrNoData.Error()},
		{name: "failure", err: errors.New("disk full"), wantCode: http.StatusInternalServerError, wantBody: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := fakeResolver{dumpPath: tt.path, dumpErr: tt.err}
			h := api.New(&r, ok, "/var/tmp", slog.Default())

			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/dump", nil))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
			assert.Equal(t, "/var/tmp", r.dumpDir)
		})
	}
}

func TestAPI_Routes(t *testing.T) {
	h := api.New(&fakeResolver{}, ok, "", slog.Default())

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body.String())

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/dump", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := api.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/dump", nil))

	line := buf.String()
	for _, want := range []string{"method=POST", "path=/api/dump", "status=418", "size=5", "duration_ms="} {
		assert.True(t, strings.Contains(line, want), want)
	}
}
