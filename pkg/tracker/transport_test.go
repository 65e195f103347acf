package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
}

func newRecordingServer(t *testing.T, status int, reply string) (*httptest.Server, <-chan recordedRequest) {
	t.Helper()
	ch := make(chan recordedRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		ch <- recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), ContentType: r.Header.Get("Content-Type"), Body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func TestHTTPTransportTrack(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, `{"success":true,"message":"Visit tracked successfully","visitorId":"v1"}`)
	tp := NewHTTPTransport(srv.URL+"/", nil, nil)

	resp, err := tp.Track(context.Background(), TrackRequest{Page: "/", SessionID: "s1", IsBounce: true})
	require.NoError(t, err)
	assert.Equal(t, &TrackResponse{Success: true, Message: "Visit tracked successfully", VisitorID: "v1"}, resp)

	got := <-reqs
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/visitors/track", got.Path)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "s1", got.Body["sessionId"])
	assert.Nil(t, got.Body["userId"])
}

func TestHTTPTransportUpdates(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, `{"success":true}`)
	tp := NewHTTPTransport(srv.URL, srv.Client(), nil)
	ctx := context.Background()

	require.NoError(t, tp.Update(ctx, "v 1", UpdateRequest{TimeOnPage: 12, SessionTime: 40}))
	got := <-reqs
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/api/visitors/update/v%201", got.Path)
	assert.EqualValues(t, 12, got.Body["timeOnPage"])
	assert.Equal(t, false, got.Body["isBounce"])
	assert.NotContains(t, got.Body, "converted")
	assert.NotContains(t, got.Body, "conversionType")

	require.NoError(t, tp.UpdateSession(ctx, "s1", 40))
	got = <-reqs
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/api/visitors/update-session/s1", got.Path)
	assert.Equal(t, map[string]any{"sessionTime": float64(40)}, got.Body)
}

func TestHTTPTransportStatusError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusNotFound, `{"ok":0,"code":404,"message":"Visit not found"}`)
	tp := NewHTTPTransport(srv.URL, nil, nil)

	err := tp.Update(context.Background(), "missing", UpdateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPTransportBeacon(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, `{"success":true}`)
	tp := NewHTTPTransport(srv.URL, nil, nil)

	tp.Beacon("v1", UpdateRequest{TimeOnPage: 3, SessionTime: 9, Converted: true, ConversionType: "click"})

	select {
	case got := <-reqs:
		assert.Equal(t, http.MethodPost, got.Method)
		assert.Equal(t, "/api/visitors/update/v1", got.Path)
		assert.Equal(t, "text/plain;charset=UTF-8", got.ContentType)
		assert.Equal(t, "click", got.Body["conversionType"])
	case <-time.After(5 * time.Second):
		t.Fatal("beacon not delivered")
	}
}

func TestTrackerOverHTTP(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"visitorId":"v9"}`)
	}))
	defer srv.Close()

	tr := New(NewHTTPTransport(srv.URL, nil, nil))
	ctx := context.Background()
	tr.Navigate(ctx, "/", "Home")
	tr.Hidden(ctx)

	assert.Equal(t, "v9", tr.CurrentVisitID())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/visitors/track",
		"PUT /api/visitors/update/v9",
		"PUT /api/visitors/update-session/" + tr.SessionID(),
	}, paths)
}
