package opsserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bilirumine/engine/internal/state"
)

func newTestServer() *Server {
	return New(Deps{Addr: ":0", Sets: state.NewSets()})
}

func TestHealthzReportsOK(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRingUnknownNameIsNotFound(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ring/nope", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulerUnknownStageIsNotFound(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scheduler/nope", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBroadcastDropsOnFullSubscriberBufferWithoutBlocking(t *testing.T) {
	s := newTestServer()
	ch := make(chan Event) // unbuffered, never drained
	s.mu.Lock()
	s.subscribers["client"] = ch
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.Broadcast(Event{Stage: "extend", Kind: "test"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full subscriber channel")
	}
}
