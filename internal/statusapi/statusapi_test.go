package statusapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_RecordsHistoryAndServesJSON(t *testing.T) {
	s := NewServer("")
	s.Emit(NewEvent(EventRunStarted).WithData("files", 3))
	s.Emit(NewEvent(EventRunCompleted))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	s.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var history []Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, EventRunStarted, history[0].Type)
	assert.Equal(t, float64(3), history[0].Data["files"])
}

func TestHandleStatus_ReportsSubscriberAndEventCounts(t *testing.T) {
	s := NewServer("")
	s.Emit(NewEvent(EventRunStarted))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	s.router().ServeHTTP(rr, req)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.EqualValues(t, 1, status["events"])
}

func TestHandleEvents_StreamsEmittedEventsAsSSE(t *testing.T) {
	s := NewServer("")
	srv := httptest.NewServer(s.router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Give the handler a moment to register its subscriber before emitting.
	time.Sleep(50 * time.Millisecond)
	s.Emit(NewEvent(EventTaskCompleted).WithData("task", "file:a.go"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var event Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, EventTaskCompleted, event.Type)
}

func TestEmit_DropsForFullSubscriberBufferWithoutBlocking(t *testing.T) {
	s := NewServer("")
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for i := 0; i < 200; i++ {
		s.Emit(NewEvent(EventTaskCompleted))
	}
	// Emit must not block even though ch's 100-slot buffer is full.
	assert.True(t, true)
}
