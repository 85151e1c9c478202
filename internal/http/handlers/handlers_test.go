package handlers

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/preston-bernstein/matchday-service/internal/app/fetch"
	"github.com/preston-bernstein/matchday-service/internal/app/selection"
	"github.com/preston-bernstein/matchday-service/internal/domain/matches"
	"github.com/preston-bernstein/matchday-service/internal/poller"
	"github.com/preston-bernstein/matchday-service/internal/store"
	"github.com/preston-bernstein/matchday-service/internal/testutil"
	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

var (
	now   = testutil.MustParseRFC3339("2025-01-16T15:00:00Z")
	today = timeutil.MustDateKey("2025-01-16")
)

type stubSelection struct {
	mu       sync.Mutex
	state    selection.State
	window   []timeutil.DateKey
	entries  map[timeutil.DateKey]store.Entry
	err      error
	selected []timeutil.DateKey
	refresh  int
	retry    int
	updates  chan selection.State
}

func newStubSelection() *stubSelection {
	return &stubSelection{
		state:   selection.State{Session: "s1", Seq: 2, Phase: selection.PhaseReady, Date: today, Index: 2},
		window:  timeutil.BuildWindow(today, 2),
		entries: map[timeutil.DateKey]store.Entry{},
		updates: make(chan selection.State, 4),
	}
}

func (s *stubSelection) State() selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubSelection) Window() []timeutil.DateKey { return s.window }

func (s *stubSelection) Today() timeutil.DateKey { return today }

func (s *stubSelection) SelectDate(_ context.Context, date timeutil.DateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append(s.selected, date)
	if s.err != nil {
		return s.err
	}
	s.state.Date = date
	s.state.Index = timeutil.IndexOf(s.window, date)
	return nil
}

func (s *stubSelection) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh++
	return s.err
}

func (s *stubSelection) Retry(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry++
	return s.err
}

func (s *stubSelection) MatchesFor(date timeutil.DateKey) (store.Entry, bool) {
	e, ok := s.entries[date]
	return e, ok
}

func (s *stubSelection) Subscribe() (<-chan selection.State, func()) {
	s.updates <- s.State()
	return s.updates, func() {}
}

func newTestRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health)
	r.HandleFunc("/ready", h.Ready)
	r.HandleFunc("/window", h.Window)
	r.HandleFunc("/selection", h.Selection)
	r.HandleFunc("/selection/events", h.SelectionEvents)
	r.HandleFunc("/selection/refresh", h.Refresh)
	r.HandleFunc("/selection/retry", h.Retry)
	r.HandleFunc("/selection/{date}", h.SelectDate)
	r.HandleFunc("/matches/{date}", h.Matches)
	return r
}

func TestHealth(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/health", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	testutil.DecodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
}

func TestHealthShuttingDownReturnsServiceUnavailable(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	rr := testutil.ServeRequest(http.HandlerFunc(h.Health), req.WithContext(ctx))

	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	var resp map[string]string
	testutil.DecodeJSON(t, rr, &resp)
	if resp["error"] != "shutting down" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestReadyReflectsPollerStatus(t *testing.T) {
	status := poller.Status{}
	h := NewHandler(newStubSelection(), nil, func() poller.Status { return status })

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/ready", nil)
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	status = poller.Status{ConsecutiveFailures: 3, LastSuccess: now, LastError: "upstream down"}
	rr = testutil.Serve(newTestRouter(h), http.MethodGet, "/ready", nil)
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	if !strings.Contains(rr.Body.String(), "upstream down") {
		t.Fatalf("expected last error in body, got %s", rr.Body.String())
	}

	status = poller.Status{LastSuccess: now}
	rr = testutil.Serve(newTestRouter(h), http.MethodGet, "/ready", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestReadyWithoutPoller(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)
	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/ready", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestWindow(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/window", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp WindowResponse
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Today != today || len(resp.Dates) != 5 || resp.SelectedIndex != 2 {
		t.Fatalf("unexpected window %+v", resp)
	}
	if resp.Dates[0].String() != "2025-01-14" {
		t.Fatalf("expected ascending dates, got %v", resp.Dates)
	}
}

func TestSelectionReturnsState(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/selection", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var st selection.State
	testutil.DecodeJSON(t, rr, &st)
	if st.Phase != selection.PhaseReady || st.Date != today || st.Session != "s1" {
		t.Fatalf("unexpected state %+v", st)
	}
	if !strings.Contains(rr.Body.String(), `"phase":"ready"`) {
		t.Fatalf("expected phase encoded as text, got %s", rr.Body.String())
	}
}

func TestSelectDate(t *testing.T) {
	sel := newStubSelection()
	h := NewHandler(sel, nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodPut, "/selection/2025-01-17", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var st selection.State
	testutil.DecodeJSON(t, rr, &st)
	if st.Date.String() != "2025-01-17" || st.Index != 3 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestSelectDateRejectsBadDate(t *testing.T) {
	sel := newStubSelection()
	h := NewHandler(sel, nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodPut, "/selection/17-01-2025", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	if len(sel.selected) != 0 {
		t.Fatalf("expected controller untouched")
	}
}

func TestControllerErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not initialized", err: selection.ErrNotInitialized, want: http.StatusServiceUnavailable},
		{name: "outside window", err: selection.ErrDateOutsideWindow, want: http.StatusNotFound},
		{name: "total failure", err: &fetch.FetchError{Date: today}, want: http.StatusBadGateway},
		{name: "cancelled", err: context.Canceled, want: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := newStubSelection()
			sel.err = tt.err
			logger, buf := testutil.NewBufferLogger()
			h := NewHandler(sel, logger, nil)

			rr := testutil.Serve(newTestRouter(h), http.MethodPut, "/selection/2025-01-15", nil)
			testutil.AssertStatus(t, rr, tt.want)
			if !strings.Contains(buf.String(), "select date failed") {
				t.Fatalf("expected failure logged, got %s", buf.String())
			}
		})
	}
}

func TestRefreshAndRetry(t *testing.T) {
	sel := newStubSelection()
	h := NewHandler(sel, nil, nil)
	router := newTestRouter(h)

	testutil.AssertStatus(t, testutil.Serve(router, http.MethodPost, "/selection/refresh", nil), http.StatusOK)
	testutil.AssertStatus(t, testutil.Serve(router, http.MethodPost, "/selection/retry", nil), http.StatusOK)
	if sel.refresh != 1 || sel.retry != 1 {
		t.Fatalf("expected one refresh and one retry, got %d and %d", sel.refresh, sel.retry)
	}

	sel.err = &fetch.FetchError{Date: today}
	rr := testutil.Serve(router, http.MethodPost, "/selection/refresh", nil)
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
}

func TestMatchesNeverFetched(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/matches/2025-01-18", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp MatchesResponse
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Fetched || resp.ExpiresAt != nil || resp.Matches == nil || len(resp.Matches) != 0 {
		t.Fatalf("expected unfetched empty response, got %+v", resp)
	}
}

func TestMatchesReportsStaleness(t *testing.T) {
	sel := newStubSelection()
	sel.entries[today] = store.Entry{
		Date:      today,
		Matches:   []matches.MatchRecord{testutil.SampleMatch("m1", "1H", now)},
		ExpiresAt: now.Add(time.Minute),
		StoredAt:  now,
	}
	h := NewHandler(sel, nil, nil)
	h.now = func() time.Time { return now }

	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/matches/2025-01-16", nil)
	var resp MatchesResponse
	testutil.DecodeJSON(t, rr, &resp)
	if !resp.Fetched || resp.Stale || resp.Count != 1 || resp.Matches[0].ID != "m1" {
		t.Fatalf("unexpected fresh response %+v", resp)
	}

	h.now = func() time.Time { return now.Add(2 * time.Minute) }
	rr = testutil.Serve(newTestRouter(h), http.MethodGet, "/matches/2025-01-16", nil)
	testutil.DecodeJSON(t, rr, &resp)
	if !resp.Stale {
		t.Fatalf("expected stale once past expiry")
	}
}

func TestMatchesRejectsBadDate(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)
	rr := testutil.Serve(newTestRouter(h), http.MethodGet, "/matches/tomorrow", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestSelectionEventsStreamsState(t *testing.T) {
	sel := newStubSelection()
	h := NewHandler(sel, nil, nil)
	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()
	defer h.CloseStreams()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/selection/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %s", ct)
	}

	next := sel.State()
	next.Seq = 3
	next.Phase = selection.PhaseLoading
	sel.updates <- next

	reader := bufio.NewReader(resp.Body)
	var events []string
	for len(events) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			events = append(events, line)
		}
	}
	if !strings.Contains(events[0], `"phase":"ready"`) || !strings.Contains(events[1], `"phase":"loading"`) {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestCloseStreamsEndsEventStream(t *testing.T) {
	h := NewHandler(newStubSelection(), nil, nil)
	h.CloseStreams()
	h.CloseStreams()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/selection/events", nil)
	done := make(chan struct{})
	go func() {
		h.SelectionEvents(rr, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected stream to end after CloseStreams")
	}
}
