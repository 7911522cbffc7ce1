package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Vodeneev/linecompare/internal/pkg/export"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
	"github.com/Vodeneev/linecompare/internal/pkg/performance"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
)

func sampleSnapshot(cycle int64) *models.Snapshot {
	cells := func(dk, mgm odds.Price) []models.Cell {
		return []models.Cell{{Source: "draftkings", Price: dk}, {Source: "betmgm", Price: mgm}}
	}
	s := &models.Snapshot{
		Cycle:       cycle,
		GeneratedAt: time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC),
		Reference:   "draftkings",
		Sources:     []string{"draftkings", "betmgm"},
		Status: []models.SourceStatus{
			{Source: "draftkings", OK: true, Events: 2},
			{Source: "betmgm", OK: true, Events: 2},
		},
		Events: []models.Event{
			{Key: models.EventKey("Yankees", "Red Sox"), Team1: "Yankees", Team2: "Red Sox", Rows: [2]models.Row{
				{Team: "Yankees", Cells: cells(odds.American(-150), odds.American(-140))},
				{Team: "Red Sox", Cells: cells(odds.American(130), odds.Absent)},
			}},
			{Key: models.EventKey("Cubs", "Mets"), Team1: "Cubs", Team2: "Mets", Rows: [2]models.Row{
				{Team: "Cubs", Cells: cells(odds.American(110), odds.American(115))},
				{Team: "Mets", Cells: cells(odds.American(-130), odds.American(-135))},
			}},
		},
	}
	s.Events[0].Rows[0].Cells[1].Best = models.BestFavorite
	return s
}

func newTestServer(t *testing.T, trigger func() bool) (*httptest.Server, *snapshot.Store, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := snapshot.NewStore()
	store.Publish(sampleSnapshot(7))

	router, hub := NewRouter(ctx, Options{
		Service:      "test",
		HighlightTTL: 2500 * time.Millisecond,
		PollInterval: time.Second,
		Store:        store,
		Trigger:      trigger,
		Tracker:      performance.NewTracker(),
	})
	go hub.Run(ctx)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store, hub
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv, store, _ := newTestServer(t, nil)

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/ping", http.StatusOK, "pong\n"},
		{"/health", http.StatusOK, "ok\n"},
	}
	for _, tt := range tests {
		resp := get(t, srv.URL+tt.path)
		if body := readBody(t, resp); resp.StatusCode != tt.code || body != tt.body {
			t.Errorf("%s = %d %q, want %d %q", tt.path, resp.StatusCode, body, tt.code, tt.body)
		}
	}

	stale := sampleSnapshot(8)
	stale.Stale = true
	store.Publish(stale)
	if resp := get(t, srv.URL+"/health"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("stale /health = %d, want 503", resp.StatusCode)
	}
}

func TestServer_Odds(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp := get(t, srv.URL+"/api/odds")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cycle") != "7" {
		t.Errorf("X-Cycle = %q", resp.Header.Get("X-Cycle"))
	}
	var got export.Export
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Cycle != 7 || len(got.Events) != 2 || got.HighlightTTLMs != 2500 {
		t.Errorf("export = cycle %d, %d events, ttl %d", got.Cycle, len(got.Events), got.HighlightTTLMs)
	}
	red := got.Events[0].Rows[1].Cells[1]
	if red.Price != nil || red.Display != odds.Absent.String() {
		t.Errorf("absent cell = %+v", red)
	}
	if best := got.Events[0].Rows[0].Cells[1]; best.Best != models.BestFavorite || best.Price == nil || *best.Price != -140 {
		t.Errorf("best cell = %+v", best)
	}
}

func TestServer_MatchByName(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp := get(t, srv.URL+"/api/odds/match?name=red%20sox")
	if resp.Header.Get("X-Matches-Count") != "1" {
		t.Errorf("X-Matches-Count = %q", resp.Header.Get("X-Matches-Count"))
	}
	var body struct {
		Odds export.Export `json:"odds"`
		Meta struct {
			Query string `json:"query"`
			Count int    `json:"count"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Count != 1 || len(body.Odds.Events) != 1 || body.Odds.Events[0].Team1 != "Yankees" {
		t.Errorf("body = %+v", body)
	}

	if resp := get(t, srv.URL+"/api/odds/match"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing name = %d, want 400", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/api/odds/match?name=dodgers"); resp.Header.Get("X-Matches-Count") != "0" {
		t.Errorf("no match count = %q", resp.Header.Get("X-Matches-Count"))
	}
}

func TestServer_OddsText(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	table := readBody(t, get(t, srv.URL+"/api/odds.txt"))
	if !strings.HasPrefix(table, "cycle 7 ") || !strings.Contains(table, "Red Sox") {
		t.Errorf("table = %q", table)
	}
}

func TestServer_Parse(t *testing.T) {
	var running atomic.Bool
	trigger := func() bool { return running.CompareAndSwap(false, true) }
	srv, _, _ := newTestServer(t, trigger)

	post := func() int {
		resp, err := http.Post(srv.URL+"/api/parse", "application/json", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := post(); code != http.StatusAccepted {
		t.Errorf("first trigger = %d, want 202", code)
	}
	if code := post(); code != http.StatusConflict {
		t.Errorf("busy trigger = %d, want 409", code)
	}
	if resp := get(t, srv.URL+"/api/parse"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/parse = %d, want 405", resp.StatusCode)
	}
}

func TestServer_Page(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	resp := get(t, srv.URL+"/")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	page := strings.ReplaceAll(readBody(t, resp), " ", "")
	if !strings.Contains(page, "varpollMs=1000;") || !strings.Contains(page, "varttlMs=2500;") {
		t.Error("page does not carry the refresh settings")
	}
}

func TestHub_PushesSnapshots(t *testing.T) {
	srv, store, hub := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() export.Export {
		t.Helper()
		var e export.Export
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		return e
	}

	if first := read(); first.Cycle != 7 {
		t.Errorf("initial push cycle = %d, want 7", first.Cycle)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	store.Publish(sampleSnapshot(8))
	if next := read(); next.Cycle != 8 {
		t.Errorf("pushed cycle = %d, want 8", next.Cycle)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://odds.example.com"})
	tests := []struct {
		origin, host string
		want         bool
	}{
		{"", "localhost:5000", true},
		{"https://odds.example.com", "localhost:5000", true},
		{"http://localhost:5000", "localhost:5000", true},
		{"https://evil.example.net", "localhost:5000", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q host %q = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}
