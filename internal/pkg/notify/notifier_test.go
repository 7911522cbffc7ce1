package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vodeneev/linecompare/internal/calculator"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
	"github.com/Vodeneev/linecompare/internal/pkg/odds"
)

type recordingSender struct {
	name string
	err  error

	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Name() string { return r.name }
func (r *recordingSender) Send(_ context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, title+"\n"+message)
	return r.err
}

func (r *recordingSender) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func move(team string, slot int, source string, prev, cur int, best models.BestLabel) calculator.LineMovement {
	return calculator.LineMovement{
		Key:      models.CellKey{Team1: "Yankees", Team2: "Red Sox", Slot: slot, Source: source},
		Team:     team,
		Previous: odds.American(prev),
		Current:  odds.American(cur),
		Change:   calculator.ClassifyChange(odds.American(prev), odds.American(cur)),
		Best:     best,
	}
}

func runCycles(t *testing.T, n *Notifier, cycles ...[]calculator.LineMovement) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	for i, moves := range cycles {
		n.HandleCycle(ctx, &models.Snapshot{Cycle: int64(i + 1)}, moves)
	}
	cancel()
	n.Wait()
}

func TestNotifier_OnlyImprovedBestPrices(t *testing.T) {
	rec := &recordingSender{name: "rec"}
	failing := &recordingSender{name: "broken", err: errors.New("chat not found")}
	n := NewNotifier([]Sender{failing, rec}, time.Minute)

	runCycles(t, n, []calculator.LineMovement{
		move("Yankees", 0, "betmgm", -150, -140, models.BestFavorite),
		move("Red Sox", 1, "draftkings", 130, 120, models.BestUnderdog), // worsened
		move("Red Sox", 1, "fanduel", 110, 115, models.BestNone),        // not best
	})

	msgs := rec.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1: %v", len(msgs), msgs)
	}
	want := "Best price improved (1)\nYankees vs Red Sox: Yankees -150 → -140 at betmgm (best favorite)"
	if msgs[0] != want {
		t.Errorf("message = %q, want %q", msgs[0], want)
	}
	if len(failing.messages()) != 1 {
		t.Error("a failing sender should still be attempted")
	}
}

func TestNotifier_Cooldown(t *testing.T) {
	rec := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{rec}, 10*time.Minute)
	clock := time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)

	m := []calculator.LineMovement{move("Yankees", 0, "betmgm", -150, -140, models.BestFavorite)}
	n.HandleCycle(ctx, &models.Snapshot{Cycle: 1}, m)
	clock = clock.Add(time.Minute)
	n.HandleCycle(ctx, &models.Snapshot{Cycle: 2}, m)
	clock = clock.Add(10 * time.Minute)
	n.HandleCycle(ctx, &models.Snapshot{Cycle: 3}, m)

	cancel()
	n.Wait()

	if got := len(rec.messages()); got != 2 {
		t.Errorf("got %d messages, want 2 (second suppressed by cooldown)", got)
	}
}

func TestNotifier_SkipsStale(t *testing.T) {
	rec := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{rec}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	n.HandleCycle(ctx, &models.Snapshot{Stale: true}, []calculator.LineMovement{
		move("Yankees", 0, "betmgm", -150, -140, models.BestFavorite),
	})
	cancel()
	n.Wait()
	if len(rec.messages()) != 0 {
		t.Error("stale snapshots should not alert")
	}
}

func TestFormatImprovements_Degraded(t *testing.T) {
	snap := &models.Snapshot{Status: []models.SourceStatus{
		{Source: "draftkings", OK: true},
		{Source: "fanduel", Error: "timeout"},
	}}
	_, body := FormatImprovements(snap, []calculator.LineMovement{
		move("Red Sox", 1, "betmgm", 120, 135, models.BestUnderdog),
	})
	if !strings.Contains(body, "+120 → +135") || !strings.HasSuffix(body, "Missing sources: fanduel") {
		t.Errorf("body = %q", body)
	}
}

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{"https://discord.com/api/webhooks/123/abc-def", "123", "abc-def", false},
		{"https://discordapp.com/api/webhooks/9/tok/", "9", "tok", false},
		{"https://discord.com/api/channels/1", "", "", true},
		{"::", "", "", true},
	}
	for _, tt := range tests {
		id, token, err := parseWebhookURL(tt.url)
		if (err != nil) != tt.wantErr || id != tt.wantID || token != tt.wantToken {
			t.Errorf("parseWebhookURL(%q) = %q, %q, %v", tt.url, id, token, err)
		}
	}
}
