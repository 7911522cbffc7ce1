// Package notify alerts operators when a source starts offering the best price
// on a team and that price just improved.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Vodeneev/linecompare/internal/calculator"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

// Sender delivers one notification to a channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

type alert struct {
	title   string
	message string
}

// Notifier turns cycle results into at most one alert per cycle and delivers
// it to every sender from a background queue, so a slow chat never delays a cycle.
type Notifier struct {
	senders  []Sender
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[models.CellKey]time.Time

	queue chan alert
	wg    sync.WaitGroup
}

func NewNotifier(senders []Sender, cooldown time.Duration) *Notifier {
	return &Notifier{
		senders:  senders,
		cooldown: cooldown,
		now:      time.Now,
		lastSent: make(map[models.CellKey]time.Time),
		queue:    make(chan alert, 100),
	}
}

// Start runs the delivery worker until ctx is done; queued alerts are flushed first.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case a := <-n.queue:
				n.dispatch(ctx, a)
			case <-ctx.Done():
				n.drain()
				return
			}
		}
	}()
}

// Wait blocks until the worker has exited.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		select {
		case a := <-n.queue:
			n.dispatch(ctx, a)
		default:
			return
		}
	}
}

// HandleCycle queues an alert for best-price cells that improved this cycle.
// Cells alerted within the cooldown are skipped.
func (n *Notifier) HandleCycle(_ context.Context, snap *models.Snapshot, moves []calculator.LineMovement) {
	if len(n.senders) == 0 || snap == nil || snap.Stale {
		return
	}

	now := n.now()
	var picked []calculator.LineMovement

	n.mu.Lock()
	for _, m := range moves {
		if m.Change != models.ChangeImproved || m.Best == models.BestNone {
			continue
		}
		if last, ok := n.lastSent[m.Key]; ok && now.Sub(last) < n.cooldown {
			continue
		}
		n.lastSent[m.Key] = now
		picked = append(picked, m)
	}
	for k, t := range n.lastSent {
		if now.Sub(t) >= n.cooldown {
			delete(n.lastSent, k)
		}
	}
	n.mu.Unlock()

	if len(picked) == 0 {
		return
	}

	title, message := FormatImprovements(snap, picked)
	select {
	case n.queue <- alert{title: title, message: message}:
	default:
		slog.Warn("Notification queue full, dropping alert", "cycle_id", snap.Cycle, "cells", len(picked))
	}
}

func (n *Notifier) dispatch(ctx context.Context, a alert) {
	for _, s := range n.senders {
		if err := s.Send(ctx, a.title, a.message); err != nil {
			slog.Error("Notification sender failed", "sender", s.Name(), "error", err)
			continue
		}
		slog.Debug("Notification sent", "sender", s.Name(), "title", a.title)
	}
}

// FormatImprovements renders one alert listing every improved best price.
func FormatImprovements(snap *models.Snapshot, moves []calculator.LineMovement) (string, string) {
	title := fmt.Sprintf("Best price improved (%d)", len(moves))

	var sb strings.Builder
	for _, m := range moves {
		kind := "underdog"
		if m.Best == models.BestFavorite {
			kind = "favorite"
		}
		fmt.Fprintf(&sb, "%s vs %s: %s %s → %s at %s (best %s)\n",
			m.Key.Team1, m.Key.Team2, m.Team, m.Previous, m.Current, m.Key.Source, kind)
	}
	if snap != nil && snap.Degraded() {
		var failed []string
		for _, st := range snap.Status {
			if !st.OK {
				failed = append(failed, st.Source)
			}
		}
		fmt.Fprintf(&sb, "Missing sources: %s\n", strings.Join(failed, ", "))
	}
	return title, strings.TrimRight(sb.String(), "\n")
}
