package parserutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

type funcProducer struct {
	name string
	fn   func(ctx context.Context) (*models.RawExtraction, error)
}

func (f funcProducer) Name() string { return f.name }
func (f funcProducer) FetchRaw(ctx context.Context) (*models.RawExtraction, error) {
	return f.fn(ctx)
}

func TestFetchAll_IsolatesFailures(t *testing.T) {
	ok := funcProducer{"draftkings", func(context.Context) (*models.RawExtraction, error) {
		return &models.RawExtraction{Teams: []string{" A ", "B"}, Layout: models.MoneylineLayout}, nil
	}}
	failing := funcProducer{"betmgm", func(context.Context) (*models.RawExtraction, error) {
		return nil, errors.New("blocked")
	}}
	panicking := funcProducer{"fanduel", func(context.Context) (*models.RawExtraction, error) {
		panic("selector changed")
	}}
	slow := funcProducer{"slow", func(ctx context.Context) (*models.RawExtraction, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	empty := funcProducer{"empty", func(context.Context) (*models.RawExtraction, error) {
		return nil, nil
	}}

	var mu sync.Mutex
	failed := map[string]bool{}
	res := FetchAll(context.Background(), []parsers.Producer{ok, failing, panicking, slow, empty}, FetchOptions{
		Timeout: 50 * time.Millisecond,
		OnError: func(p parsers.Producer, err error) {
			mu.Lock()
			failed[p.Name()] = true
			mu.Unlock()
		},
	})

	if len(res) != 5 {
		t.Fatalf("got %d results, want 5", len(res))
	}
	if r := res["draftkings"]; r.Err != nil || r.Raw == nil || r.Raw.Source != "draftkings" {
		t.Errorf("draftkings result = %+v", r)
	} else if r.Raw.Teams[0] != "A" {
		t.Errorf("team names not sanitized: %q", r.Raw.Teams)
	}
	for _, name := range []string{"betmgm", "fanduel", "slow", "empty"} {
		r := res[name]
		var ee *parsers.ExtractionError
		if !errors.As(r.Err, &ee) || ee.Source != name {
			t.Errorf("%s err = %v, want ExtractionError", name, r.Err)
		}
		if r.Raw != nil {
			t.Errorf("%s should carry no data", name)
		}
		if !failed[name] {
			t.Errorf("OnError not called for %s", name)
		}
	}
	if !errors.Is(res["slow"].Err, context.DeadlineExceeded) {
		t.Errorf("slow err = %v, want deadline exceeded", res["slow"].Err)
	}
}

func TestFetchAll_MaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	mk := func(name string) parsers.Producer {
		return funcProducer{name, func(context.Context) (*models.RawExtraction, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return &models.RawExtraction{Layout: models.MoneylineLayout}, nil
		}}
	}

	ps := []parsers.Producer{mk("a"), mk("b"), mk("c"), mk("d")}
	FetchAll(context.Background(), ps, FetchOptions{MaxParallel: 2})
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestFetchAll_RejectsInvalidExtraction(t *testing.T) {
	bad := funcProducer{"betmgm", func(context.Context) (*models.RawExtraction, error) {
		return &models.RawExtraction{Teams: []string{"A", "B"}, Prices: []string{"-110", "+100"}}, nil
	}}
	res := FetchAll(context.Background(), []parsers.Producer{bad}, FetchOptions{OnError: func(parsers.Producer, error) {}})
	var ee *parsers.ExtractionError
	if r := res["betmgm"]; !errors.As(r.Err, &ee) || r.Raw != nil {
		t.Errorf("zero layout result = %+v, want ExtractionError", r)
	}
}
