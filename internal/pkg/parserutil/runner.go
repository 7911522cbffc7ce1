package parserutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/linecompare/internal/calculator"
	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/pkg/validation"
)

// FetchOptions configures one concurrent fetch round.
type FetchOptions struct {
	// Timeout bounds each producer individually. Zero means only ctx applies.
	Timeout time.Duration
	// MaxParallel limits concurrent producers. Zero or less means no limit.
	MaxParallel int
	// OnError is called for every failed producer. If nil, errors are logged.
	OnError func(p parsers.Producer, err error)
}

// FetchAll runs every producer concurrently and returns one result per producer
// name. A producer's error or panic is captured in its result and never stops
// the others; FetchAll itself does not fail.
func FetchAll(ctx context.Context, producers []parsers.Producer, opts FetchOptions) map[string]calculator.SourceResult {
	results := make([]calculator.SourceResult, len(producers))

	onError := opts.OnError
	if onError == nil {
		onError = func(p parsers.Producer, err error) {
			slog.Warn("Producer failed", "source", p.Name(), "error", err)
		}
	}

	var g errgroup.Group
	if opts.MaxParallel > 0 {
		g.SetLimit(opts.MaxParallel)
	}

	for i, p := range producers {
		g.Go(func() error {
			start := time.Now()
			res := fetchOne(ctx, p, opts.Timeout)
			if res.Err != nil {
				onError(p, res.Err)
			} else {
				slog.Debug("Producer fetched", "source", p.Name(),
					"teams", len(res.Raw.Teams), "cells", len(res.Raw.Prices), "duration", time.Since(start))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]calculator.SourceResult, len(producers))
	for _, r := range results {
		out[r.Source] = r
	}
	return out
}

func fetchOne(ctx context.Context, p parsers.Producer, timeout time.Duration) (res calculator.SourceResult) {
	name := p.Name()
	res.Source = name

	defer func() {
		if r := recover(); r != nil {
			res.Raw = nil
			res.Err = parsers.NewExtractionError(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := p.FetchRaw(ctx)
	switch {
	case err != nil:
		res.Err = parsers.NewExtractionError(name, err)
	case raw == nil:
		res.Err = parsers.NewExtractionError(name, fmt.Errorf("no data"))
	default:
		if raw.Source == "" {
			raw.Source = name
		}
		validation.SanitizeExtraction(raw)
		if err := validation.ValidateExtraction(raw); err != nil {
			res.Err = parsers.NewExtractionError(name, err)
			return res
		}
		res.Raw = raw
	}
	return res
}
