// Package fixture replays recorded extractions from a YAML file. It stands in
// for a live sportsbook in local runs and tests.
//
// File format:
//
//	layout: {stride: 6, team1_slot: 2, team2_slot: 5}
//	loop: false
//	frames:
//	  - teams: [NY Yankees, BOS Red Sox]
//	    prices: ["-1.5", "+140", "-150", "+1.5", "-160", "+130"]
//	  - error: page did not load
//
// Each FetchRaw returns the next frame. Without loop the last frame repeats.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

type Frame struct {
	Teams  []string `yaml:"teams"`
	Prices []string `yaml:"prices"`
	Error  string   `yaml:"error"`
}

type file struct {
	Layout *models.BlockLayout `yaml:"layout"`
	Loop   bool                `yaml:"loop"`
	Frames []Frame             `yaml:"frames"`
}

type Producer struct {
	name   string
	layout models.BlockLayout
	loop   bool
	frames []Frame

	mu   sync.Mutex
	next int
}

func init() {
	parsers.Register("fixture", New)
}

func New(name string, cfg config.SourceConfig) (parsers.Producer, error) {
	if cfg.Fixture == "" {
		return nil, errors.New("fixture path is required")
	}
	data, err := os.ReadFile(cfg.Fixture)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", cfg.Fixture, err)
	}

	layout := models.MoneylineLayout
	if f.Layout != nil {
		layout = *f.Layout
	}
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s layout: %w", cfg.Fixture, err)
	}
	if len(f.Frames) == 0 {
		return nil, fmt.Errorf("fixture %s has no frames", cfg.Fixture)
	}
	p := NewFromFrames(name, layout, f.Frames)
	p.loop = f.Loop
	return p, nil
}

// NewFromFrames builds a producer over in-memory frames; the last frame repeats.
func NewFromFrames(name string, layout models.BlockLayout, frames []Frame) *Producer {
	return &Producer{name: name, layout: layout, frames: frames}
}

func (p *Producer) Name() string { return p.name }

func (p *Producer) FetchRaw(ctx context.Context) (*models.RawExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, parsers.NewExtractionError(p.name, err)
	}
	if len(p.frames) == 0 {
		return nil, parsers.NewExtractionError(p.name, errors.New("no frames"))
	}

	p.mu.Lock()
	idx := p.next
	switch {
	case p.next < len(p.frames)-1:
		p.next++
	case p.loop:
		p.next = 0
	}
	p.mu.Unlock()

	f := p.frames[idx]
	if f.Error != "" {
		return nil, parsers.NewExtractionError(p.name, errors.New(f.Error))
	}
	return &models.RawExtraction{
		Source:    p.name,
		Teams:     append([]string(nil), f.Teams...),
		Prices:    append([]string(nil), f.Prices...),
		Layout:    p.layout,
		FetchedAt: time.Now(),
	}, nil
}
