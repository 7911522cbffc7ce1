package fanduel

import (
	"context"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/parser/parsers/browser"
	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

const defaultURL = "https://sportsbook.fanduel.com/navigation/mlb"

// extractScript returns, per event block, the tagged participant names and the
// text of every leaf span. FanDuel class names are generated, so selection is
// by data-test attributes and text shape.
const extractScript = `(() => {
  const leafText = root => Array.from(root.querySelectorAll('span'))
    .filter(s => s.children.length === 0 && s.textContent.trim() !== '')
    .map(s => s.textContent);
  return Array.from(document.querySelectorAll('div[data-test*="event"]')).map(ev => ({
    participants: Array.from(ev.querySelectorAll('span[data-test="participant-name"]')).map(s => s.textContent),
    spans: leafText(ev)
  }));
})()`

type block struct {
	Participants []string `json:"participants"`
	Spans        []string `json:"spans"`
}

type Producer struct {
	name   string
	layout models.BlockLayout
	tab    *browser.Tab
}

func init() {
	parsers.Register("fanduel", New)
}

func New(name string, cfg config.SourceConfig) (parsers.Producer, error) {
	url := cfg.URL
	if url == "" {
		url = defaultURL
	}
	layout := models.MoneylineLayout
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}
	return &Producer{
		name:   name,
		layout: layout,
		tab: browser.NewTab(browser.Options{
			URL:       url,
			Wait:      cfg.Wait,
			Headless:  cfg.IsHeadless(),
			UserAgent: cfg.UserAgent,
		}),
	}, nil
}

func (p *Producer) Name() string { return p.name }

func (p *Producer) FetchRaw(ctx context.Context) (*models.RawExtraction, error) {
	var blocks []block
	if err := p.tab.Evaluate(ctx, extractScript, &blocks); err != nil {
		return nil, parsers.NewExtractionError(p.name, err)
	}
	raw := extract(blocks)
	raw.Source = p.name
	raw.Layout = p.layout
	raw.FetchedAt = time.Now()
	return raw, nil
}

func (p *Producer) Close() error { return p.tab.Close() }

func extract(blocks []block) *models.RawExtraction {
	raw := &models.RawExtraction{}
	for _, b := range blocks {
		teams := b.Participants
		if len(teams) == 0 {
			for _, s := range b.Spans {
				if !parsers.ContainsSign(s) {
					teams = append(teams, s)
				}
			}
		}
		if len(teams) > 2 {
			teams = teams[:2]
		}
		for _, t := range teams {
			raw.Teams = append(raw.Teams, strings.TrimSpace(t))
		}

		prices := make([]string, 0, 2)
		for _, s := range b.Spans {
			if len(prices) == 2 {
				break
			}
			if parsers.ContainsSign(s) {
				prices = append(prices, strings.TrimSpace(s))
			}
		}
		for len(prices) < 2 {
			prices = append(prices, "")
		}
		raw.Prices = append(raw.Prices, prices...)
	}
	for len(raw.Prices) < len(raw.Teams) {
		raw.Prices = append(raw.Prices, "")
	}
	return raw
}
