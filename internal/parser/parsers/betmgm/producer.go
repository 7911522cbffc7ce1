package betmgm

import (
	"context"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/parser/parsers/browser"
	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

const defaultURL = "https://www.az.betmgm.com/en/sports/baseball-23/betting/usa-9/mlb-75"

const (
	kindOdds         = "odds"
	kindOffline      = "offline"       // one suspended option
	kindOfflineGroup = "offline_group" // a suspended two-option column
)

// extractScript walks each six-pack event and tags every grid cell in page order.
const extractScript = `(() => {
  return Array.from(document.querySelectorAll('ms-six-pack-event.grid-six-pack-event')).map(ev => ({
    teams: Array.from(ev.querySelectorAll('div.participant')).map(e => e.textContent),
    cells: Array.from(ev.querySelectorAll('.custom-odds-value-style, .option-indicator.offline, .grid-option-group.offline')).map(e => {
      if (e.classList.contains('grid-option-group')) return {kind: 'offline_group', text: ''};
      if (e.classList.contains('option-indicator')) return {kind: 'offline', text: ''};
      return {kind: 'odds', text: e.textContent || ''};
    })
  }));
})()`

type event struct {
	Teams []string `json:"teams"`
	Cells []cell   `json:"cells"`
}

type cell struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type Producer struct {
	name   string
	layout models.BlockLayout
	tab    *browser.Tab
}

func init() {
	parsers.Register("betmgm", New)
}

func New(name string, cfg config.SourceConfig) (parsers.Producer, error) {
	url := cfg.URL
	if url == "" {
		url = defaultURL
	}
	layout := models.SixPackLayout
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
	var events []event
	if err := p.tab.Evaluate(ctx, extractScript, &events); err != nil {
		return nil, parsers.NewExtractionError(p.name, err)
	}
	raw := extract(events)
	raw.Source = p.name
	raw.Layout = p.layout
	raw.FetchedAt = time.Now()
	return raw, nil
}

func (p *Producer) Close() error { return p.tab.Close() }

func extract(events []event) *models.RawExtraction {
	raw := &models.RawExtraction{}
	for _, ev := range events {
		for _, t := range ev.Teams {
			raw.Teams = append(raw.Teams, strings.TrimSpace(t))
		}

		local := make([]string, 0, 6)
		for _, c := range ev.Cells {
			switch c.Kind {
			case kindOffline:
				local = append(local, "")
			case kindOfflineGroup:
				local = append(local, "", "")
			case kindOdds:
				if tok, ok := parsers.SignedToken(c.Text); ok {
					local = append(local, tok)
				}
			}
		}
		raw.Prices = append(raw.Prices, reorder(local)...)
	}
	return raw
}

// reorder turns BetMGM's column-major grid (spread, spread, total, total, ml, ml)
// into the row-major six-pack order every other source uses: 123456 -> 135246.
// An incomplete group cannot be placed and becomes six empty cells.
func reorder(cells []string) []string {
	out := make([]string, 0, len(cells)+6)
	for i := 0; i < len(cells); i += 6 {
		if i+6 > len(cells) {
			out = append(out, "", "", "", "", "", "")
			break
		}
		g := cells[i : i+6]
		out = append(out, g[0], g[2], g[4], g[1], g[3], g[5])
	}
	return out
}
