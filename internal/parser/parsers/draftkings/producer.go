package draftkings

import (
	"context"
	"strings"
	"time"

	"github.com/Vodeneev/linecompare/internal/parser/parsers"
	"github.com/Vodeneev/linecompare/internal/parser/parsers/browser"
	"github.com/Vodeneev/linecompare/internal/pkg/config"
	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

const defaultURL = "https://sportsbook.draftkings.com/leagues/baseball/mlb"

// extractScript lists team names and every odds/empty cell of the six-pack grid in page order.
const extractScript = `(() => {
  const teams = Array.from(document.querySelectorAll('div.event-cell__name-text')).map(e => e.textContent);
  const cells = Array.from(document.querySelectorAll('.sportsbook-odds, .sportsbook-empty-cell')).map(e => ({
    empty: e.classList.contains('sportsbook-empty-cell'),
    text: e.textContent || ''
  }));
  return {teams, cells};
})()`

type page struct {
	Teams []string `json:"teams"`
	Cells []cell   `json:"cells"`
}

type cell struct {
	Empty bool   `json:"empty"`
	Text  string `json:"text"`
}

type Producer struct {
	name   string
	layout models.BlockLayout
	tab    *browser.Tab
}

func init() {
	parsers.Register("draftkings", New)
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
	var pg page
	if err := p.tab.Evaluate(ctx, extractScript, &pg); err != nil {
		return nil, parsers.NewExtractionError(p.name, err)
	}
	raw := extract(pg)
	raw.Source = p.name
	raw.Layout = p.layout
	raw.FetchedAt = time.Now()
	return raw, nil
}

func (p *Producer) Close() error { return p.tab.Close() }

func extract(pg page) *models.RawExtraction {
	raw := &models.RawExtraction{
		Teams:  make([]string, 0, len(pg.Teams)),
		Prices: make([]string, 0, len(pg.Cells)),
	}
	for _, t := range pg.Teams {
		raw.Teams = append(raw.Teams, StripCity(t))
	}
	for _, c := range pg.Cells {
		if c.Empty {
			raw.Prices = append(raw.Prices, "")
			continue
		}
		// Unsigned text (suspended markers, labels) is not a grid cell.
		if tok, ok := parsers.SignedToken(c.Text); ok {
			raw.Prices = append(raw.Prices, tok)
		}
	}
	return raw
}

// StripCity drops the city prefix DraftKings puts in front of team names
// ("NY Yankees" -> "Yankees"). "Athletics" has no city and is kept.
func StripCity(name string) string {
	name = strings.TrimSpace(name)
	if name == "Athletics" {
		return name
	}
	if _, rest, ok := strings.Cut(name, " "); ok {
		return strings.TrimSpace(rest)
	}
	return name
}
