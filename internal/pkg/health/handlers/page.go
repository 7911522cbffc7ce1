package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

var pageOptions = PageOptions{PollInterval: 5 * time.Second}

// PageOptions controls how the comparison page refreshes.
type PageOptions struct {
	PollInterval time.Duration
	WebSocket    bool
}

func SetPageOptions(o PageOptions) {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	pageOptions = o
}

type pageData struct {
	PollIntervalMs int64
	HighlightTTLMs int64
	WebSocket      bool
}

// HandlePage serves the comparison page. Rendering happens client-side from /api/odds or /ws.
func HandlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{
		PollIntervalMs: pageOptions.PollInterval.Milliseconds(),
		HighlightTTLMs: highlightTTL.Milliseconds(),
		WebSocket:      pageOptions.WebSocket,
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render page", "error", err)
	}
}
