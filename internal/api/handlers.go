package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/dgallion1/refmap/internal/report"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// handleDashboard serves the interactive card page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, s.result.Title, s.result.Cards, s.result.DefaultView); err != nil {
		jsonError(w, "failed to render dashboard: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleCards serves the raw card list as JSON.
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	payload, err := report.CardsJSON(s.result.Cards)
	if err != nil {
		jsonError(w, "failed to encode cards: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleExportMarkdown serves the numbered reference list for download.
func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.RenderMarkdown(&buf, s.result.Title, s.result.Cards); err != nil {
		jsonError(w, "failed to render markdown: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="references.md"`)
	w.Write(buf.Bytes())
}

var previewMD = goldmark.New(goldmark.WithExtensions(extension.GFM))

// handlePreview renders the markdown export as HTML for a quick look
// before downloading.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var md bytes.Buffer
	if err := report.RenderMarkdown(&md, s.result.Title, s.result.Cards); err != nil {
		jsonError(w, "failed to render markdown: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var body bytes.Buffer
	if err := previewMD.Convert(md.Bytes(), &body); err != nil {
		jsonError(w, "failed to convert markdown: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, previewShell, html.EscapeString(s.result.Title), body.String())
}

const previewShell = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
  <style>
    body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem;
           font-family: system-ui, sans-serif; line-height: 1.5; }
    code { background: #f0f2f6; padding: 0 3px; border-radius: 4px; }
  </style>
</head>
<body>
%s
</body>
</html>
`

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
