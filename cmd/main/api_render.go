package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Tidewatch/pkg/feed"
	"github.com/CTAG07/Tidewatch/pkg/rendering"
)

// sampleFeeds holds one small document per shape for template testing.
var sampleFeeds = map[string]string{
	"newsletter": `<newsletter>
  <subject>Sample Oil Production Brief</subject>
  <oil_data>
    <region name="North Sea"><production>1.42 mbpd</production></region>
    <region name="Gulf Coast"><production>2.07 mbpd</production></region>
  </oil_data>
</newsletter>`,
	"refinery": `<newsletter>
  <metadata>
    <title>Sample Refinery Report</title>
    <date>2026-01-01</date>
    <status>NORMAL</status>
  </metadata>
  <executive_overview>Throughput steady across tracked facilities.</executive_overview>
  <market_impacts>
    <stat label="Utilization">91%</stat>
    <stat label="Crack Spread">$24.10</stat>
  </market_impacts>
  <geopolitics>
    <event title="Unit Restart">FCC unit back online after turnaround.</event>
  </geopolitics>
</newsletter>`,
	"maritime": `<dashboard>
  <summary>
    <risk_index label="MODERATE">42</risk_index>
    <description>Elevated transit friction at one monitored chokepoint.</description>
    <highest_risk>Highest operational risk: Sample Strait (Score 42, MODERATE risk).</highest_risk>
  </summary>
  <chokepoints>
    <point name="Sample Strait">
      <status label="MODERATE"/>
      <current temperature="21" wind="28"/>
      <forecast>
        <hour time="2026-01-01T00:00:00Z" temp="21" wind="28" vis="9000" precip="0"/>
        <hour time="2026-01-01T01:00:00Z" temp="20" wind="31" vis="8000" precip="1"/>
      </forecast>
    </point>
  </chokepoints>
</dashboard>`,
}

// RenderAPI holds the dependencies for the template and preview API handlers.
type RenderAPI struct {
	rm       *rendering.Manager
	assessor *feed.Assessor
	logger   *slog.Logger
}

// NewRenderAPI creates a new instance of the RenderAPI.
func NewRenderAPI(rm *rendering.Manager, assessor *feed.Assessor, logger *slog.Logger) *RenderAPI {
	return &RenderAPI{
		rm:       rm,
		assessor: assessor,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates and /api/render endpoints.
func (t *RenderAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/refresh", t.handleRefresh)
	mux.HandleFunc("/api/templates/test", t.handleTest)
	mux.HandleFunc("/api/templates", t.handleList)
	mux.HandleFunc("/api/templates/", t.handleFile)
	mux.HandleFunc("/api/render/preview", t.handlePreview)
}

// handleRefresh triggers a manual refresh of templates from disk.
func (t *RenderAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
		return
	}
	if err := t.rm.Refresh(); err != nil {
		t.logger.Error("API triggered refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

// handleList returns a list of all available page template names.
func (t *RenderAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}
	respondWithJSON(w, http.StatusOK, t.rm.GetTemplateNames())
}

// handleTest validates template syntax without saving the file by executing
// it as a string against a built-in sample feed.
func (t *RenderAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	shapeName := r.URL.Query().Get("shape")
	if shapeName == "" {
		shapeName = "maritime"
	}
	sample, ok := sampleFeeds[shapeName]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'shape' must be newsletter, refinery, or maritime")
		return
	}

	doc, err := feed.Parse(strings.NewReader(sample))
	if err != nil {
		t.logger.Error("Failed to parse built-in sample feed", "shape", shapeName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Sample feed unavailable")
		return
	}

	var model any
	var title string
	switch feed.Shape(shapeName) {
	case feed.ShapeNewsletter:
		n := feed.ParseNewsletter(doc)
		model, title = n, n.Subject
	case feed.ShapeRefinery:
		rep := feed.ParseReport(doc)
		model, title = rep, rep.Title
	default:
		dash := feed.ParseDashboard(doc)
		t.assessor.Assess(dash)
		model, title = dash, "Maritime Chokepoint Risk Dashboard"
	}

	data := map[string]any{
		"Stylesheet": t.rm.GetConfig().StylesheetHref,
		"Title":      title,
		"Doc":        model,
	}

	var buf bytes.Buffer
	if err = t.rm.ExecuteTemplateString(&buf, string(body), data); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePreview renders an XML feed from the request body without storing a
// snapshot. Passing ?assess=1 fills derived risk fields on maritime feeds.
func (t *RenderAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}

	doc, err := feed.ParseBytes(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid XML: %v", err))
		return
	}

	assess := r.URL.Query().Get("assess") == "1"

	var buf bytes.Buffer
	if doc.Shape() == feed.ShapeMaritime && assess {
		dash := feed.ParseDashboard(doc)
		t.assessor.Assess(dash)
		err = t.rm.RenderDashboard(&buf, dash)
	} else {
		err = t.rm.Render(&buf, doc)
	}
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Rendering failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleFile manages CRUD operations for a single template override file.
func (t *RenderAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" || strings.HasSuffix(name, "/") {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	if strings.Contains(name, "..") || (!strings.HasSuffix(name, ".tmpl.html") && !strings.HasSuffix(name, ".part.html")) {
		respondWithError(w, http.StatusBadRequest, "Invalid template name format")
		return
	}

	dir := t.rm.GetConfig().TemplateDir
	if dir == "" {
		respondWithError(w, http.StatusBadRequest, "No template override directory is configured")
		return
	}

	templateDir, err := filepath.Abs(dir)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve template directory")
		return
	}

	path := filepath.Join(templateDir, name)
	absPath, err := filepath.Abs(path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	if !strings.HasPrefix(absPath, templateDir) {
		respondWithError(w, http.StatusForbidden, "Access denied: Path outside template directory")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "templates:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
			return
		}
		content, err := os.ReadFile(path)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(content)

	case http.MethodPut:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
			return
		}
		if err = os.WriteFile(path, body, 0644); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write template file: %v", err))
			return
		}
		_ = t.rm.Refresh()
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				respondWithError(w, http.StatusNotFound, "Template not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete template file: %v", err))
			return
		}
		_ = t.rm.Refresh()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
