package rendering

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/CTAG07/Tidewatch/pkg/feed"
)

// ErrUnknownShape is returned by Render when a document's root element
// does not match any of the known feed layouts.
var ErrUnknownShape = errors.New("document does not match any known feed shape")

// MissingFieldError reports a required field that was absent from a feed
// document. It is only returned when Config.StrictFields is enabled; the
// default behavior renders absent fields as empty strings.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing from the feed", e.Path)
}

// page is the root data object handed to every page template.
type page struct {
	Stylesheet string
	Title      string
	Doc        any
}

// Manager is the central controller for the rendering engine. It manages
// the template set, configuration, and function map, and maps parsed feed
// documents to the page template for their shape.
// All methods are concurrent-safe.
type Manager struct {
	logger         *slog.Logger
	config         *Config
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	mu             sync.RWMutex
}

// NewManager creates, initializes, and returns a new Manager. It parses
// the built-in templates and, if the configuration names a template
// directory, overlays any overrides found there.
func NewManager(logger *slog.Logger, config *Config) (*Manager, error) {
	m := &Manager{
		logger: logger,
		config: config,
	}
	m.funcMap = m.makeFuncMap()

	if err := m.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Rendering manager initialized")
	return m, nil
}

// makeFuncMap builds the function map shared by every template. The
// simple arithmetic helpers are not called by the built-in templates;
// they are part of the contract for template directory overrides.
func (m *Manager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Formatting (from funcs_format.go)
		"clockTime":       clockTime,
		"statusClass":     m.statusClass,
		"riskColor":       riskColor,
		"difficultyLabel": difficultyLabel,

		// Simple (from funcs_simple.go)
		"add":   add,
		"sub":   sub,
		"inc":   inc,
		"dec":   dec,
		"isSet": isSet,
	}
}

// SetConfig applies a new configuration to the Manager. A Refresh is
// needed afterwards if the template directory changed.
func (m *Manager) SetConfig(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// GetConfig returns a copy of the current configuration.
// This mainly exists for concurrency-safety reasons.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// Refresh rebuilds the template set: the built-in templates are parsed
// first, then any overrides from the configured template directory are
// parsed over them, replacing built-ins of the same name. This allows
// template changes without restarting the application.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	root := template.New("").Funcs(m.funcMap)

	builtinNames := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		builtinNames = append(builtinNames, name)
	}
	sort.Strings(builtinNames)

	for _, name := range builtinNames {
		if _, err := root.New(name).Parse(builtinTemplates[name]); err != nil {
			m.logger.Error("failed to parse built-in template", "name", name, "error", err)
			return err
		}
	}

	if dir := m.config.TemplateDir; dir != "" {
		for _, pattern := range []string{"*.tmpl.html", "*.part.html"} {
			filePattern := filepath.Join(dir, pattern)
			parsed, err := root.ParseGlob(filePattern)
			if err != nil {
				if !strings.Contains(err.Error(), "pattern matches no files") {
					m.logger.Error("failed to parse template overrides", "pattern", filePattern, "error", err)
					return err
				}
				continue
			}
			root = parsed
		}
	}

	var names []string
	for _, t := range root.Templates() {
		// By default, there is a root template with no name. We don't want to execute this
		if strings.Contains(t.Name(), ".tmpl.html") {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)

	m.templates = root
	m.templateNames = names
	m.logger.Info("Loaded templates", "count", len(names))

	// Create a clean clone for string executions after all parsing is complete.
	clean, err := m.templates.Clone()
	if err != nil {
		m.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}
	m.cleanTemplates = clean

	return nil
}

// Execute renders a specific template by name, writing the output to the
// provided io.Writer. The `data` argument is passed to the template.
func (m *Manager) Execute(w io.Writer, name string, data interface{}) error {
	if name == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.templates.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw template string using
// the manager's function map. This is ideal for testing or previewing
// templates without saving them to disk.
func (m *Manager) ExecuteTemplateString(w io.Writer, content string, data interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Clone the clean, unexecuted template set to avoid race conditions and execution state issues.
	tempSet, err := m.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}

	return t.Execute(w, data)
}

// GetTemplateNames returns a slice of the loaded page template names.
// This mainly exists for concurrency-safety reasons.
func (m *Manager) GetTemplateNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.templateNames))
	copy(names, m.templateNames)
	return names
}

// Render writes the HTML page for a parsed feed document to w, choosing
// the page template from the document's shape. Documents with an
// unrecognized root yield ErrUnknownShape. Output depends only on the
// document and the configuration.
func (m *Manager) Render(w io.Writer, doc *feed.Document) error {
	shape := doc.Shape()

	m.mu.RLock()
	stylesheet := m.config.StylesheetHref
	strict := m.config.StrictFields
	m.mu.RUnlock()

	if strict {
		if err := checkRequired(doc, shape); err != nil {
			return err
		}
	}

	var name, title string
	var model any
	switch shape {
	case feed.ShapeNewsletter:
		n := feed.ParseNewsletter(doc)
		name, title, model = "newsletter.tmpl.html", n.Subject, n
	case feed.ShapeRefinery:
		r := feed.ParseReport(doc)
		name, title, model = "refinery.tmpl.html", r.Title, r
	case feed.ShapeMaritime:
		name, title, model = "maritime.tmpl.html", maritimeTitle, feed.ParseDashboard(doc)
	default:
		return ErrUnknownShape
	}

	return m.Execute(w, name, page{Stylesheet: stylesheet, Title: title, Doc: model})
}

// RenderDashboard writes the maritime page for an already-built dashboard
// view model. This is the entry point for callers that fill in derived
// fields (risk scores, outlooks) before rendering.
func (m *Manager) RenderDashboard(w io.Writer, dash *feed.Dashboard) error {
	m.mu.RLock()
	stylesheet := m.config.StylesheetHref
	m.mu.RUnlock()
	return m.Execute(w, "maritime.tmpl.html", page{Stylesheet: stylesheet, Title: maritimeTitle, Doc: dash})
}

// RenderString renders a parsed feed document and returns the HTML as a
// string.
func (m *Manager) RenderString(doc *feed.Document) (string, error) {
	var sb strings.Builder
	if err := m.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// requiredFields lists, per shape, the fields that strict mode insists on.
// Everything else stays optional and renders empty when absent.
var requiredFields = map[feed.Shape][]string{
	feed.ShapeNewsletter: {"newsletter/subject"},
	feed.ShapeRefinery:   {"newsletter/metadata/title", "newsletter/metadata/date"},
	feed.ShapeMaritime:   {"dashboard/summary/risk_index"},
}

func checkRequired(doc *feed.Document, shape feed.Shape) error {
	for _, path := range requiredFields[shape] {
		if doc.Text(path) == "" {
			return &MissingFieldError{Path: path}
		}
	}
	return nil
}
