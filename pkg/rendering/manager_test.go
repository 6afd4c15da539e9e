package rendering

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestManager creates a Manager with the default configuration and a
// discarded logger for a single test's scope.
func setupTestManager(tb testing.TB) *Manager {
	tb.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(logger, DefaultConfig())
	if err != nil {
		tb.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManager(t *testing.T) {
	m := setupTestManager(t)

	names := m.GetTemplateNames()
	want := []string{"maritime.tmpl.html", "newsletter.tmpl.html", "refinery.tmpl.html"}
	if len(names) != len(want) {
		t.Fatalf("got %d page templates, want %d: %v", len(names), len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("GetTemplateNames()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestManager_Execute_Unknown(t *testing.T) {
	m := setupTestManager(t)
	var buf bytes.Buffer
	err := m.Execute(&buf, "nonexistent.tmpl.html", nil)
	if err == nil {
		t.Fatal("expected an error for non-existent template, but got nil")
	}
	// html/template returns a specific error message format
	expectedErrString := `html/template: "nonexistent.tmpl.html" is undefined`
	if !strings.Contains(err.Error(), expectedErrString) {
		t.Errorf("error message mismatch: got '%v', expected to contain '%s'", err, expectedErrString)
	}
}

func TestManager_TemplateDirOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "newsletter.tmpl.html")
	if err := os.WriteFile(override, []byte(`OVERRIDDEN {{.Doc.Subject}}`), 0644); err != nil {
		t.Fatalf("failed to write override template: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := DefaultConfig()
	config.TemplateDir = dir
	m, err := NewManager(logger, config)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var buf bytes.Buffer
	data := page{Stylesheet: "style.css", Doc: struct{ Subject string }{"Hello"}}
	if err := m.Execute(&buf, "newsletter.tmpl.html", data); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := buf.String(); got != "OVERRIDDEN Hello" {
		t.Errorf("override not applied, got %q", got)
	}

	// The other built-ins must survive the overlay.
	names := m.GetTemplateNames()
	if len(names) != 3 {
		t.Errorf("got %d page templates after overlay, want 3: %v", len(names), names)
	}
}

func TestManager_Refresh_PicksUpNewOverride(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := DefaultConfig()
	config.TemplateDir = dir
	m, err := NewManager(logger, config)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	extra := filepath.Join(dir, "extra.tmpl.html")
	if err := os.WriteFile(extra, []byte(`Extra`), 0644); err != nil {
		t.Fatalf("failed to write extra template: %v", err)
	}

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(m.GetTemplateNames()) != 4 {
		t.Errorf("expected 4 page templates after refresh, got %v", m.GetTemplateNames())
	}
}

func TestManager_ExecuteTemplateString(t *testing.T) {
	m := setupTestManager(t)
	var buf bytes.Buffer
	err := m.ExecuteTemplateString(&buf, `{{clockTime "2026-05-01T08:15:00Z"}}`, nil)
	if err != nil {
		t.Fatalf("ExecuteTemplateString failed: %v", err)
	}
	if buf.String() != "08:15" {
		t.Errorf("got %q, want 08:15", buf.String())
	}
}

func TestManager_SetConfig(t *testing.T) {
	m := setupTestManager(t)
	config := DefaultConfig()
	config.StatusClassPrefix = "level-"
	m.SetConfig(config)

	if got := m.GetConfig().StatusClassPrefix; got != "level-" {
		t.Errorf("SetConfig failed to update StatusClassPrefix: got %q", got)
	}
	if got := m.statusClass("HIGH"); got != "level-HIGH" {
		t.Errorf("statusClass after SetConfig = %q, want level-HIGH", got)
	}
}
