// Command tidewatch-render renders intel feed XML documents to HTML
// without a running server.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/natefinch/atomic"

	"github.com/CTAG07/Tidewatch/pkg/feed"
	"github.com/CTAG07/Tidewatch/pkg/rendering"
)

const version = "0.1.0"

// CLI defines the command-line interface for tidewatch-render.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Render  RenderCmd  `cmd:"" help:"Render an XML feed document to HTML"`
	Detect  DetectCmd  `cmd:"" help:"Report the feed shape of an XML document"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// readInput reads the feed document from a path, or stdin when the path
// is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// RenderCmd renders a feed document to HTML.
type RenderCmd struct {
	Path string `arg:"" help:"Path to the XML feed document, or - for stdin"`
	Out  string `short:"o" help:"Output path (defaults to stdout)" type:"path"`

	Assess      bool   `help:"Fill derived risk fields on maritime dashboards before rendering"`
	Stylesheet  string `default:"style.css" help:"Stylesheet href written into the page head"`
	TemplateDir string `help:"Directory of template overrides" type:"path"`
	ClassPrefix string `default:"risk-" help:"CSS class prefix for status labels"`
	Strict      bool   `help:"Fail when a required feed field is missing"`
}

func (c *RenderCmd) Run() error {
	logger := newLogger()

	data, err := readInput(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	doc, err := feed.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	config := rendering.DefaultConfig()
	config.StylesheetHref = c.Stylesheet
	config.TemplateDir = c.TemplateDir
	config.StatusClassPrefix = c.ClassPrefix
	config.StrictFields = c.Strict

	rm, err := rendering.NewManager(logger, config)
	if err != nil {
		return fmt.Errorf("failed to initialize rendering: %w", err)
	}

	var buf bytes.Buffer
	if c.Assess && doc.Shape() == feed.ShapeMaritime {
		dash := feed.ParseDashboard(doc)
		feed.NewAssessor(feed.DefaultAssessConfig(), logger).Assess(dash)
		err = rm.RenderDashboard(&buf, dash)
	} else {
		err = rm.Render(&buf, doc)
	}
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	if c.Out == "" {
		_, err = buf.WriteTo(os.Stdout)
		return err
	}
	if err = atomic.WriteFile(c.Out, &buf); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("Wrote rendered page", "path", c.Out)
	return nil
}

// DetectCmd prints the detected shape of a feed document.
type DetectCmd struct {
	Path string `arg:"" help:"Path to the XML feed document, or - for stdin"`
}

func (c *DetectCmd) Run() error {
	data, err := readInput(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	doc, err := feed.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	shape := doc.Shape()
	if shape == feed.ShapeUnknown {
		fmt.Println("unknown")
		return fmt.Errorf("document does not match any known feed shape")
	}
	fmt.Println(string(shape))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("tidewatch-render %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("tidewatch-render"),
		kong.Description("Render Tidewatch intel feeds to static HTML pages."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
