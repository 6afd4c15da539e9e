package rendering

// Config holds all configuration options for the rendering engine.
type Config struct {
	// StylesheetHref is the href emitted in every page head. The stylesheet
	// itself is served separately; pages only reference it.
	StylesheetHref string

	// StatusClassPrefix is prepended to a status label to form the CSS
	// class of status-styled elements, e.g. "risk-" + "HIGH" = "risk-HIGH".
	StatusClassPrefix string

	// TemplateDir is an optional directory of template overrides. Files
	// named *.tmpl.html and *.part.html found there replace the built-in
	// template of the same name on Refresh. Empty disables the overlay.
	TemplateDir string

	// StrictFields controls missing-field handling. When false, absent
	// fields render as empty strings. When true, rendering fails with a
	// MissingFieldError naming the first required field that is absent.
	StrictFields bool
}

// DefaultConfig returns a Config with the standard values: pages link
// "style.css", status classes use the "risk-" prefix, no override
// directory, and missing fields render as empty strings.
func DefaultConfig() *Config {
	return &Config{
		StylesheetHref:    "style.css",
		StatusClassPrefix: "risk-",
		TemplateDir:       "",
		StrictFields:      false,
	}
}
