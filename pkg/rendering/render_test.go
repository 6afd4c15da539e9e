package rendering

import (
	"errors"
	"strings"
	"testing"

	"github.com/CTAG07/Tidewatch/pkg/feed"
)

const newsletterXML = `<newsletter>
  <subject>Weekly Oil Production Digest</subject>
  <oil_data>
    <region name="North Sea"><production>1.2M bpd</production></region>
    <region name="Gulf of Mexico"><production>1.8M bpd</production></region>
    <region name="Permian Basin"><production>5.7M bpd</production></region>
  </oil_data>
</newsletter>`

const refineryXML = `<newsletter>
  <metadata>
    <title>Oil Shock</title>
    <date>2026-05-01</date>
    <status>URGENT</status>
  </metadata>
  <executive_overview>Crude benchmarks spiked after refinery outages.</executive_overview>
  <market_impacts>
    <stat label="WTI">$142</stat>
    <stat label="Brent">$138</stat>
  </market_impacts>
  <geopolitics>
    <event title="Strait Transit Advisory">Naval escorts advised.</event>
  </geopolitics>
</newsletter>`

const maritimeXML = `<dashboard>
  <summary>
    <risk_index label="MODERATE">45</risk_index>
    <description>Elevated risk at two chokepoints.</description>
    <highest_risk>Highest operational risk: Strait of Hormuz (Score 45, MODERATE risk).</highest_risk>
  </summary>
  <chokepoints>
    <point name="Strait of Hormuz">
      <current temperature="31" wind="28"/>
      <status label="MODERATE"/>
      <difficulty score="56" label="Challenging"/>
      <outlook>Conditions deteriorating over the next 6 hours.</outlook>
      <impact>Elevated winds could require increased caution.</impact>
      <forecast>
        <hour time="2026-05-01T08:15:00Z" temp="31" wind="28" vis="9000" precip="0"/>
      </forecast>
    </point>
    <point name="Suez Canal">
      <current temperature="27" wind="12"/>
      <status label="LOW"/>
      <difficulty score="13" label="Routine"/>
    </point>
  </chokepoints>
</dashboard>`

func mustRender(t *testing.T, m *Manager, xml string) string {
	t.Helper()
	doc, err := feed.ParseBytes([]byte(xml))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	html, err := m.RenderString(doc)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	return html
}

func TestRender_Newsletter(t *testing.T) {
	m := setupTestManager(t)
	html := mustRender(t, m, newsletterXML)

	if !strings.Contains(html, "<h1>Weekly Oil Production Digest</h1>") {
		t.Error("output is missing the subject heading")
	}
	if !strings.Contains(html, `href="style.css"`) {
		t.Error("output is missing the stylesheet link")
	}

	doc, _ := feed.ParseBytes([]byte(newsletterXML))
	regions := doc.Count("newsletter/oil_data/region")
	// One header row plus one row per region.
	rows := strings.Count(html, "<tr>")
	if rows != regions+1 {
		t.Errorf("got %d table rows, want %d (header + one per region)", rows, regions+1)
	}
	if !strings.Contains(html, "<td>North Sea</td><td>1.2M bpd</td>") {
		t.Error("output is missing the North Sea row")
	}
}

func TestRender_Refinery(t *testing.T) {
	m := setupTestManager(t)
	html := mustRender(t, m, refineryXML)

	for _, want := range []string{
		"<h1>Oil Shock</h1>",
		"2026-05-01 | URGENT",
		"Crude benchmarks spiked after refinery outages.",
		`<span class="stat-label">WTI</span><span class="stat-value">$142</span>`,
		`<span class="stat-label">Brent</span><span class="stat-value">$138</span>`,
		"<h2>Strait Transit Advisory</h2>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

func TestRender_Maritime(t *testing.T) {
	m := setupTestManager(t)
	html := mustRender(t, m, maritimeXML)

	for _, want := range []string{
		`summary-block risk-MODERATE`,
		"Global Risk Index: 45 (MODERATE)",
		`<div class="card risk-MODERATE">`,
		`<div class="card risk-LOW">`,
		"<h2>Strait of Hormuz</h2>",
		"Transit difficulty: 56 (Challenging)",
		"<td>08:15</td>",
		"Risk distribution: 1 LOW | 1 MODERATE | 0 HIGH",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

func TestRender_MaritimeNoPoints(t *testing.T) {
	m := setupTestManager(t)
	html := mustRender(t, m, `<dashboard><summary>
		<risk_index label="LOW">10</risk_index>
		<description>All clear.</description>
	</summary><chokepoints/></dashboard>`)

	if !strings.Contains(html, "Global Risk Index: 10 (LOW)") {
		t.Error("summary should render even with zero chokepoints")
	}
	if strings.Contains(html, `<div class="card`) {
		t.Error("output should contain no cards for an empty dashboard")
	}
}

// Rendering must be a pure function of the document: repeated renders of
// the same input yield byte-identical output.
func TestRender_Deterministic(t *testing.T) {
	m := setupTestManager(t)
	for _, xml := range []string{newsletterXML, refineryXML, maritimeXML} {
		first := mustRender(t, m, xml)
		for i := 0; i < 3; i++ {
			if got := mustRender(t, m, xml); got != first {
				t.Fatalf("render %d differs from the first render", i+2)
			}
		}
	}
}

func TestRender_MissingFieldsRenderEmpty(t *testing.T) {
	m := setupTestManager(t)
	html := mustRender(t, m, `<newsletter><oil_data><region name="Arctic"/></oil_data></newsletter>`)

	if !strings.Contains(html, "<h1></h1>") {
		t.Error("missing subject should render as an empty heading")
	}
	if !strings.Contains(html, "<td>Arctic</td><td></td>") {
		t.Error("missing production should render as an empty cell")
	}
}

func TestRender_UnknownShape(t *testing.T) {
	m := setupTestManager(t)
	doc, err := feed.ParseBytes([]byte(`<bulletin><subject>x</subject></bulletin>`))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if _, err := m.RenderString(doc); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("RenderString() error = %v, want ErrUnknownShape", err)
	}
}

func TestRender_StrictFields(t *testing.T) {
	m := setupTestManager(t)
	config := DefaultConfig()
	config.StrictFields = true
	m.SetConfig(config)

	doc, err := feed.ParseBytes([]byte(`<newsletter><oil_data/></newsletter>`))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	_, err = m.RenderString(doc)

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("RenderString() error = %v, want MissingFieldError", err)
	}
	if missing.Path != "newsletter/subject" {
		t.Errorf("MissingFieldError.Path = %q, want newsletter/subject", missing.Path)
	}
}

func TestRender_CustomStatusClassPrefix(t *testing.T) {
	m := setupTestManager(t)
	config := DefaultConfig()
	config.StatusClassPrefix = "level-"
	m.SetConfig(config)

	html := mustRender(t, m, maritimeXML)
	if !strings.Contains(html, `<div class="card level-LOW">`) {
		t.Error("custom status class prefix was not applied")
	}
}

func BenchmarkRender_Maritime(b *testing.B) {
	m := setupTestManager(b)
	doc, err := feed.ParseBytes([]byte(maritimeXML))
	if err != nil {
		b.Fatalf("ParseBytes() error = %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.RenderString(doc); err != nil {
			b.Fatalf("RenderString() error = %v", err)
		}
	}
}

func TestRender_HeadTitle(t *testing.T) {
	m := setupTestManager(t)

	tests := []struct {
		name string
		xml  string
		want string
	}{
		{"newsletter uses subject", newsletterXML, "<title>Weekly Oil Production Digest</title>"},
		{"refinery uses metadata title", refineryXML, "<title>Oil Shock</title>"},
		{"maritime uses fixed title", maritimeXML, "<title>Maritime Chokepoint Risk Dashboard</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := mustRender(t, m, tt.xml)
			if !strings.Contains(html, tt.want) {
				t.Errorf("rendered head missing %q", tt.want)
			}
		})
	}
}
