package feed

import (
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Status labels used by the maritime dashboard feed.
const (
	StatusLow      = "LOW"
	StatusModerate = "MODERATE"
	StatusHigh     = "HIGH"
)

var (
	pointExpr = xpath.MustCompile("dashboard/chokepoints/point")
	hourExpr  = xpath.MustCompile("forecast/hour")
)

// Dashboard is the typed view of the maritime chokepoint risk feed.
type Dashboard struct {
	RiskIndex   string
	RiskLabel   string
	Description string
	HighestRisk string
	Counts      StatusCounts
	Points      []Point
}

// StatusCounts holds the number of status elements per label, counted
// across the entire document tree rather than any single level.
type StatusCounts struct {
	Low      int
	Moderate int
	High     int
}

// Point is one chokepoint card on the dashboard.
type Point struct {
	Name            string
	Temperature     string
	Wind            string
	StatusLabel     string
	DifficultyScore string
	DifficultyLabel string
	Outlook         string
	Impact          string
	RiskStrip       []string
	Forecast        []ForecastHour
}

// ForecastHour is a single row of a chokepoint's forecast table.
type ForecastHour struct {
	Time          string
	Temperature   string
	Wind          string
	Visibility    string
	Precipitation string
}

// ClockTime extracts the HH:MM portion of an ISO-style timestamp: the
// 5-character slice at offset 12 ("2026-05-01T08:15:00Z" -> "08:15").
// Timestamps too short to carry a clock component yield "".
func ClockTime(ts string) string {
	if len(ts) < 17 {
		return ""
	}
	return ts[12:17]
}

// ParseDashboard builds the maritime dashboard view model from a document.
func ParseDashboard(d *Document) *Dashboard {
	dash := &Dashboard{
		RiskIndex:   d.Text("dashboard/summary/risk_index"),
		RiskLabel:   d.Attr("dashboard/summary/risk_index", "label"),
		Description: d.Text("dashboard/summary/description"),
		HighestRisk: d.Text("dashboard/summary/highest_risk"),
		Counts:      countStatuses(d.root),
	}
	for _, el := range xmlquery.QuerySelectorAll(d.root, pointExpr) {
		p := Point{
			Name:            el.SelectAttr("name"),
			Temperature:     attr(el, "current", "temperature"),
			Wind:            attr(el, "current", "wind"),
			StatusLabel:     attr(el, "status", "label"),
			DifficultyScore: attr(el, "difficulty", "score"),
			DifficultyLabel: attr(el, "difficulty", "label"),
			Outlook:         text(el, "outlook"),
			Impact:          text(el, "impact"),
		}
		for _, hour := range xmlquery.QuerySelectorAll(el, hourExpr) {
			p.Forecast = append(p.Forecast, ForecastHour{
				Time:          hour.SelectAttr("time"),
				Temperature:   hour.SelectAttr("temp"),
				Wind:          hour.SelectAttr("wind"),
				Visibility:    hour.SelectAttr("vis"),
				Precipitation: hour.SelectAttr("precip"),
			})
		}
		dash.Points = append(dash.Points, p)
	}
	return dash
}

// countStatuses walks the whole tree once, tallying every <status> element
// by its label attribute.
func countStatuses(root *xmlquery.Node) StatusCounts {
	var counts StatusCounts
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		if n.Type == xmlquery.ElementNode && n.Data == "status" {
			switch n.SelectAttr("label") {
			case StatusLow:
				counts.Low++
			case StatusModerate:
				counts.Moderate++
			case StatusHigh:
				counts.High++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return counts
}
