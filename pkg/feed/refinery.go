package feed

import "strings"

// Report is the typed view of the refinery intel report feed.
type Report struct {
	Title    string
	Date     string
	Status   string
	Overview string
	Stats    []Stat
	Events   []Event
}

// Stat is a single market-impact figure, shown as a stat card.
type Stat struct {
	Label string
	Value string
}

// Event is a single geopolitical event entry.
type Event struct {
	Title string
	Body  string
}

// ParseReport builds the refinery report view model from a document.
func ParseReport(d *Document) *Report {
	r := &Report{
		Title:    d.Text("newsletter/metadata/title"),
		Date:     d.Text("newsletter/metadata/date"),
		Status:   d.Text("newsletter/metadata/status"),
		Overview: d.Text("newsletter/executive_overview"),
	}
	for _, el := range nodes(d.root, "newsletter/market_impacts/stat") {
		r.Stats = append(r.Stats, Stat{
			Label: el.SelectAttr("label"),
			Value: strings.TrimSpace(el.InnerText()),
		})
	}
	for _, el := range nodes(d.root, "newsletter/geopolitics/event") {
		r.Events = append(r.Events, Event{
			Title: el.SelectAttr("title"),
			Body:  strings.TrimSpace(el.InnerText()),
		})
	}
	return r
}
