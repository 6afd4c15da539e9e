package feed

// Newsletter is the typed view of the oil-data newsletter feed.
type Newsletter struct {
	Subject string
	Regions []Region
}

// Region is a single production region row.
type Region struct {
	Name       string
	Production string
}

// ParseNewsletter builds the newsletter view model from a document. One
// Region is produced per <region> element, in document order, so the
// rendered table always has exactly as many rows as the feed has regions.
func ParseNewsletter(d *Document) *Newsletter {
	n := &Newsletter{
		Subject: d.Text("newsletter/subject"),
	}
	for _, el := range nodes(d.root, "newsletter/oil_data/region") {
		n.Regions = append(n.Regions, Region{
			Name:       el.SelectAttr("name"),
			Production: text(el, "production"),
		})
	}
	return n
}
