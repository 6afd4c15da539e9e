package feed

import "testing"

func TestParseNewsletter(t *testing.T) {
	doc := mustParse(t, newsletterXML)
	n := ParseNewsletter(doc)

	if n.Subject != "Weekly Oil Production Digest" {
		t.Errorf("Subject = %q", n.Subject)
	}
	if len(n.Regions) != doc.Count("newsletter/oil_data/region") {
		t.Errorf("got %d regions, document has %d region elements", len(n.Regions), doc.Count("newsletter/oil_data/region"))
	}
	want := []Region{
		{Name: "North Sea", Production: "1.2M bpd"},
		{Name: "Gulf of Mexico", Production: "1.8M bpd"},
		{Name: "Permian Basin", Production: "5.7M bpd"},
	}
	for i, region := range want {
		if n.Regions[i] != region {
			t.Errorf("Regions[%d] = %+v, want %+v", i, n.Regions[i], region)
		}
	}
}

func TestParseNewsletter_MissingFields(t *testing.T) {
	doc := mustParse(t, `<newsletter><oil_data><region name="Arctic"/></oil_data></newsletter>`)
	n := ParseNewsletter(doc)

	if n.Subject != "" {
		t.Errorf("Subject = %q, want empty", n.Subject)
	}
	if len(n.Regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(n.Regions))
	}
	if n.Regions[0].Production != "" {
		t.Errorf("Production = %q, want empty", n.Regions[0].Production)
	}
}
