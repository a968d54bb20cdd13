package extract

import (
	"testing"
)

func TestExtractDetailsMarkup(t *testing.T) {
	doc := loadFixture(t, "detail_markup.html")
	d := ExtractDetails(doc)

	if len(d.PopularFacilities) != 3 {
		t.Fatalf("expected 3 popular facilities (case-insensitive dedup), got %v", d.PopularFacilities)
	}
	if d.PopularFacilities[0] != "Free WiFi" {
		t.Fatalf("expected first-seen order, got %v", d.PopularFacilities)
	}

	if len(d.FacilityGroups) != 2 {
		t.Fatalf("expected 2 facility groups, got %d", len(d.FacilityGroups))
	}
	bathroom := d.FacilityGroups[0]
	if bathroom.Name != "Bathroom" {
		t.Fatalf("expected Bathroom group first, got %q", bathroom.Name)
	}
	if len(bathroom.Facilities) != 2 {
		t.Fatalf("expected deduped facilities, got %v", bathroom.Facilities)
	}
	internet := d.FacilityGroups[1]
	if internet.Description == "" {
		t.Fatalf("expected internet group description")
	}

	if len(d.AreaInfo) != 1 {
		t.Fatalf("expected 1 POI category, got %d", len(d.AreaInfo))
	}
	cat := d.AreaInfo[0]
	if cat.Name != "Restaurants & cafes" {
		t.Fatalf("unexpected category name %q", cat.Name)
	}
	if len(cat.POIs) != 2 || cat.POIs[0].Name != "Cafe Central" || cat.POIs[0].Distance != "250 m" {
		t.Fatalf("unexpected POIs %+v", cat.POIs)
	}

	if len(d.PhotoURLs) != 2 {
		t.Fatalf("expected 2 photos, got %v", d.PhotoURLs)
	}
}

func TestExtractDetailsFlatCacheFallback(t *testing.T) {
	doc := loadFixture(t, "detail_flatcache.html")
	d := ExtractDetails(doc)

	if len(d.FacilityGroups) != 1 {
		t.Fatalf("expected 1 facility group from flat cache, got %+v", d.FacilityGroups)
	}
	g := d.FacilityGroups[0]
	if g.Name != "Wellness" {
		t.Fatalf("unexpected group name %q", g.Name)
	}
	if len(g.Facilities) != 2 || g.Facilities[0] != "Sauna" || g.Facilities[1] != "Hot tub" {
		t.Fatalf("reference dereferencing failed: %v", g.Facilities)
	}

	if len(d.AreaInfo) != 1 || d.AreaInfo[0].Name != "Top attractions" {
		t.Fatalf("expected POI category from flat cache, got %+v", d.AreaInfo)
	}
	if d.AreaInfo[0].POIs[0].Distance != "1.2 km" {
		t.Fatalf("unexpected POI %+v", d.AreaInfo[0].POIs)
	}
}

func TestExtractDetailsEmptyDocument(t *testing.T) {
	doc := loadFixture(t, "results_malformed.html")
	d := ExtractDetails(doc)
	if !d.Empty() {
		t.Fatalf("expected empty details, got %+v", d)
	}
}
