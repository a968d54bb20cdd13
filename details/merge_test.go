package details

import (
	"fmt"
	"reflect"
	"testing"

	"staylens/models"
)

func TestMergeUnionsFacilities(t *testing.T) {
	initial := models.DetailSnapshot{
		Stage: models.StageInitial,
		Details: models.HotelDetails{
			PopularFacilities: []string{"Free WiFi", "Parking"},
			FacilityGroups: []models.FacilityGroup{
				{Name: "Bathroom", Facilities: []string{"Towels", "Shower"}},
			},
		},
	}
	retry := models.DetailSnapshot{
		Stage: models.StageRetry,
		Details: models.HotelDetails{
			PopularFacilities: []string{"free wifi", "Restaurant"},
			FacilityGroups: []models.FacilityGroup{
				{Name: "bathroom", Description: "Private bathrooms throughout", Facilities: []string{"shower", "Hairdryer"}},
				{Name: "Internet", Facilities: []string{"WiFi in all areas"}},
			},
		},
	}

	got := Merge([]models.DetailSnapshot{initial, retry})

	wantPopular := []string{"Free WiFi", "Parking", "Restaurant"}
	if !reflect.DeepEqual(got.PopularFacilities, wantPopular) {
		t.Fatalf("popular = %v, want %v", got.PopularFacilities, wantPopular)
	}
	if len(got.FacilityGroups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got.FacilityGroups))
	}
	bathroom := got.FacilityGroups[0]
	if bathroom.Name != "Bathroom" {
		t.Fatalf("first-seen group name lost: %q", bathroom.Name)
	}
	if bathroom.Description != "Private bathrooms throughout" {
		t.Fatalf("description = %q", bathroom.Description)
	}
	wantFacilities := []string{"Towels", "Shower", "Hairdryer"}
	if !reflect.DeepEqual(bathroom.Facilities, wantFacilities) {
		t.Fatalf("bathroom facilities = %v, want %v", bathroom.Facilities, wantFacilities)
	}
}

func TestMergeKeepsLongestDescription(t *testing.T) {
	long := "A longer blurb about the spa and wellness area"
	snaps := []models.DetailSnapshot{
		{Stage: models.StageInitial, Details: models.HotelDetails{
			FacilityGroups: []models.FacilityGroup{{Name: "Spa", Description: long}},
		}},
		{Stage: models.StageRetry, Details: models.HotelDetails{
			FacilityGroups: []models.FacilityGroup{{Name: "Spa", Description: "Short"}},
		}},
	}
	got := Merge(snaps)
	if got.FacilityGroups[0].Description != long {
		t.Fatalf("description = %q", got.FacilityGroups[0].Description)
	}
}

func TestMergePOIDedupByNameAndDistance(t *testing.T) {
	snaps := []models.DetailSnapshot{
		{Stage: models.StageInitial, Details: models.HotelDetails{
			AreaInfo: []models.POICategory{{Name: "What's nearby", POIs: []models.POI{
				{Name: "City Park", Distance: "300 m"},
			}}},
		}},
		{Stage: models.StageRendered, Details: models.HotelDetails{
			AreaInfo: []models.POICategory{{Name: "what's nearby", POIs: []models.POI{
				{Name: "city park", Distance: "300 m"},
				{Name: "City Park", Distance: "1.8 km"},
			}}},
		}},
	}
	got := Merge(snaps)
	if len(got.AreaInfo) != 1 {
		t.Fatalf("expected 1 category, got %d", len(got.AreaInfo))
	}
	pois := got.AreaInfo[0].POIs
	// Same name at a different distance is a different place.
	if len(pois) != 2 {
		t.Fatalf("pois = %v", pois)
	}
}

func TestMergePhotoDedupAndCap(t *testing.T) {
	var initial, rendered []string
	for i := 0; i < 10; i++ {
		initial = append(initial, fmt.Sprintf("https://cf.example.com/images/hotel/max500/10000000%d.jpg?k=abc", i))
	}
	// Same first three images at another size variant, plus eight new ones.
	for i := 0; i < 3; i++ {
		rendered = append(rendered, fmt.Sprintf("https://cf.example.com/images/hotel/square240/10000000%d.jpg", i))
	}
	for i := 10; i < 18; i++ {
		rendered = append(rendered, fmt.Sprintf("https://cf.example.com/images/hotel/max500/1000000%d.jpg", i))
	}

	got := Merge([]models.DetailSnapshot{
		{Stage: models.StageInitial, Details: models.HotelDetails{PhotoURLs: initial}},
		{Stage: models.StageRendered, Details: models.HotelDetails{PhotoURLs: rendered}},
	})

	if len(got.PhotoURLs) != MaxPhotos {
		t.Fatalf("expected %d photos, got %d", MaxPhotos, len(got.PhotoURLs))
	}
	seen := make(map[string]bool)
	for _, u := range got.PhotoURLs {
		if seen[u] {
			t.Fatalf("duplicate photo %s", u)
		}
		seen[u] = true
	}
	// All normalized to the preferred size variant, queries stripped.
	for _, u := range got.PhotoURLs {
		if want := "https://cf.example.com/images/hotel/max1024x768/"; u[:len(want)] != want {
			t.Fatalf("photo not normalized: %s", u)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	snap := models.DetailSnapshot{
		Stage: models.StageInitial,
		Details: models.HotelDetails{
			PopularFacilities: []string{"Free WiFi", "Bar"},
			FacilityGroups: []models.FacilityGroup{
				{Name: "Food & Drink", Description: "Breakfast available", Facilities: []string{"Bar", "Restaurant"}},
			},
			AreaInfo: []models.POICategory{
				{Name: "Top attractions", POIs: []models.POI{{Name: "Old Town", Distance: "1 km"}}},
			},
			PhotoURLs: []string{"https://cf.example.com/images/hotel/max500/123456789.jpg"},
		},
	}

	once := Merge([]models.DetailSnapshot{snap})
	twice := Merge([]models.DetailSnapshot{snap, snap})
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	got := Merge(nil)
	if !got.Empty() {
		t.Fatalf("expected empty details, got %+v", got)
	}
}
