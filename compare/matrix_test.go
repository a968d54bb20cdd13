package compare

import (
	"testing"

	"staylens/models"
)

func addWithDetails(t *testing.T, m *Manager, n int, details models.HotelDetails) {
	t.Helper()
	e := entry(n)
	e.Price = float64(100 + n*20)
	e.Currency = "EUR"
	if err := m.Add(e); err != nil {
		t.Fatalf("add: %v", err)
	}
	m.SetDetails(m.Entries()[len(m.Entries())-1].ID, details)
}

func sectionByName(t *testing.T, sections []models.FeatureSection, name string) models.FeatureSection {
	t.Helper()
	for _, s := range sections {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("section %q not found in %d sections", name, len(sections))
	return models.FeatureSection{}
}

func rowByLabel(t *testing.T, rows []models.FeatureRow, label string) models.FeatureRow {
	t.Helper()
	for _, r := range rows {
		if r.Label == label {
			return r
		}
	}
	t.Fatalf("row %q not found", label)
	return models.FeatureRow{}
}

func TestMatrixBooleanRowsAndDiffers(t *testing.T) {
	m := newTestManager(t)
	addWithDetails(t, m, 1, models.HotelDetails{
		PopularFacilities: []string{"Free WiFi", "Swimming pool"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Bathroom", Facilities: []string{"Towels", "Shower"}},
		},
	})
	addWithDetails(t, m, 2, models.HotelDetails{
		PopularFacilities: []string{"free  wifi"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "bathroom", Facilities: []string{"Towels"}},
		},
	})

	matrix := m.Matrix(MatrixOptions{})
	if len(matrix.Entries) != 2 {
		t.Fatalf("entries = %d", len(matrix.Entries))
	}

	top := matrix.Sections[0]
	if top.Name != TopFacilitiesSection || !top.Pinned {
		t.Fatalf("first section = %+v", top)
	}
	// Case and whitespace variants collapse into one row with both present.
	wifi := rowByLabel(t, top.Rows, "Free WiFi")
	if wifi.Differs || !wifi.Cells[0].Present || !wifi.Cells[1].Present {
		t.Fatalf("wifi row = %+v", wifi)
	}
	pool := rowByLabel(t, top.Rows, "Swimming pool")
	if !pool.Differs || pool.Cells[1].Present {
		t.Fatalf("pool row = %+v", pool)
	}

	bathroom := sectionByName(t, matrix.Sections, "Bathroom")
	if rowByLabel(t, bathroom.Rows, "Towels").Differs {
		t.Fatal("towels present in both, must not differ")
	}
	if !rowByLabel(t, bathroom.Rows, "Shower").Differs {
		t.Fatal("shower present in one, must differ")
	}
}

func TestMatrixDiffOnlyHidesAgreement(t *testing.T) {
	m := newTestManager(t)
	same := models.HotelDetails{
		PopularFacilities: []string{"Free WiFi", "Bar"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Internet", Facilities: []string{"WiFi in all areas"}},
		},
	}
	addWithDetails(t, m, 1, same)
	addWithDetails(t, m, 2, same)

	matrix := m.Matrix(MatrixOptions{DiffOnly: true})
	if len(matrix.Sections) != 0 {
		t.Fatalf("identical selections left %d section shells: %+v", len(matrix.Sections), matrix.Sections)
	}
}

func TestMatrixDiffOnlyKeepsDifferingSections(t *testing.T) {
	m := newTestManager(t)
	addWithDetails(t, m, 1, models.HotelDetails{
		PopularFacilities: []string{"Free WiFi", "Bar"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Internet", Facilities: []string{"WiFi in all areas"}},
		},
	})
	addWithDetails(t, m, 2, models.HotelDetails{
		PopularFacilities: []string{"Free WiFi"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Internet", Facilities: []string{"WiFi in all areas"}},
		},
	})

	matrix := m.Matrix(MatrixOptions{DiffOnly: true})
	if len(matrix.Sections) != 1 || matrix.Sections[0].Name != TopFacilitiesSection {
		t.Fatalf("sections = %+v", matrix.Sections)
	}
	rows := matrix.Sections[0].Rows
	if len(rows) != 1 || rows[0].Label != "Bar" || !rows[0].Differs {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestMatrixSectionFilter(t *testing.T) {
	m := newTestManager(t)
	addWithDetails(t, m, 1, models.HotelDetails{
		PopularFacilities: []string{"Bar"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Internet", Facilities: []string{"WiFi"}},
			{Name: "Parking", Facilities: []string{"Garage"}},
		},
	})

	matrix := m.Matrix(MatrixOptions{Section: "internet"})
	if len(matrix.Sections) != 1 || matrix.Sections[0].Name != "Internet" {
		t.Fatalf("sections = %+v", matrix.Sections)
	}
}

func TestMatrixAreaDistances(t *testing.T) {
	m := newTestManager(t)
	addWithDetails(t, m, 1, models.HotelDetails{
		AreaInfo: []models.POICategory{
			{Name: "Top attractions", POIs: []models.POI{{Name: "Old Town", Distance: "500 m"}}},
		},
	})
	addWithDetails(t, m, 2, models.HotelDetails{
		AreaInfo: []models.POICategory{
			{Name: "top attractions", POIs: []models.POI{{Name: "old town", Distance: "2.1 km"}}},
		},
	})

	matrix := m.Matrix(MatrixOptions{})
	attractions := sectionByName(t, matrix.Sections, "Top attractions")
	row := rowByLabel(t, attractions.Rows, "Old Town")
	if !row.Differs {
		t.Fatal("different distances must differ")
	}
	if row.Cells[0].Text != "500 m" || row.Cells[1].Text != "2.1 km" {
		t.Fatalf("cells = %+v", row.Cells)
	}
}

func TestMatrixSectionsSortedAfterPinned(t *testing.T) {
	m := newTestManager(t)
	addWithDetails(t, m, 1, models.HotelDetails{
		PopularFacilities: []string{"Bar"},
		FacilityGroups: []models.FacilityGroup{
			{Name: "Parking", Facilities: []string{"Garage"}},
			{Name: "Bathroom", Facilities: []string{"Towels"}},
		},
	})

	matrix := m.Matrix(MatrixOptions{})
	if matrix.Sections[0].Name != TopFacilitiesSection {
		t.Fatalf("pinned section not first: %q", matrix.Sections[0].Name)
	}
	if matrix.Sections[1].Name != "Bathroom" || matrix.Sections[2].Name != "Parking" {
		t.Fatalf("sections not alphabetical: %q, %q", matrix.Sections[1].Name, matrix.Sections[2].Name)
	}
}

func TestMatrixEmptySelection(t *testing.T) {
	m := newTestManager(t)
	matrix := m.Matrix(MatrixOptions{})
	if len(matrix.Entries) != 0 || len(matrix.Sections) != 0 || len(matrix.Fields) != 0 {
		t.Fatalf("matrix = %+v", matrix)
	}
}
