package compare

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"staylens/models"
)

// TopFacilitiesSection is the pinned section built from each listing's
// popular-facilities list.
const TopFacilitiesSection = "Top facilities"

// MatrixOptions narrows the rendered matrix. Section filtering matches
// case-insensitively; DiffOnly hides rows where every listing agrees.
type MatrixOptions struct {
	Section  string
	DiffOnly bool
}

var matrixSpaceRun = regexp.MustCompile(`\s+`)

// normCell collapses whitespace and case so cosmetic variation between
// snapshots does not register as a difference.
func normCell(s string) string {
	return strings.ToLower(strings.TrimSpace(matrixSpaceRun.ReplaceAllString(s, " ")))
}

// Matrix renders the comparison table from the current selection and
// whatever details have been captured so far. Missing details simply
// yield absent cells, never an error.
func (m *Manager) Matrix(opts MatrixOptions) models.CompareMatrix {
	entries, details := m.snapshot()

	matrix := models.CompareMatrix{Entries: entries}
	if len(entries) == 0 {
		return matrix
	}

	matrix.Fields = fieldRows(entries)
	matrix.Sections = append(matrix.Sections, popularSection(entries, details))
	matrix.Sections = append(matrix.Sections, facilitySections(entries, details)...)
	matrix.Sections = append(matrix.Sections, areaSections(entries, details)...)

	sort.SliceStable(matrix.Sections, func(i, j int) bool {
		if matrix.Sections[i].Pinned != matrix.Sections[j].Pinned {
			return matrix.Sections[i].Pinned
		}
		return strings.ToLower(matrix.Sections[i].Name) < strings.ToLower(matrix.Sections[j].Name)
	})

	matrix.Sections = applyFilters(matrix.Sections, opts)
	return matrix
}

func applyFilters(sections []models.FeatureSection, opts MatrixOptions) []models.FeatureSection {
	out := sections[:0:0]
	for _, sec := range sections {
		if opts.Section != "" && !strings.EqualFold(sec.Name, opts.Section) {
			continue
		}
		if opts.DiffOnly {
			rows := sec.Rows[:0:0]
			for _, row := range sec.Rows {
				if row.Differs {
					rows = append(rows, row)
				}
			}
			sec.Rows = rows
		}
		// A section with nothing left to show is dropped, not rendered
		// as an empty shell.
		if len(sec.Rows) == 0 {
			continue
		}
		out = append(out, sec)
	}
	return out
}

func fieldRows(entries []models.CompareEntry) []models.FeatureRow {
	texts := func(f func(models.CompareEntry) string) []models.FeatureCell {
		cells := make([]models.FeatureCell, len(entries))
		for i, e := range entries {
			t := f(e)
			cells[i] = models.FeatureCell{Text: t, Present: t != ""}
		}
		return cells
	}
	rows := []models.FeatureRow{
		{Label: "Price", Cells: texts(func(e models.CompareEntry) string {
			if e.Price <= 0 {
				return ""
			}
			return strings.TrimSpace(fmt.Sprintf("%s %.0f", e.Currency, e.Price))
		})},
		{Label: "Rating", Cells: texts(func(e models.CompareEntry) string {
			if e.Rating <= 0 {
				return ""
			}
			return fmt.Sprintf("%.1f", e.Rating)
		})},
		{Label: "Reviews", Cells: texts(func(e models.CompareEntry) string {
			if e.ReviewCount <= 0 {
				return ""
			}
			return fmt.Sprintf("%d", e.ReviewCount)
		})},
		{Label: "Location", Cells: texts(func(e models.CompareEntry) string { return e.Location })},
		{Label: "Stay", Cells: texts(func(e models.CompareEntry) string { return e.StaySummary })},
	}
	for i := range rows {
		rows[i].Differs = textDiffers(rows[i].Cells)
	}
	return rows
}

func popularSection(entries []models.CompareEntry, details map[string]models.HotelDetails) models.FeatureSection {
	perEntry := make([]map[string]bool, len(entries))
	var labels []string
	seen := make(map[string]bool)
	for i, e := range entries {
		perEntry[i] = make(map[string]bool)
		for _, f := range details[e.ID].PopularFacilities {
			key := normCell(f)
			perEntry[i][key] = true
			if !seen[key] {
				seen[key] = true
				labels = append(labels, strings.TrimSpace(f))
			}
		}
	}
	return models.FeatureSection{
		Name:   TopFacilitiesSection,
		Pinned: true,
		Rows:   booleanRows(labels, perEntry),
	}
}

func facilitySections(entries []models.CompareEntry, details map[string]models.HotelDetails) []models.FeatureSection {
	type group struct {
		name     string
		perEntry []map[string]bool
		labels   []string
		seen     map[string]bool
	}
	groups := make(map[string]*group)
	for i, e := range entries {
		for _, fg := range details[e.ID].FacilityGroups {
			key := normCell(fg.Name)
			g, ok := groups[key]
			if !ok {
				g = &group{
					name:     strings.TrimSpace(fg.Name),
					perEntry: make([]map[string]bool, len(entries)),
					seen:     make(map[string]bool),
				}
				groups[key] = g
			}
			if g.perEntry[i] == nil {
				g.perEntry[i] = make(map[string]bool)
			}
			for _, f := range fg.Facilities {
				fk := normCell(f)
				g.perEntry[i][fk] = true
				if !g.seen[fk] {
					g.seen[fk] = true
					g.labels = append(g.labels, strings.TrimSpace(f))
				}
			}
		}
	}

	out := make([]models.FeatureSection, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.FeatureSection{
			Name: g.name,
			Rows: booleanRows(g.labels, g.perEntry),
		})
	}
	return out
}

func areaSections(entries []models.CompareEntry, details map[string]models.HotelDetails) []models.FeatureSection {
	type category struct {
		name     string
		perEntry []map[string]string // poi name -> distance
		labels   []string
		seen     map[string]bool
	}
	categories := make(map[string]*category)
	for i, e := range entries {
		for _, cat := range details[e.ID].AreaInfo {
			key := normCell(cat.Name)
			c, ok := categories[key]
			if !ok {
				c = &category{
					name:     strings.TrimSpace(cat.Name),
					perEntry: make([]map[string]string, len(entries)),
					seen:     make(map[string]bool),
				}
				categories[key] = c
			}
			if c.perEntry[i] == nil {
				c.perEntry[i] = make(map[string]string)
			}
			for _, poi := range cat.POIs {
				pk := normCell(poi.Name)
				if _, dup := c.perEntry[i][pk]; !dup {
					c.perEntry[i][pk] = poi.Distance
				}
				if !c.seen[pk] {
					c.seen[pk] = true
					c.labels = append(c.labels, strings.TrimSpace(poi.Name))
				}
			}
		}
	}

	out := make([]models.FeatureSection, 0, len(categories))
	for _, c := range categories {
		rows := make([]models.FeatureRow, 0, len(c.labels))
		sort.Slice(c.labels, func(i, j int) bool {
			return strings.ToLower(c.labels[i]) < strings.ToLower(c.labels[j])
		})
		for _, label := range c.labels {
			row := models.FeatureRow{Label: label, Cells: make([]models.FeatureCell, len(c.perEntry))}
			for i := range c.perEntry {
				if dist, ok := c.perEntry[i][normCell(label)]; ok {
					row.Cells[i] = models.FeatureCell{Text: dist, Present: true}
				}
			}
			row.Differs = textDiffers(row.Cells)
			rows = append(rows, row)
		}
		out = append(out, models.FeatureSection{Name: c.name, Rows: rows})
	}
	return out
}

func booleanRows(labels []string, perEntry []map[string]bool) []models.FeatureRow {
	sort.Slice(labels, func(i, j int) bool {
		return strings.ToLower(labels[i]) < strings.ToLower(labels[j])
	})
	rows := make([]models.FeatureRow, 0, len(labels))
	for _, label := range labels {
		row := models.FeatureRow{Label: label, Cells: make([]models.FeatureCell, len(perEntry))}
		key := normCell(label)
		for i := range perEntry {
			present := perEntry[i] != nil && perEntry[i][key]
			row.Cells[i] = models.FeatureCell{Present: present, Boolean: true}
		}
		row.Differs = booleanDiffers(row.Cells)
		rows = append(rows, row)
	}
	return rows
}

func booleanDiffers(cells []models.FeatureCell) bool {
	for i := 1; i < len(cells); i++ {
		if cells[i].Present != cells[0].Present {
			return true
		}
	}
	return false
}

// textDiffers treats a missing value against a present one as a
// difference, and otherwise compares normalized text.
func textDiffers(cells []models.FeatureCell) bool {
	for i := 1; i < len(cells); i++ {
		if cells[i].Present != cells[0].Present {
			return true
		}
		if normCell(cells[i].Text) != normCell(cells[0].Text) {
			return true
		}
	}
	return false
}
