package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"staylens/models"
)

// Structural selectors for the detail page, most specific first. The same
// three-tier waterfall applies per data kind: markup, then the embedded
// client-render tree, then the flattened client cache.
var (
	popularFacilitySelectors = []string{
		"[data-testid='property-most-popular-facilities-wrapper'] li",
		".hp_desc_important_facilities .important_facility",
	}
	facilityGroupSelectors = []string{
		"[data-testid='facility-group-container']",
		".facilitiesChecklistSection",
	}
	poiBlockSelectors = []string{
		"[data-testid='poi-block']",
		".hp_location_block .location_block_list",
	}
	photoSelectors = []string{
		"[data-testid='gallery'] img",
		"a[data-thumb-url]",
		".bh-photo-grid img",
		"img[src*='/hotel/']",
	}
)

var (
	facilityGroupKey = regexp.MustCompile(`(?i)facilit(y|ies)_?group`)
	poiGroupKey      = regexp.MustCompile(`(?i)(poi_?block|location_?group|point_?of_?interest)`)
)

// ExtractDetails pulls one detail snapshot's worth of facilities, area info
// and photos out of a parsed listing page.
func ExtractDetails(doc *goquery.Document) models.HotelDetails {
	d := models.HotelDetails{
		PopularFacilities: extractPopularFacilities(doc),
		FacilityGroups:    extractFacilityGroupsMarkup(doc),
		AreaInfo:          extractAreaInfoMarkup(doc),
		PhotoURLs:         extractPhotosMarkup(doc),
	}

	if len(d.FacilityGroups) > 0 && len(d.AreaInfo) > 0 {
		return d
	}

	roots := embeddedJSONRoots(doc)
	for _, root := range roots {
		if len(d.FacilityGroups) == 0 {
			d.FacilityGroups = facilityGroupsFromTree(root)
		}
		if len(d.AreaInfo) == 0 {
			d.AreaInfo = areaInfoFromTree(root)
		}
		if len(d.PhotoURLs) == 0 {
			d.PhotoURLs = photosFromTree(root)
		}
	}
	for _, root := range roots {
		if len(d.FacilityGroups) == 0 {
			d.FacilityGroups = facilityGroupsFromFlatCache(root)
		}
		if len(d.AreaInfo) == 0 {
			d.AreaInfo = areaInfoFromFlatCache(root)
		}
	}
	return d
}

func extractPopularFacilities(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	for _, sel := range popularFacilitySelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := collapseSpace(s.Text())
			lower := strings.ToLower(text)
			if text != "" && !seen[lower] {
				seen[lower] = true
				out = append(out, text)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func extractFacilityGroupsMarkup(doc *goquery.Document) []models.FacilityGroup {
	var out []models.FacilityGroup
	for _, sel := range facilityGroupSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			name := collapseSpace(s.Find("h2, h3, h4, .facilitiesChecklistSectionHead").First().Text())
			if name == "" {
				return
			}
			group := models.FacilityGroup{Name: name}
			seen := make(map[string]bool)
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				item := collapseSpace(li.Text())
				lower := strings.ToLower(item)
				if item != "" && !seen[lower] {
					seen[lower] = true
					group.Facilities = append(group.Facilities, item)
				}
			})
			if desc := collapseSpace(s.Find("p").First().Text()); desc != "" {
				group.Description = desc
			}
			if len(group.Facilities) > 0 || group.Description != "" {
				out = append(out, group)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func extractAreaInfoMarkup(doc *goquery.Document) []models.POICategory {
	var out []models.POICategory
	for _, sel := range poiBlockSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			name := collapseSpace(s.Find("h3, h4, .bui-title__text").First().Text())
			if name == "" {
				name = "What's nearby"
			}
			cat := models.POICategory{Name: name}
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				poi := poiFromRow(li)
				if poi.Name != "" {
					cat.POIs = append(cat.POIs, poi)
				}
			})
			if len(cat.POIs) > 0 {
				out = append(out, cat)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func poiFromRow(li *goquery.Selection) models.POI {
	poi := models.POI{
		Name:     collapseSpace(li.Find("[data-testid='poi-name'], .poi_name").First().Text()),
		Distance: collapseSpace(li.Find("[data-testid='distance'], .poi_distance").First().Text()),
		Type:     collapseSpace(li.Find("[data-testid='poi-type'], .poi_type").First().Text()),
	}
	if poi.Name != "" {
		return poi
	}
	// Generic row: name in the first span, distance in the last.
	spans := li.Find("span")
	if spans.Length() >= 2 {
		poi.Name = collapseSpace(spans.First().Text())
		poi.Distance = collapseSpace(spans.Last().Text())
	} else {
		poi.Name = collapseSpace(li.Text())
	}
	return poi
}

func extractPhotosMarkup(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || strings.HasPrefix(u, "data:") || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	for _, sel := range photoSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("data-thumb-url"); ok {
				add(v)
				return
			}
			if v, ok := s.Attr("src"); ok {
				add(v)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

// extractOfferPrices parses JSON-LD blocks for offer prices. Malformed
// blocks are skipped; the caller falls through to the next tier.
func extractOfferPrices(doc *goquery.Document) []float64 {
	var out []float64
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		out = append(out, offerPrices(v, 0)...)
	})
	return out
}

func offerPrices(v any, depth int) []float64 {
	if depth > maxWalkDepth {
		return nil
	}
	var out []float64
	switch n := v.(type) {
	case map[string]any:
		for _, key := range []string{"price", "lowPrice", "highPrice"} {
			if f, ok := numericValue(n[key]); ok && f > minSanePrice && f < maxSanePrice {
				out = append(out, f)
			}
		}
		if offers, ok := n["offers"]; ok {
			out = append(out, offerPrices(offers, depth+1)...)
		}
		if graph, ok := n["@graph"]; ok {
			out = append(out, offerPrices(graph, depth+1)...)
		}
	case []any:
		for _, el := range n {
			out = append(out, offerPrices(el, depth+1)...)
		}
	}
	return out
}

// facilityGroupsFromTree maps generic named arrays in the client-render
// tree onto facility groups: elements carrying a string list.
func facilityGroupsFromTree(root any) []models.FacilityGroup {
	var out []models.FacilityGroup
	for _, arr := range findNamedArrays(root) {
		for _, item := range arr.items {
			g := facilityGroupFromRecord(item)
			if g.Name != "" && len(g.Facilities) > 0 {
				out = append(out, g)
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out
}

func facilityGroupFromRecord(item map[string]any) models.FacilityGroup {
	g := models.FacilityGroup{
		Name:        stringField(item, "name", "title"),
		Description: stringField(item, "description", "desc"),
	}
	for _, v := range item {
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		var items []string
		poiLike := false
		for _, el := range arr {
			switch e := el.(type) {
			case string:
				if s := strings.TrimSpace(e); s != "" {
					items = append(items, s)
				}
			case map[string]any:
				// Records with a distance are POIs, not facilities.
				if stringField(e, "distance", "distanceText") != "" {
					poiLike = true
				} else if s := stringField(e, "name", "title"); s != "" {
					items = append(items, s)
				}
			}
			if poiLike {
				break
			}
		}
		if !poiLike && len(items) > 0 {
			g.Facilities = items
			break
		}
	}
	return g
}

// areaInfoFromTree maps named arrays whose elements carry distances onto
// POI categories.
func areaInfoFromTree(root any) []models.POICategory {
	var out []models.POICategory
	for _, arr := range findNamedArrays(root) {
		for _, item := range arr.items {
			cat := poiCategoryFromRecord(item)
			if cat.Name != "" && len(cat.POIs) > 0 {
				out = append(out, cat)
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out
}

func poiCategoryFromRecord(item map[string]any) models.POICategory {
	cat := models.POICategory{Name: stringField(item, "name", "title")}
	for _, v := range item {
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		for _, el := range arr {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			poi := models.POI{
				Name:     stringField(m, "name", "title"),
				Distance: stringField(m, "distance", "distanceText"),
				Type:     stringField(m, "type", "poiType"),
			}
			if poi.Name != "" && poi.Distance != "" {
				cat.POIs = append(cat.POIs, poi)
			}
		}
		if len(cat.POIs) > 0 {
			break
		}
	}
	return cat
}

func facilityGroupsFromFlatCache(root any) []models.FacilityGroup {
	var out []models.FacilityGroup
	for _, rec := range flattenedRecords(root, facilityGroupKey) {
		g := facilityGroupFromRecord(rec)
		if g.Name != "" && len(g.Facilities) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func areaInfoFromFlatCache(root any) []models.POICategory {
	var out []models.POICategory
	for _, rec := range flattenedRecords(root, poiGroupKey) {
		cat := poiCategoryFromRecord(rec)
		if cat.Name != "" && len(cat.POIs) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

var imageURL = regexp.MustCompile(`(?i)^https?://\S+\.(jpe?g|png|webp)(\?\S*)?$`)

// photosFromTree collects image URLs from the client-render tree, bounded
// like the other walks.
func photosFromTree(root any) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(node any, depth int)
	walk = func(node any, depth int) {
		if depth > maxWalkDepth || len(out) >= maxWalkResults {
			return
		}
		switch n := node.(type) {
		case map[string]any:
			for _, v := range n {
				walk(v, depth+1)
			}
		case []any:
			for _, v := range n {
				walk(v, depth+1)
			}
		case string:
			if imageURL.MatchString(n) && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	walk(root, 0)
	return out
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
