// Package details captures and reconciles hotel detail snapshots. A
// listing can be fetched up to three times (plain, retry, rendered) and
// each pass may see a different slice of the page, so the merger unions
// the snapshots instead of preferring any single one.
package details

import (
	"sort"
	"strings"

	"staylens/identity"
	"staylens/models"
)

// MaxPhotos caps the merged photo list.
const MaxPhotos = 12

// Merge folds snapshots into one detail record. Order matters only for
// tie-breaking: first-seen names keep their casing and position, and the
// stages are walked in capture order.
func Merge(snapshots []models.DetailSnapshot) models.HotelDetails {
	ordered := make([]models.DetailSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return stageRank(ordered[i].Stage) < stageRank(ordered[j].Stage)
	})

	var out models.HotelDetails
	for _, snap := range ordered {
		mergePopular(&out, snap.Details.PopularFacilities)
		mergeGroups(&out, snap.Details.FacilityGroups)
		mergeAreaInfo(&out, snap.Details.AreaInfo)
		out.PhotoURLs = append(out.PhotoURLs, snap.Details.PhotoURLs...)
	}
	out.PhotoURLs = dedupePhotos(out.PhotoURLs)
	return out
}

func stageRank(stage models.SnapshotStage) int {
	switch stage {
	case models.StageInitial:
		return 0
	case models.StageRetry:
		return 1
	case models.StageRendered:
		return 2
	}
	return 3
}

func mergePopular(out *models.HotelDetails, items []string) {
	seen := make(map[string]bool, len(out.PopularFacilities))
	for _, f := range out.PopularFacilities {
		seen[strings.ToLower(f)] = true
	}
	for _, f := range items {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.PopularFacilities = append(out.PopularFacilities, strings.TrimSpace(f))
	}
}

func mergeGroups(out *models.HotelDetails, groups []models.FacilityGroup) {
	for _, g := range groups {
		idx := -1
		for i := range out.FacilityGroups {
			if strings.EqualFold(out.FacilityGroups[i].Name, g.Name) {
				idx = i
				break
			}
		}
		if idx == -1 {
			out.FacilityGroups = append(out.FacilityGroups, models.FacilityGroup{
				Name:        g.Name,
				Description: g.Description,
				Facilities:  dedupeStrings(g.Facilities),
			})
			continue
		}
		dst := &out.FacilityGroups[idx]
		// The longer description is assumed to be the less truncated one.
		if len(g.Description) > len(dst.Description) {
			dst.Description = g.Description
		}
		dst.Facilities = dedupeStrings(append(dst.Facilities, g.Facilities...))
	}
}

func mergeAreaInfo(out *models.HotelDetails, categories []models.POICategory) {
	for _, c := range categories {
		idx := -1
		for i := range out.AreaInfo {
			if strings.EqualFold(out.AreaInfo[i].Name, c.Name) {
				idx = i
				break
			}
		}
		if idx == -1 {
			out.AreaInfo = append(out.AreaInfo, models.POICategory{
				Name: c.Name,
				POIs: dedupePOIs(c.POIs),
			})
			continue
		}
		out.AreaInfo[idx].POIs = dedupePOIs(append(out.AreaInfo[idx].POIs, c.POIs...))
	}
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, s := range items {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// dedupePOIs keeps one POI per (name, distance) pair. The same name at
// two distances is two real places.
func dedupePOIs(pois []models.POI) []models.POI {
	seen := make(map[string]bool, len(pois))
	out := pois[:0:0]
	for _, p := range pois {
		key := strings.ToLower(p.Name) + "|" + strings.ToLower(p.Distance)
		if p.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// dedupePhotos normalizes URLs to the preferred size variant, drops
// duplicates of the same underlying image and caps the result.
func dedupePhotos(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0:0]
	for _, u := range urls {
		norm := identity.NormalizePhotoURL(u)
		if norm == "" {
			continue
		}
		key := identity.PhotoKey(norm)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, norm)
		if len(out) == MaxPhotos {
			break
		}
	}
	return out
}
