package models

import "time"

// POI is one point of interest near a listing.
type POI struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Distance string `json:"distance"`
}

// POICategory groups POIs under a section heading ("What's nearby", etc.).
type POICategory struct {
	Name string `json:"name"`
	POIs []POI  `json:"pois"`
}

// FacilityGroup is one named block of facilities with an optional blurb.
type FacilityGroup struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Facilities  []string `json:"facilities"`
}

// HotelDetails is the canonical detail record for one listing, built by
// merging up to three partial snapshots.
type HotelDetails struct {
	PopularFacilities []string        `json:"popular_facilities"`
	FacilityGroups    []FacilityGroup `json:"facility_groups"`
	AreaInfo          []POICategory   `json:"area_info"`
	PhotoURLs         []string        `json:"photo_urls"`
}

// Sparse reports whether a snapshot is thin enough to justify a retry fetch.
func (d *HotelDetails) Sparse() bool {
	return len(d.PopularFacilities)+totalFacilities(d.FacilityGroups) < 5 && len(d.AreaInfo) == 0
}

// Empty reports whether the snapshot carries no data at all.
func (d *HotelDetails) Empty() bool {
	return len(d.PopularFacilities) == 0 && len(d.FacilityGroups) == 0 &&
		len(d.AreaInfo) == 0 && len(d.PhotoURLs) == 0
}

func totalFacilities(groups []FacilityGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Facilities)
	}
	return n
}

// SnapshotStage identifies which fetch attempt produced a snapshot.
type SnapshotStage string

const (
	StageInitial  SnapshotStage = "initial"
	StageRetry    SnapshotStage = "retry"
	StageRendered SnapshotStage = "rendered"
)

// DetailSnapshot is one fetch attempt's worth of detail data, prior to merging.
type DetailSnapshot struct {
	Stage     SnapshotStage `json:"stage"`
	Details   HotelDetails  `json:"details"`
	FetchedAt time.Time     `json:"fetched_at"`
}
