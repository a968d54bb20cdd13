// Package identity derives stable identifiers from listing and photo URLs,
// so the same entity is recognized across fetches that decorate URLs with
// volatile query parameters.
package identity

import (
	"net/url"
	"regexp"
	"strings"
)

// sizeSegment matches the size-variant path segment hotel CDNs embed in
// photo URLs ("max500", "max1024x768", "square60", ...).
var sizeSegment = regexp.MustCompile(`^(max|square)[0-9]+(x[0-9]+)?$`)

// photoID matches a long numeric id embedded in a photo path.
var photoID = regexp.MustCompile(`([0-9]{6,})`)

// PreferredPhotoSize is the size variant every merged photo URL is
// canonicalized to.
const PreferredPhotoSize = "max1024x768"

// ListingID returns the stable identifier for a listing URL: the URL path
// with query and fragment stripped and the trailing slash trimmed. Relative
// paths are returned as-is.
func ListingID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// NormalizePhotoURL strips query and fragment and rewrites any size-variant
// path segment to PreferredPhotoSize, so the same image fetched at
// different sizes collapses to one URL.
func NormalizePhotoURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.RawQuery = ""
	u.Fragment = ""

	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if sizeSegment.MatchString(p) {
			parts[i] = PreferredPhotoSize
		}
	}
	u.Path = strings.Join(parts, "/")
	return u.String()
}

// PhotoKey returns the dedup identifier for a photo URL: the numeric id
// embedded in the path when present, else the normalized path.
func PhotoKey(rawURL string) string {
	norm := NormalizePhotoURL(rawURL)
	u, err := url.Parse(norm)
	if err != nil {
		return norm
	}
	if m := photoID.FindString(u.Path); m != "" {
		return m
	}
	return u.Path
}
