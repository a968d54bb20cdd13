package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Hard ceilings for walking untrusted embedded JSON. Pathological trees
// (cyclic ref graphs flattened into huge arrays) must not stall the
// pipeline, so both bounds are mandatory, not tuning knobs.
const (
	maxWalkDepth   = 12
	maxWalkResults = 60
)

// priceKey matches object keys that carry a price-like amount in the
// client-render state tree.
var priceKey = regexp.MustCompile(`(?i)^(gross_?|all_?inclusive_?|total_?|display_?)?(price|amount)(_?per_?night|_?value)?$`)

// embeddedJSONRoots decodes every script block that plausibly holds the
// client-render state: application/json payloads plus inline assignments
// like "window.__X__ = {...}". Malformed blocks are skipped silently; the
// waterfall just moves on.
func embeddedJSONRoots(doc *goquery.Document) []any {
	var roots []any

	doc.Find("script[type='application/json']").Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err == nil {
			roots = append(roots, v)
		}
	})

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "window.__") {
			return
		}
		if v, ok := decodeInlineAssignment(text); ok {
			roots = append(roots, v)
		}
	})

	return roots
}

// decodeInlineAssignment pulls the JSON object literal out of a
// "window.__NAME__ = {...};" script body.
func decodeInlineAssignment(text string) (any, bool) {
	eq := strings.Index(text, "=")
	if eq < 0 {
		return nil, false
	}
	body := strings.TrimSpace(text[eq+1:])
	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return nil, false
	}
	body = strings.TrimSuffix(strings.TrimSpace(body[start:]), ";")

	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, false
	}
	return v, true
}

// findPriceValues walks a decoded JSON tree collecting values under
// price-like keys, bounded by maxWalkDepth and maxWalkResults.
func findPriceValues(root any) []float64 {
	var out []float64
	var walk func(node any, depth int)
	walk = func(node any, depth int) {
		if depth > maxWalkDepth || len(out) >= maxWalkResults {
			return
		}
		switch n := node.(type) {
		case map[string]any:
			for k, v := range n {
				if len(out) >= maxWalkResults {
					return
				}
				if priceKey.MatchString(k) {
					if f, ok := numericValue(v); ok && f > minSanePrice && f < maxSanePrice {
						out = append(out, f)
						continue
					}
				}
				walk(v, depth+1)
			}
		case []any:
			for _, v := range n {
				if len(out) >= maxWalkResults {
					return
				}
				walk(v, depth+1)
			}
		}
	}
	walk(root, 0)
	return out
}

// numericValue coerces the shapes price values show up in: plain numbers,
// numeric strings, and {"value": n} wrappers.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if f := ParsePrice(n); f > 0 {
			return f, true
		}
	case map[string]any:
		if inner, ok := n["value"]; ok {
			if f, ok := numericValue(inner); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// namedArray is an array found in the state tree whose elements all carry a
// name/title plus either a list-like field or a description, the generic
// shape of facility groups and POI categories.
type namedArray struct {
	items []map[string]any
}

// findNamedArrays walks the tree for arrays of named records, bounded the
// same way as the price walk.
func findNamedArrays(root any) []namedArray {
	var out []namedArray
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
			if items, ok := asNamedRecords(n); ok {
				out = append(out, namedArray{items: items})
				return
			}
			for _, v := range n {
				walk(v, depth+1)
			}
		}
	}
	walk(root, 0)
	return out
}

func asNamedRecords(arr []any) ([]map[string]any, bool) {
	if len(arr) == 0 {
		return nil, false
	}
	items := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, false
		}
		if stringField(m, "name", "title") == "" {
			return nil, false
		}
		if !hasListOrDescription(m) {
			return nil, false
		}
		items = append(items, m)
	}
	return items, true
}

func hasListOrDescription(m map[string]any) bool {
	for k, v := range m {
		switch v.(type) {
		case []any:
			return true
		case string:
			if strings.Contains(strings.ToLower(k), "desc") || strings.Contains(strings.ToLower(k), "distance") {
				return true
			}
		}
	}
	return false
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// flattenedRecords finds entries of a flattened client cache (a flat object
// keyed by opaque ids like "FacilityGroup:12") whose keys match keyPat,
// dereferencing {"__ref": "..."} pointers against the same flat map.
func flattenedRecords(root any, keyPat *regexp.Regexp) []map[string]any {
	flat, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for k, v := range flat {
		if len(out) >= maxWalkResults {
			break
		}
		if !keyPat.MatchString(k) {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			out = append(out, derefRecord(m, flat, 0))
		}
	}
	return out
}

// derefRecord resolves __ref pointers one level at a time, depth-bounded to
// survive reference cycles.
func derefRecord(m map[string]any, flat map[string]any, depth int) map[string]any {
	if depth > maxWalkDepth {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = derefValue(v, flat, depth)
	}
	return out
}

func derefValue(v any, flat map[string]any, depth int) any {
	if depth > maxWalkDepth {
		return v
	}
	switch n := v.(type) {
	case map[string]any:
		if ref, ok := n["__ref"].(string); ok && len(n) == 1 {
			if target, ok := flat[ref].(map[string]any); ok {
				return derefRecord(target, flat, depth+1)
			}
			return nil
		}
		return derefRecord(n, flat, depth+1)
	case []any:
		out := make([]any, 0, len(n))
		for _, el := range n {
			out = append(out, derefValue(el, flat, depth+1))
		}
		return out
	default:
		return v
	}
}
