// internal/workers/search/find-nearby-places/category.go
package findnearbyplaces

import (
	"regexp"

	"wizkid-search/internal/common/places"
)

type category struct {
	name    string
	pattern *regexp.Regexp
	tag     places.Tag
}

// categories are matched in order; the first hit wins.
var categories = []category{
	{"doctor", regexp.MustCompile(`(?i)\b(doctors?|clinics?|gps?|physicians?)\b`), places.Tag{Key: "amenity", Values: []string{"doctors", "clinic"}}},
	{"hospital", regexp.MustCompile(`(?i)\bhospitals?\b`), places.Tag{Key: "amenity", Values: []string{"hospital"}}},
	{"dentist", regexp.MustCompile(`(?i)\bdentists?\b`), places.Tag{Key: "amenity", Values: []string{"dentist"}}},
	{"pharmacy", regexp.MustCompile(`(?i)\b(pharmacy|pharmacies|chemists?|drugstores?)\b`), places.Tag{Key: "amenity", Values: []string{"pharmacy"}}},
	{"restaurant", regexp.MustCompile(`(?i)\brestaurants?\b`), places.Tag{Key: "amenity", Values: []string{"restaurant", "fast_food", "cafe"}}},
	{"cafe", regexp.MustCompile(`(?i)\b(cafes?|coffee)\b`), places.Tag{Key: "amenity", Values: []string{"cafe"}}},
	{"bank", regexp.MustCompile(`(?i)\bbanks?\b`), places.Tag{Key: "amenity", Values: []string{"bank"}}},
	{"atm", regexp.MustCompile(`(?i)\batms?\b`), places.Tag{Key: "amenity", Values: []string{"atm"}}},
	{"lawyer", regexp.MustCompile(`(?i)\b(lawyers?|attorneys?|solicitors?)\b`), places.Tag{Key: "office", Values: []string{"lawyer"}}},
}

// DetectCategory returns the service category named in query, or "".
func DetectCategory(query string) string {
	if c, ok := lookup(query); ok {
		return c.name
	}
	return ""
}

func lookup(query string) (category, bool) {
	for _, c := range categories {
		if c.pattern.MatchString(query) {
			return c, true
		}
	}
	return category{}, false
}
