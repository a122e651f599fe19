// internal/models/place.go
package models

// Place is a nearby point of interest.
type Place struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Address  string  `json:"address,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Website  string  `json:"website,omitempty"`
	Category string  `json:"category"`
	Distance float64 `json:"distance"` // meters
	Source   string  `json:"source"`
}
