package model

import "time"

// Property represents the slice of a listed property this subsystem reads and
// writes: display title for notifications, neighborhood/city for geocoding,
// and the coordinates the enrichment job fills in.
type Property struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Neighborhood string    `json:"neighborhood"`
	City         string    `json:"city"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GeocodeTarget is a read projection of a property that lacks coordinates but
// has a neighborhood to geocode from. It is never persisted on its own; the
// enrichment job writes resolved coordinates back onto the property row.
type GeocodeTarget struct {
	ID           string `json:"id"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
}
