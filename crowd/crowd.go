// Package crowd estimates how populated an area is likely to be at a given hour.
//
// The estimate is a fixed rule table, not a learned model.
package crowd

import "strings"

/*
Density is a coarse crowd level
*/
type Density string

const (
	Low    Density = "Low"
	Medium Density = "Medium"
	High   Density = "High"
)

/*
Area types with dedicated rules; anything else uses the public/unknown rules
*/
const (
	AreaResidential = "residential"
	AreaCommercial  = "commercial"
)

/*
Estimate returns the expected crowd density for an hour (0-23) and area type.
Area types are matched case-insensitively but otherwise exactly, so
surrounding whitespace falls through to the public/unknown rules.
*/
func Estimate(hour int, areaType string) Density {
	switch strings.ToLower(areaType) {
	case AreaResidential:
		switch {
		case between(hour, 6, 9) || between(hour, 18, 21):
			return Medium
		case hour >= 22 || hour <= 5:
			return Low
		default:
			return Medium
		}
	case AreaCommercial:
		if between(hour, 9, 21) {
			return High
		}
		return Low
	default:
		if between(hour, 7, 20) {
			return Medium
		}
		return Low
	}
}

/*
Alert returns the advisory shown next to a density level
*/
func Alert(d Density) string {
	switch d {
	case Low:
		return "⚠️ Low crowd presence. Avoid staying alone. Prefer crowded areas."
	case Medium:
		return "ℹ️ Moderate crowd presence. Stay alert and aware."
	default:
		return "✅ High crowd presence. Area is relatively safer."
	}
}

func between(v, lo, hi int) bool {
	return lo <= v && v <= hi
}
