// Package model defines the shared domain types: coordinates, census
// tract regions with GEI scores, hazard sites, the feature reference
// rows, and the assembled query result.
package model

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// MissingScore is the sentinel the source datasets use for an absent
// score. Loaders translate it to a nil pointer; it never appears in a
// loaded Region.
const MissingScore = -999

// Risk domains of the GEI model. Domain strings in loaded data must be
// one of these.
const (
	DomainHealth        = "health"
	DomainSocioeconomic = "socioeconomic"
	DomainEnvironmental = "environmental"
)

// Domains lists the risk domains in presentation order.
var Domains = []string{DomainHealth, DomainSocioeconomic, DomainEnvironmental}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is within WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

// Region is a census tract with its boundary polygon and GEI attributes.
// Score pointers are nil when the source marked the value missing; the
// region keeps its polygon either way.
type Region struct {
	GEOID     string
	Name      string
	StateCode string

	Overall *float64
	Health  *float64
	Socio   *float64
	Env     *float64

	// Percentiles maps feature code to the tract's fractional percentile
	// (0..1) for that feature.
	Percentiles map[string]float64

	Geometry *geom.MultiPolygon

	// LoadOrder is the region's position in the load sequence, used as
	// the deterministic tie-break for points on a shared boundary.
	LoadOrder int
}

// Summary projects the region's identity and scores for responses,
// leaving the geometry behind.
func (r *Region) Summary() *RegionSummary {
	if r == nil {
		return nil
	}
	return &RegionSummary{
		GEOID:     r.GEOID,
		Name:      r.Name,
		StateCode: r.StateCode,
		Overall:   r.Overall,
		Health:    r.Health,
		Socio:     r.Socio,
		Env:       r.Env,
	}
}

// RegionSummary is the response-facing view of a region. Nil score
// fields serialize as null, meaning the tract has no value for that
// score.
type RegionSummary struct {
	GEOID     string   `json:"geoid"`
	Name      string   `json:"name,omitempty"`
	StateCode string   `json:"state_code,omitempty"`
	Overall   *float64 `json:"gei_overall_score"`
	Health    *float64 `json:"gei_health_score"`
	Socio     *float64 `json:"gei_socio_score"`
	Env       *float64 `json:"gei_env_score"`
}

// HazardSite is one hazard location from the CIMC dataset. HazardScore
// is a discrete severity level; the remaining attributes are optional
// descriptive metadata.
type HazardSite struct {
	ID          int        `json:"id"`
	Coordinate  Coordinate `json:"coordinate"`
	HazardScore int        `json:"hazard_score"`
	SiteName    string     `json:"site_name,omitempty"`
	Status      string     `json:"status,omitempty"`
	Type        string     `json:"type,omitempty"`
	Address     string     `json:"address,omitempty"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// SiteDistance pairs a hazard site with its distance from the query
// point in miles.
type SiteDistance struct {
	Site  *HazardSite `json:"site"`
	Miles float64     `json:"miles"`
}

// FeatureRow is one entry of the feature reference table: a scored
// feature with its display label, risk domain, and rank within the
// domain (1 = most important).
type FeatureRow struct {
	Code   string `json:"feature"`
	Label  string `json:"label"`
	Domain string `json:"domain"`
	Rank   int    `json:"rank"`
}

// FeatureValue joins a reference row with a region's percentile for it,
// rescaled to the 0-100 display range with two decimal places.
type FeatureValue struct {
	FeatureRow
	Percentile float64 `json:"percentile"`
}

// QueryResult is the assembled answer for one query. Region is nil when
// the resolved point falls outside every tract; Sites and Features may
// be empty but are always present.
type QueryResult struct {
	QueryID          string         `json:"query_id"`
	Address          string         `json:"address"`
	FormattedAddress string         `json:"formatted_address,omitempty"`
	RadiusMiles      float64        `json:"radius_miles"`
	Coordinate       Coordinate     `json:"coordinate"`
	Region           *RegionSummary `json:"region"`
	Sites            []SiteDistance `json:"sites"`

	// Features is keyed by risk domain. Populated only when the point
	// landed in a region.
	Features map[string][]FeatureValue `json:"features"`
}
