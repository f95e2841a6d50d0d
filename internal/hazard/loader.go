package hazard

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoequity/gei/internal/model"
)

// Hazard scores are discrete severity levels in the CIMC data.
const (
	minHazardScore = 1
	maxHazardScore = 6
)

// Load reads the CIMC hazard site CSV and builds the proximity index.
// LATITUDE, LONGITUDE, and Hazard_Score columns are required; a missing
// column is a fatal configuration error. Rows with unparseable or
// out-of-range values are skipped and counted.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "hazard: open sites csv %s", path)
	}
	defer func() { _ = f.Close() }()

	return load(f, path)
}

func load(r io.Reader, name string) (*Index, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "hazard: read header of %s", name)
	}

	// Header name → index, case-insensitive.
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	required := []string{"latitude", "longitude", "hazard_score"}
	for _, col := range required {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("hazard: %s missing required column %s", name, col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var sites []model.HazardSite
	var skipped int
	id := 0

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "hazard: read %s", name)
		}

		lat, latErr := strconv.ParseFloat(field(rec, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(rec, "longitude"), 64)
		score, scoreErr := strconv.Atoi(field(rec, "hazard_score"))
		coord := model.Coordinate{Lat: lat, Lon: lon}

		if latErr != nil || lonErr != nil || scoreErr != nil ||
			!coord.Valid() || score < minHazardScore || score > maxHazardScore {
			skipped++
			continue
		}

		id++
		sites = append(sites, model.HazardSite{
			ID:          id,
			Coordinate:  coord,
			HazardScore: score,
			SiteName:    field(rec, "site_name"),
			Status:      field(rec, "status"),
			Type:        field(rec, "type"),
			Address:     field(rec, "address"),
			City:        field(rec, "city"),
			State:       field(rec, "state"),
			URL:         field(rec, "url"),
		})
	}

	if skipped > 0 {
		zap.L().Debug("hazard: skipped malformed site rows",
			zap.String("source", name),
			zap.Int("skipped", skipped),
		)
	}

	ix := NewIndex(sites)
	zap.L().Info("hazard sites loaded",
		zap.String("source", name),
		zap.Int("sites", ix.Len()),
	)
	return ix, nil
}
