package region

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoequity/gei/internal/model"
)

// pctlPrefix marks feature percentile columns in the scores table,
// distinguishing them from the composite GEI scores.
const pctlPrefix = "pctl_"

// tractAttrs are the GEI attributes joined onto a tract by GEOID.
type tractAttrs struct {
	overall     *float64
	health      *float64
	socio       *float64
	env         *float64
	percentiles map[string]float64
}

// Load reads the tract boundary shapefile and the GEI scores table, joins
// them on GEOID, and builds the containment index. Any malformed geometry
// or missing required column is a fatal configuration error. Tracts with
// no scores row keep their polygon and report missing scores, mirroring
// the left join the dataset was produced with.
func Load(shpPath, scoresPath string) (*Index, error) {
	attrs, err := loadScores(scoresPath)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := fieldIndex(reader, "GEOID")
	nameIdx := fieldIndex(reader, "NAME")
	stateIdx := fieldIndex(reader, "STUSPS")
	if geoidIdx < 0 {
		return nil, eris.Errorf("region: shapefile %s missing required GEOID field", shpPath)
	}

	var regions []model.Region
	var unscored int

	for reader.Next() {
		recNum, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, eris.Errorf("region: record %d is not a polygon", recNum)
		}
		mp, err := polygonToMultiPolygon(poly)
		if err != nil {
			return nil, eris.Wrapf(err, "region: record %d", recNum)
		}

		geoid := attribute(reader, geoidIdx)
		if geoid == "" {
			return nil, eris.Errorf("region: record %d has empty GEOID", recNum)
		}

		r := model.Region{
			GEOID:     geoid,
			Name:      attribute(reader, nameIdx),
			StateCode: attribute(reader, stateIdx),
			Geometry:  mp,
			LoadOrder: len(regions),
		}
		if a, ok := attrs[geoid]; ok {
			r.Overall = a.overall
			r.Health = a.health
			r.Socio = a.socio
			r.Env = a.env
			r.Percentiles = a.percentiles
		} else {
			unscored++
		}
		regions = append(regions, r)
	}

	if len(regions) == 0 {
		return nil, eris.Errorf("region: shapefile %s contains no records", shpPath)
	}

	ix := NewIndex(regions)
	zap.L().Info("regions loaded",
		zap.String("shapefile", shpPath),
		zap.Int("regions", ix.Len()),
		zap.Int("without_scores", unscored),
	)
	return ix, nil
}

// loadScores parses the GEI scores CSV into a GEOID-keyed attribute map.
func loadScores(path string) (map[string]tractAttrs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open scores csv %s", path)
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "region: read scores header of %s", path)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	required := []string{"GEOID", "GEI_overall_score", "GEI_health_score", "GEI_socio_score", "GEI_env_score"}
	for _, col := range required {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("region: %s missing required column %s", path, col)
		}
	}

	// Percentile columns carry the pctl_ prefix; the bare name is the
	// feature code the catalog joins against.
	type pctlCol struct {
		code string
		idx  int
	}
	var pctlCols []pctlCol
	for name, idx := range colIdx {
		if strings.HasPrefix(name, pctlPrefix) {
			pctlCols = append(pctlCols, pctlCol{code: strings.TrimPrefix(name, pctlPrefix), idx: idx})
		}
	}

	attrs := make(map[string]tractAttrs)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "region: read %s", path)
		}

		geoid := strings.TrimSpace(rec[colIdx["GEOID"]])
		if geoid == "" {
			continue
		}

		a := tractAttrs{percentiles: make(map[string]float64, len(pctlCols))}
		if a.overall, err = parseScore(rec, colIdx["GEI_overall_score"]); err != nil {
			return nil, eris.Wrapf(err, "region: GEOID %s overall score", geoid)
		}
		if a.health, err = parseScore(rec, colIdx["GEI_health_score"]); err != nil {
			return nil, eris.Wrapf(err, "region: GEOID %s health score", geoid)
		}
		if a.socio, err = parseScore(rec, colIdx["GEI_socio_score"]); err != nil {
			return nil, eris.Wrapf(err, "region: GEOID %s socio score", geoid)
		}
		if a.env, err = parseScore(rec, colIdx["GEI_env_score"]); err != nil {
			return nil, eris.Wrapf(err, "region: GEOID %s env score", geoid)
		}

		for _, pc := range pctlCols {
			if pc.idx >= len(rec) {
				continue
			}
			raw := strings.TrimSpace(rec[pc.idx])
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v == model.MissingScore {
				continue
			}
			a.percentiles[pc.code] = v
		}

		attrs[geoid] = a
	}

	return attrs, nil
}

// parseScore reads a composite score cell: -999 and blank mean missing,
// anything else must be a float in [0,1].
func parseScore(rec []string, idx int) (*float64, error) {
	if idx >= len(rec) {
		return nil, nil
	}
	raw := strings.TrimSpace(rec[idx])
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse score %q", raw)
	}
	if v == model.MissingScore {
		return nil, nil
	}
	if v < 0 || v > 1 {
		return nil, eris.Errorf("score %v outside [0,1]", v)
	}
	return &v, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// attribute reads and trims a DBF attribute; idx < 0 yields "".
func attribute(reader *shp.Reader, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}
