// Package feature holds the reference table of top-ranked scored features
// per risk domain and joins it against a region's percentiles.
package feature

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/geoequity/gei/internal/model"
)

// Catalog is the static feature reference table, grouped by domain and
// ordered by rank. Built once at startup; read-only after.
type Catalog struct {
	byDomain map[string][]model.FeatureRow
	total    int
}

// Load reads the feature reference table. The format follows the file
// extension: .xlsx for a workbook, anything else is parsed as CSV. A
// duplicate rank within a domain or an unknown domain is a fatal
// configuration error.
func Load(path string) (*Catalog, error) {
	var rows []model.FeatureRow
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = loadXLSX(path)
	} else {
		rows, err = loadCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return build(path, rows)
}

func build(path string, rows []model.FeatureRow) (*Catalog, error) {
	c := &Catalog{byDomain: make(map[string][]model.FeatureRow)}

	seen := make(map[string]map[int]bool)
	for _, row := range rows {
		switch row.Domain {
		case model.DomainHealth, model.DomainSocioeconomic, model.DomainEnvironmental:
		default:
			return nil, eris.Errorf("feature: %s: unknown domain %q for feature %s", path, row.Domain, row.Code)
		}
		if row.Rank < 1 {
			return nil, eris.Errorf("feature: %s: feature %s has rank %d, ranks start at 1", path, row.Code, row.Rank)
		}
		if seen[row.Domain] == nil {
			seen[row.Domain] = make(map[int]bool)
		}
		if seen[row.Domain][row.Rank] {
			return nil, eris.Errorf("feature: %s: duplicate rank %d in domain %s", path, row.Rank, row.Domain)
		}
		seen[row.Domain][row.Rank] = true

		c.byDomain[row.Domain] = append(c.byDomain[row.Domain], row)
		c.total++
	}

	for domain := range c.byDomain {
		rows := c.byDomain[domain]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	}

	zap.L().Info("feature reference table loaded",
		zap.String("source", path),
		zap.Int("features", c.total),
	)
	return c, nil
}

// Len returns the total number of feature rows.
func (c *Catalog) Len() int {
	return c.total
}

// TopFeatures joins the domain's ranked features with the region's
// percentiles, rescaled from fraction to the 0-100 display scale with two
// decimal places. Features the region has no value for are omitted.
// Returns nil for a nil region or unknown domain.
func (c *Catalog) TopFeatures(r *model.Region, domain string) []model.FeatureValue {
	if r == nil {
		return nil
	}
	var out []model.FeatureValue
	for _, row := range c.byDomain[domain] {
		frac, ok := r.Percentiles[row.Code]
		if !ok {
			continue
		}
		out = append(out, model.FeatureValue{
			FeatureRow: row,
			Percentile: math.Round(frac*100*100) / 100,
		})
	}
	return out
}

// loadCSV parses Feature,Label,Domain,Rank rows from a CSV file.
func loadCSV(path string) ([]model.FeatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open %s", path)
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "feature: read header of %s", path)
	}
	colIdx, err := headerIndex(path, header)
	if err != nil {
		return nil, err
	}

	var rows []model.FeatureRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "feature: read %s", path)
		}
		row, err := parseRow(path, rec, colIdx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadXLSX parses the same table from the first sheet of a workbook.
func loadXLSX(path string) ([]model.FeatureRow, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open workbook %s", path)
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.Errorf("feature: workbook %s has no sheets", path)
	}
	sheet := wb.Sheets[0]
	if len(sheet.Rows) < 1 {
		return nil, eris.Errorf("feature: workbook %s sheet is empty", path)
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, cell.String())
	}
	colIdx, err := headerIndex(path, header)
	if err != nil {
		return nil, err
	}

	var rows []model.FeatureRow
	for _, r := range sheet.Rows[1:] {
		rec := make([]string, 0, len(r.Cells))
		for _, cell := range r.Cells {
			rec = append(rec, cell.String())
		}
		if len(rec) == 0 || strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}
		row, err := parseRow(path, rec, colIdx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerIndex maps the required columns, case-insensitive.
func headerIndex(path string, header []string) (map[string]int, error) {
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"feature", "label", "domain", "rank"} {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("feature: %s missing required column %s", path, col)
		}
	}
	return colIdx, nil
}

func parseRow(path string, rec []string, colIdx map[string]int) (model.FeatureRow, error) {
	field := func(col string) string {
		i := colIdx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rank, err := strconv.Atoi(field("rank"))
	if err != nil {
		return model.FeatureRow{}, eris.Wrapf(err, "feature: %s: rank for feature %q", path, field("feature"))
	}
	return model.FeatureRow{
		Code:   field("feature"),
		Label:  field("label"),
		Domain: strings.ToLower(field("domain")),
		Rank:   rank,
	}, nil
}
