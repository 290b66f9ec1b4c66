package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// LoadCSV reads comma separated records. The column chosen with
// WithLabelColumn (default 0) holds the label; every other column is a
// feature. Empty, "NA" and "NaN" cells are missing.
func LoadCSV(r io.Reader, opts ...Option) (*gbdt.Matrix, error) {
	cfg := newConfig(opts)

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.Comment = '#'

	var (
		b      *gbdt.MatrixBuilder
		labels []float64
		row    []float64
		width  int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, lineError("LoadCSV", perr.Line, "%v", perr.Err)
			}
			return nil, errors.Wrap(err, "LoadCSV")
		}
		line, _ := cr.FieldPos(0)
		if cfg.header {
			cfg.header = false
			continue
		}

		if b == nil {
			width = len(rec)
			if cfg.labelColumn >= width {
				return nil, errors.NewConfigurationError("label_column", "out of range", cfg.labelColumn)
			}
			features := width
			if cfg.labelColumn >= 0 {
				features--
			}
			b = gbdt.NewMatrixBuilder(features, cfg.matrixOpts...)
			row = make([]float64, features)
		}

		row = row[:0]
		for col, cell := range rec {
			v, ok := parseCell(cell)
			if !ok {
				return nil, lineError("LoadCSV", line, "column %d: invalid number %q", col, cell)
			}
			if col == cfg.labelColumn {
				if math.IsNaN(v) {
					return nil, lineError("LoadCSV", line, "missing label")
				}
				labels = append(labels, v)
				continue
			}
			row = append(row, v)
		}
		if err := b.AppendDense(row); err != nil {
			return nil, lineError("LoadCSV", line, "%v", err)
		}
	}
	if b == nil {
		return nil, errors.NewInvalidInputError("LoadCSV", -1, -1, "no records")
	}
	if cfg.labelColumn >= 0 {
		b.SetLabels(labels)
	}
	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	logLoaded("csv", m)
	return m, nil
}

func parseCell(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan":
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
