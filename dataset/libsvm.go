package dataset

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

const maxLineBytes = 16 << 20

type sparseRecord struct {
	indices []int
	values  []float64
}

// LoadLibSVM reads "label idx:val idx:val ..." records. qid tokens and text
// after '#' are ignored; blank lines are skipped. Indices are 0-based unless
// WithOneBased is given.
func LoadLibSVM(r io.Reader, opts ...Option) (*gbdt.Matrix, error) {
	cfg := newConfig(opts)
	if cfg.numFeatures < 0 {
		return nil, errors.NewConfigurationError("num_features", "must be non-negative", cfg.numFeatures)
	}

	var (
		labels  []float64
		records []sparseRecord
		maxIdx  = -1
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, lineError("LoadLibSVM", line, "invalid label %q", fields[0])
		}
		rec, err := parseLibSVMFeatures(fields[1:], line, cfg.oneBased)
		if err != nil {
			return nil, err
		}
		if n := len(rec.indices); n > 0 && rec.indices[n-1] > maxIdx {
			maxIdx = rec.indices[n-1]
		}
		labels = append(labels, label)
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "LoadLibSVM: read line %d", line+1)
	}
	if len(records) == 0 {
		return nil, errors.NewInvalidInputError("LoadLibSVM", -1, -1, "no records")
	}

	numFeatures := maxIdx + 1
	if cfg.numFeatures > 0 {
		if maxIdx >= cfg.numFeatures {
			return nil, errors.NewInvalidInputErrorf("LoadLibSVM", -1, maxIdx,
				"feature index exceeds num_features %d", cfg.numFeatures)
		}
		numFeatures = cfg.numFeatures
	}

	b := gbdt.NewMatrixBuilder(numFeatures, cfg.matrixOpts...)
	for _, rec := range records {
		if err := b.AppendSparse(rec.indices, rec.values); err != nil {
			return nil, err
		}
	}
	b.SetLabels(labels)
	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	logLoaded("libsvm", m)
	return m, nil
}

func parseLibSVMFeatures(tokens []string, line int, oneBased bool) (sparseRecord, error) {
	rec := sparseRecord{
		indices: make([]int, 0, len(tokens)),
		values:  make([]float64, 0, len(tokens)),
	}
	for _, tok := range tokens {
		key, val, ok := strings.Cut(tok, ":")
		if !ok {
			return rec, lineError("LoadLibSVM", line, "malformed token %q", tok)
		}
		if key == "qid" {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			return rec, lineError("LoadLibSVM", line, "invalid feature index %q", key)
		}
		if oneBased {
			idx--
		}
		if idx < 0 {
			return rec, lineError("LoadLibSVM", line, "negative feature index in %q", tok)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return rec, lineError("LoadLibSVM", line, "invalid value %q", val)
		}
		rec.indices = append(rec.indices, idx)
		rec.values = append(rec.values, v)
	}

	if !sort.IsSorted(rec) {
		sort.Stable(rec)
	}
	for i := 1; i < len(rec.indices); i++ {
		if rec.indices[i] == rec.indices[i-1] {
			return rec, lineError("LoadLibSVM", line, "duplicate feature index %d", rec.indices[i])
		}
	}
	return rec, nil
}

func (r sparseRecord) Len() int           { return len(r.indices) }
func (r sparseRecord) Less(i, j int) bool { return r.indices[i] < r.indices[j] }
func (r sparseRecord) Swap(i, j int) {
	r.indices[i], r.indices[j] = r.indices[j], r.indices[i]
	r.values[i], r.values[j] = r.values[j], r.values[i]
}

func lineError(op string, line int, format string, args ...interface{}) error {
	return errors.NewInvalidInputErrorf(op, -1, -1, "line %d: "+format, append([]interface{}{line}, args...)...)
}

func logLoaded(format string, m *gbdt.Matrix) {
	log.GetLoggerWithName("dataset").Debug("Dataset loaded",
		"format", format,
		log.SamplesKey, m.RowCount(),
		log.FeaturesKey, m.FeatureCount(),
	)
}
