package dataset

import (
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// LoadNpy reads a 2-D float64 feature array and, when labelsPath is not
// empty, a float64 label array with one value per row.
func LoadNpy(featuresPath, labelsPath string, opts ...Option) (*gbdt.Matrix, error) {
	cfg := newConfig(opts)

	x := &mat.Dense{}
	if err := readNpy(featuresPath, x); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()

	var labels []float64
	if labelsPath != "" {
		if err := readNpy(labelsPath, &labels); err != nil {
			return nil, err
		}
		if len(labels) != rows {
			return nil, errors.NewInvalidInputErrorf("LoadNpy", -1, -1,
				"%d labels for %d rows", len(labels), rows)
		}
	}

	m, err := gbdt.FromDense(x, labels, nil, cfg.matrixOpts...)
	if err != nil {
		return nil, err
	}
	logLoaded("npy", m)
	return m, nil
}

func readNpy(path string, ptr interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "LoadNpy: open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return errors.NewInvalidInputErrorf("LoadNpy", -1, -1, "%s: %v", path, err)
	}
	if err := r.Read(ptr); err != nil {
		return errors.NewInvalidInputErrorf("LoadNpy", -1, -1, "%s: %v", path, err)
	}
	return nil
}
