package main

import (
	"bufio"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/hgboost/dataset"
	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func runPredict(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("predict")
	fs.String("model", "model.json", "model path")
	fs.String("data", "", "data URI (path?format=libsvm|csv|npy&...)")
	fs.String("output", "-", "output path, - for stdout")
	fs.Bool("raw", false, "write margins instead of link-transformed predictions")
	fs.Bool("leaf", false, "write the leaf index reached in every tree")
	fs.Int("nthread", 0, "prediction workers, 0 for all CPUs")

	v, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	closer, err := setupLogging(v, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	if v.GetBool("raw") && v.GetBool("leaf") {
		return errors.NewConfigurationError("leaf", "cannot be combined with --raw", true)
	}
	e, err := gbdt.LoadModel(v.GetString("model"))
	if err != nil {
		return err
	}
	if v.GetString("data") == "" {
		return errors.NewConfigurationError("data", "data URI is required", "")
	}
	m, err := dataset.Load(v.GetString("data"), dataset.WithNumFeatures(e.NumFeatures))
	if err != nil {
		return err
	}

	p := gbdt.NewPredictor(gbdt.WithWorkers(v.GetInt("nthread")))
	var out *mat.Dense
	switch {
	case v.GetBool("leaf"):
		out, err = p.PredictLeaf(e, m)
	case v.GetBool("raw"):
		out, err = p.PredictRaw(e, m)
	default:
		out, err = p.Predict(e, m, e.Link)
	}
	if err != nil {
		return err
	}

	w, done, err := openOutput(v.GetString("output"), stdout)
	if err != nil {
		return err
	}
	if err := writeMatrix(w, out); err != nil {
		done()
		return err
	}
	return done()
}

// writeMatrix writes one tab separated line per row in shortest round-trip form.
func writeMatrix(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	buf := make([]byte, 0, 32)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte('\t')
			}
			buf = strconv.AppendFloat(buf[:0], m.At(i, j), 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
