package dataset

import (
	"github.com/YuminosukeSato/hgboost/gbdt"
)

// Option configures a loader.
type Option func(*config)

type config struct {
	matrixOpts  []gbdt.MatrixOption
	oneBased    bool
	numFeatures int
	labelColumn int
	header      bool
	labelsPath  string
}

func newConfig(opts []Option) config {
	cfg := config{labelColumn: 0}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMatrixOptions passes options through to the gbdt.MatrixBuilder.
func WithMatrixOptions(opts ...gbdt.MatrixOption) Option {
	return func(c *config) { c.matrixOpts = append(c.matrixOpts, opts...) }
}

// WithNumBins sets the number of bins computed per feature.
func WithNumBins(n int) Option {
	return WithMatrixOptions(gbdt.WithNumBins(n))
}

// WithOneBased treats LibSVM feature indices as starting at 1.
func WithOneBased() Option {
	return func(c *config) { c.oneBased = true }
}

// WithNumFeatures fixes the LibSVM feature count instead of inferring it from
// the largest index seen.
func WithNumFeatures(n int) Option {
	return func(c *config) { c.numFeatures = n }
}

// WithLabelColumn selects the CSV column holding the label. A negative value
// means the file has no label column.
func WithLabelColumn(col int) Option {
	return func(c *config) { c.labelColumn = col }
}

// WithHeader skips the first CSV record.
func WithHeader() Option {
	return func(c *config) { c.header = true }
}

// WithLabelsFile sets the .npy file holding labels for LoadNpy via Load.
func WithLabelsFile(path string) Option {
	return func(c *config) { c.labelsPath = path }
}
