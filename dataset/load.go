package dataset

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

// Format names accepted by Load.
const (
	FormatLibSVM = "libsvm"
	FormatCSV    = "csv"
	FormatNpy    = "npy"
)

// Load reads the dataset named by uri, "path?key=value&...". Recognized keys
// are format, label_column, header, labels and one_based. Options given in
// the query are applied after opts.
func Load(uri string, opts ...Option) (*gbdt.Matrix, error) {
	path, format, queryOpts, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	opts = append(opts, queryOpts...)

	if format == FormatNpy {
		cfg := newConfig(opts)
		return LoadNpy(path, cfg.labelsPath, opts...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Load: open %s", path)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return LoadCSV(f, opts...)
	default:
		return LoadLibSVM(f, opts...)
	}
}

func parseURI(uri string) (path, format string, opts []Option, err error) {
	path, rawQuery, _ := strings.Cut(uri, "?")
	if path == "" {
		return "", "", nil, errors.NewConfigurationError("uri", "empty path", uri)
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", "", nil, errors.NewConfigurationError("uri", "invalid query", uri)
	}

	format = strings.ToLower(query.Get("format"))
	if format == "" {
		format = formatFromExt(path)
	}
	switch format {
	case FormatLibSVM, FormatCSV, FormatNpy:
	default:
		return "", "", nil, errors.NewConfigurationError("format", "must be libsvm, csv or npy", format)
	}

	for key, values := range query {
		v := values[len(values)-1]
		switch key {
		case "format":
		case "label_column":
			col, err := strconv.Atoi(v)
			if err != nil {
				return "", "", nil, errors.NewConfigurationError("label_column", "must be an integer", v)
			}
			opts = append(opts, WithLabelColumn(col))
		case "header":
			if on, err := strconv.ParseBool(v); err != nil {
				return "", "", nil, errors.NewConfigurationError("header", "must be a boolean", v)
			} else if on {
				opts = append(opts, WithHeader())
			}
		case "one_based":
			if on, err := strconv.ParseBool(v); err != nil {
				return "", "", nil, errors.NewConfigurationError("one_based", "must be a boolean", v)
			} else if on {
				opts = append(opts, WithOneBased())
			}
		case "labels":
			opts = append(opts, WithLabelsFile(v))
		default:
			return "", "", nil, errors.NewConfigurationError("uri", "unknown query key", key)
		}
	}
	return path, format, opts, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".npy":
		return FormatNpy
	}
	return FormatLibSVM
}
