package main

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

const envPrefix = "HGBOOST"

// newFlagSet returns a flag set carrying the flags shared by every command.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "YAML config file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "console", "log format: console or json")
	fs.String("log-file", "", "also write JSON logs to this file, rotated daily")
	fs.Int("log-max-age", 7, "days to keep rotated log files")
	return fs
}

// loadConfig parses args into fs and layers flags, HGBOOST_ environment
// variables and the config file, in that order of precedence.
func loadConfig(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	return v, nil
}

// setupLogging installs the process logger described by v. The returned
// closer releases the rotating log file, if any.
func setupLogging(v *viper.Viper, stderr io.Writer) (io.Closer, error) {
	var w io.Writer = stderr
	switch v.GetString("log-format") {
	case "console":
		w = log.ConsoleWriter(stderr)
	case "json":
	default:
		return nil, errors.NewConfigurationError("log-format", "must be console or json", v.GetString("log-format"))
	}

	var closer io.Closer = nopCloser{}
	if path := v.GetString("log-file"); path != "" {
		rl, err := rotatelogs.New(
			path+".%Y%m%d",
			rotatelogs.WithLinkName(path),
			rotatelogs.WithMaxAge(time.Duration(v.GetInt("log-max-age"))*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", path)
		}
		w = io.MultiWriter(w, rl)
		closer = rl
	}

	if err := log.SetupLogger(v.GetString("log-level"), w); err != nil {
		closer.Close()
		return nil, err
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// trainingParams merges the "params" section of the config file with
// --set key=value overrides and decodes the result.
func trainingParams(v *viper.Viper, overrides map[string]string) (gbdt.Params, error) {
	raw := make(map[string]any)
	for k, val := range v.GetStringMap("params") {
		raw[k] = val
	}
	for k, val := range overrides {
		raw[k] = val
	}
	return gbdt.ParamsFromMap(raw)
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
