package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/YuminosukeSato/hgboost/dataset"
	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
	"github.com/YuminosukeSato/hgboost/viz"
)

func runTrain(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("train")
	fs.String("data", "", "training data URI (path?format=libsvm|csv|npy&...)")
	evals := fs.StringArray("eval", nil, "evaluation set as name=URI, repeatable; the last one drives early stopping")
	fs.String("model", "model.json", "output model path; .json writes JSON, anything else gob")
	fs.String("init-model", "", "continue training from this model")
	fs.String("curve", "", "write a learning curve image to this path")
	overrides := fs.StringToString("set", nil, "training parameter as key=value, repeatable")

	v, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	closer, err := setupLogging(v, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger := log.GetLoggerWithName("cmd.train")

	params, err := trainingParams(v, *overrides)
	if err != nil {
		return err
	}
	if v.GetString("data") == "" {
		return errors.NewConfigurationError("data", "training data URI is required", "")
	}
	train, err := dataset.Load(v.GetString("data"), dataset.WithNumBins(params.NumBins))
	if err != nil {
		return err
	}

	opts := []gbdt.SessionOption{gbdt.WithLogger(logger)}
	evalSpecs := *evals
	if len(evalSpecs) == 0 {
		// Config file evals run in name order; the last name drives early stopping.
		configured := v.GetStringMapString("eval")
		names := make([]string, 0, len(configured))
		for name := range configured {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			evalSpecs = append(evalSpecs, name+"="+configured[name])
		}
	}
	for _, spec := range evalSpecs {
		name, uri, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return errors.NewConfigurationError("eval", "must be name=URI", spec)
		}
		m, err := dataset.Load(uri, dataset.WithNumBins(params.NumBins), dataset.WithNumFeatures(train.FeatureCount()))
		if err != nil {
			return errors.Wrapf(err, "evaluation set %q", name)
		}
		opts = append(opts, gbdt.WithEvalSet(name, m))
	}
	if path := v.GetString("init-model"); path != "" {
		base, err := gbdt.LoadModel(path)
		if err != nil {
			return err
		}
		opts = append(opts, gbdt.WithInitModel(base))
	}
	var history map[string][]float64
	opts = append(opts, gbdt.WithCallbacks(gbdt.RecordEvaluation(&history)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	e, err := gbdt.Train(ctx, params, train, opts...)
	switch {
	case e != nil && errors.Is(err, context.Canceled):
		logger.Warn("Training interrupted; saving the partial model", log.RoundKey, e.NumRounds())
	case err != nil:
		return err
	}

	path := v.GetString("model")
	if err := e.SaveModel(path); err != nil {
		return err
	}
	if curve := v.GetString("curve"); curve != "" && len(history) > 0 {
		if err := viz.PlotLearningCurve(history, "learning curve", curve); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "trained %d rounds (best iteration %d), saved %s\n", e.NumRounds(), e.BestIteration, path)
	return nil
}
