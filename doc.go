// Package hgboost is a histogram-based gradient boosting library for Go.
//
// The training engine lives in package gbdt: feature matrices are quantized
// into per-feature bins, trees are grown from gradient histograms either
// level by level or best-gain first, and the resulting ensemble is evaluated
// with a parallel predictor.
//
// # Quick Start
//
//	clf := gbdt.NewClassifier().WithNumBoostRound(50)
//	if err := clf.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	proba, err := clf.PredictProba(XTest)
//
// # Packages
//
//   - gbdt: matrices, training sessions, ensembles, prediction and model files
//   - metrics: evaluation metrics and the metric registry used during training
//   - dataset: LibSVM, CSV and .npy loaders
//   - viz: tree rendering and learning curves
//   - pkg/log, pkg/errors: structured logging and error types
//   - cmd/hgboost: command line trainer
package hgboost
