// Package gbdt implements histogram-based gradient boosted decision trees.
//
// Training data is frozen into a quantized Matrix, then a Session grows one
// regression tree per output and round:
//
//	m, err := gbdt.FromDense(X, labels, nil)
//	if err != nil {
//	    return err
//	}
//	params := gbdt.DefaultParams()
//	params.Objective = gbdt.ObjectiveLogistic
//	ensemble, err := gbdt.Train(ctx, params, m, gbdt.WithEvalSet("valid", valid))
//
// Per-node gradient histograms are accumulated in fixed row chunks and reduced
// in chunk order, so a trained ensemble does not depend on the worker count.
// A finished Ensemble is read-only and may be shared by concurrent predictors.
package gbdt
