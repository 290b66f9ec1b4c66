package gbdt

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/YuminosukeSato/hgboost/core/parallel"
	"github.com/YuminosukeSato/hgboost/metrics"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/pkg/log"
)

// rowChunk is the number of rows per task for gradient and prediction updates.
const rowChunk = 4096

// EvalResult is the score of one metric on one evaluation set.
type EvalResult struct {
	Set    string
	Metric string
	Value  float64
}

// RoundResult describes one completed boosting round.
type RoundResult struct {
	Round    int
	Trees    []GrowStats // one per output
	Evals    []EvalResult
	Duration time.Duration
	// Stop is set when a callback or early stopping asked to end training.
	Stop bool
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	evals     []namedMatrix
	callbacks []Callback
	init      *Ensemble
	logger    log.Logger
}

type namedMatrix struct {
	name string
	m    *Matrix
}

// WithEvalSet evaluates the metrics on m after every round under name.
// The last evaluation set drives early stopping.
func WithEvalSet(name string, m *Matrix) SessionOption {
	return func(c *sessionConfig) { c.evals = append(c.evals, namedMatrix{name: name, m: m}) }
}

// WithCallbacks registers callbacks run after every round.
func WithCallbacks(callbacks ...Callback) SessionOption {
	return func(c *sessionConfig) { c.callbacks = append(c.callbacks, callbacks...) }
}

// WithInitModel continues boosting from an existing ensemble.
func WithInitModel(e *Ensemble) SessionOption {
	return func(c *sessionConfig) { c.init = e }
}

// WithLogger sets the session logger.
func WithLogger(l log.Logger) SessionOption {
	return func(c *sessionConfig) { c.logger = l }
}

type evalSet struct {
	name  string
	m     *Matrix
	preds []float64 // margins, row-major N x K
}

// Session runs boosting rounds over one training matrix. It owns a worker
// pool that is released by Close; a Session is not safe for concurrent use.
type Session struct {
	params  Params
	obj     Objective
	train   *Matrix
	evals   []*evalSet
	metrics []metrics.Metric

	pool      *parallel.Pool
	grower    *Grower
	ensemble  *Ensemble
	callbacks *CallbackList
	logger    log.Logger
	rng       *rand.Rand

	preds   []float64      // training margins, row-major N x K
	gpairs  []GradientPair // N x K
	scratch []GradientPair // gradients of one output, indexed by row
	allRows []int

	history map[string][]float64
	rounds  int // rounds added by this session
	stopped bool
	closed  bool
}

// NewSession validates params and the training data and prepares a session.
// Nothing is trained until Step or Run is called.
func NewSession(params Params, train *Matrix, opts ...SessionOption) (*Session, error) {
	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("gbdt.session")
	}

	params.Objective = CanonicalObjective(params.Objective)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	obj, err := NewObjective(params.Objective, params.NumClass)
	if err != nil {
		return nil, err
	}
	if train == nil {
		return nil, errors.NewInvalidInputError("NewSession", -1, -1, "training matrix is nil")
	}
	if err := checkLabels(obj, train); err != nil {
		return nil, err
	}
	if train.MaxBins() != params.NumBins {
		cfg.logger.Warn("Training matrix quantized with a different num_bins; using the matrix bins",
			log.BinsKey, train.MaxBins())
	}

	names := params.EvalMetric
	if len(names) == 0 {
		names = []string{obj.DefaultMetric()}
	}
	ms := make([]metrics.Metric, len(names))
	for i, name := range names {
		if ms[i], err = metrics.Get(name); err != nil {
			return nil, err
		}
	}

	k := obj.NumOutputs()
	s := &Session{
		params:    params,
		obj:       obj,
		train:     train,
		metrics:   ms,
		callbacks: NewCallbackList(cfg.callbacks...),
		logger:    cfg.logger,
		rng:       rand.New(rand.NewPCG(params.Seed, params.Seed)),
		gpairs:    make([]GradientPair, train.RowCount()*k),
		history:   make(map[string][]float64),
	}
	if k > 1 {
		s.scratch = make([]GradientPair, train.RowCount())
	}
	s.allRows = make([]int, train.RowCount())
	for i := range s.allRows {
		s.allRows[i] = i
	}

	if err := s.initEnsemble(cfg.init); err != nil {
		return nil, err
	}

	for _, ev := range cfg.evals {
		if ev.m == nil {
			return nil, errors.NewInvalidInputErrorf("NewSession", -1, -1, "evaluation set %q is nil", ev.name)
		}
		if ev.m.FeatureCount() < train.FeatureCount() {
			return nil, errors.NewDimensionError("NewSession", train.FeatureCount(), ev.m.FeatureCount(), 1)
		}
		if err := checkLabels(obj, ev.m); err != nil {
			return nil, errors.Wrapf(err, "evaluation set %q", ev.name)
		}
		s.evals = append(s.evals, &evalSet{name: ev.name, m: ev.m})
	}

	if params.Verbosity > 0 {
		s.callbacks.Add(LogEvaluation(1))
	}
	if params.EarlyStoppingRounds > 0 {
		if len(s.evals) == 0 {
			return nil, errors.NewConfigurationError("early_stopping_rounds",
				"requires at least one evaluation set", params.EarlyStoppingRounds)
		}
		last := s.evals[len(s.evals)-1].name
		s.callbacks.Add(EarlyStoppingCallback(params.EarlyStoppingRounds, evalKey(last, ms[0].Name())))
	}

	s.pool = parallel.NewPool(params.NThread)
	s.grower = NewGrower(train, s.pool, params.GrowerConfig())
	s.grower.SetLogger(s.logger)

	s.preds = s.initPreds(train)
	for _, ev := range s.evals {
		ev.preds = s.initPreds(ev.m)
	}

	s.logger.Info("Session created",
		log.ObjectiveKey, obj.Name(),
		log.SamplesKey, train.RowCount(),
		log.FeaturesKey, train.FeatureCount(),
		log.GrowPolicyKey, params.GrowPolicy,
		log.WorkersKey, s.pool.Workers(),
		log.LearningRateKey, params.LearningRate,
	)
	return s, nil
}

func checkLabels(obj Objective, m *Matrix) error {
	labels := m.Labels()
	if len(labels) != m.RowCount() {
		return errors.NewInvalidInputErrorf("NewSession", -1, -1, "matrix has %d labels for %d rows", len(labels), m.RowCount())
	}
	return obj.ValidateLabels(labels)
}

func (s *Session) initEnsemble(init *Ensemble) error {
	k := s.obj.NumOutputs()
	if init == nil {
		var base []float64
		if s.params.BaseScore != nil {
			base = s.params.baseMargin(s.obj)
		} else {
			base = s.obj.InitScore(s.train.Labels(), s.train.Weights())
		}
		s.ensemble = NewEnsemble(s.obj.Name(), k, s.train.FeatureCount(), base)
		return nil
	}

	switch {
	case init.NumOutputs != k:
		return errors.NewModelError("NewSession", "initial model output count mismatch",
			errors.Newf("model has %d outputs, objective has %d", init.NumOutputs, k))
	case LinkFor(init.Objective) != s.obj.Link():
		return errors.NewModelError("NewSession", "initial model objective mismatch",
			errors.Newf("model objective %s, session objective %s", init.Objective, s.obj.Name()))
	case init.NumFeatures > s.train.FeatureCount():
		return errors.NewDimensionError("NewSession", init.NumFeatures, s.train.FeatureCount(), 1)
	}
	s.ensemble = init.Slice(init.NumRounds())
	s.ensemble.Objective = s.obj.Name()
	s.ensemble.NumFeatures = s.train.FeatureCount()
	s.ensemble.BestIteration = -1
	return nil
}

func (s *Session) initPreds(m *Matrix) []float64 {
	k := s.ensemble.NumOutputs
	out := make([]float64, m.RowCount()*k)
	s.pool.Run(m.RowCount(), rowChunk, func(_, start, end int) {
		s.ensemble.predictRows(m, start, end, out)
	})
	return out
}

// Ensemble returns the ensemble built so far.
func (s *Session) Ensemble() *Ensemble { return s.ensemble }

// History returns every evaluation result recorded so far, keyed by "<set>-<metric>".
func (s *Session) History() map[string][]float64 {
	out := make(map[string][]float64, len(s.history))
	for k, v := range s.history {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// Step runs one boosting round: one tree per output. A round whose margins or
// metrics come out non-finite is removed from the ensemble and the session is
// closed, since its cached margins already include the bad trees.
func (s *Session) Step() (res RoundResult, err error) {
	defer errors.Recover(&err, "Session.Step")
	if s.closed {
		return res, errors.NewValueError("Session.Step", "session is closed")
	}

	begin := time.Now()
	round := s.ensemble.NumRounds()
	res.Round = round
	s.grower.SetRound(round)

	s.computeGradients()
	rows := s.sampleRows()
	features := s.sampleFeatures()

	k := s.ensemble.NumOutputs
	lr := s.params.LearningRate
	kept := len(s.ensemble.Trees)
	for out := 0; out < k; out++ {
		gp := s.gpairs
		if k > 1 {
			for r := range s.scratch {
				s.scratch[r] = s.gpairs[r*k+out]
			}
			gp = s.scratch
		}
		tree, stats := s.grower.Grow(rows, gp, features)
		s.ensemble.Append(tree, lr)
		res.Trees = append(res.Trees, stats)

		s.updatePreds(s.train, s.preds, tree, lr, out)
		for _, ev := range s.evals {
			s.updatePreds(ev.m, ev.preds, tree, lr, out)
		}

		s.logger.Debug("Tree grown",
			log.RoundKey, round,
			log.TreeKey, len(s.ensemble.Trees)-1,
			log.LeavesKey, stats.Leaves,
			log.DepthKey, stats.Depth,
			log.DegenerateKey, stats.DegenerateNodes,
		)
	}

	if err := errors.CheckNumericalStability("margin", s.preds, round); err != nil {
		s.discardRound(kept)
		return res, err
	}
	res.Evals, err = s.evaluate()
	if err != nil {
		s.discardRound(kept)
		return res, err
	}
	s.rounds++

	env := &CallbackEnv{
		Ensemble:    s.ensemble,
		Round:       round,
		BeginTime:   begin,
		EndTime:     time.Now(),
		EvalResults: make(map[string]float64, len(res.Evals)),
		Logger:      s.logger,
	}
	for _, e := range res.Evals {
		key := evalKey(e.Set, e.Metric)
		env.EvalResults[key] = e.Value
		s.history[key] = append(s.history[key], e.Value)
	}
	stop, err := s.callbacks.AfterIteration(env)
	if err != nil {
		return res, err
	}
	res.Stop = stop
	s.stopped = stop
	res.Duration = time.Since(begin)
	return res, nil
}

// discardRound drops the trees appended after kept and closes the session.
func (s *Session) discardRound(kept int) {
	s.ensemble.Trees = s.ensemble.Trees[:kept]
	s.ensemble.Shrinkage = s.ensemble.Shrinkage[:kept]
	s.logger.Warn("Round discarded", log.RoundKey, s.ensemble.NumRounds())
	s.Close()
}

// computeGradients fills gpairs from the current training margins.
func (s *Session) computeGradients() {
	k := s.ensemble.NumOutputs
	labels := s.train.Labels()
	weights := s.train.Weights()
	s.pool.Run(s.train.RowCount(), rowChunk, func(_, start, end int) {
		var w []float64
		if weights != nil {
			w = weights[start:end]
		}
		s.obj.Gradients(s.preds[start*k:end*k], labels[start:end], w, s.gpairs[start*k:end*k])
	})
}

// sampleRows draws a Bernoulli row sample. An empty draw falls back to all rows.
func (s *Session) sampleRows() []int {
	if s.params.Subsample >= 1 {
		return s.allRows
	}
	rows := make([]int, 0, int(float64(len(s.allRows))*s.params.Subsample)+1)
	for _, r := range s.allRows {
		if s.rng.Float64() < s.params.Subsample {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return s.allRows
	}
	return rows
}

// sampleFeatures picks the features considered by this round's trees, sorted.
func (s *Session) sampleFeatures() []int {
	n := s.train.FeatureCount()
	if s.params.ColsampleByTree >= 1 {
		features := make([]int, n)
		for i := range features {
			features[i] = i
		}
		return features
	}
	keep := int(float64(n)*s.params.ColsampleByTree + 0.5)
	if keep < 1 {
		keep = 1
	}
	features := s.rng.Perm(n)[:keep]
	sort.Ints(features)
	return features
}

func (s *Session) updatePreds(m *Matrix, preds []float64, tree *Tree, lr float64, out int) {
	k := s.ensemble.NumOutputs
	s.pool.Run(m.RowCount(), rowChunk, func(_, start, end int) {
		row := make([]float64, m.FeatureCount())
		for r := start; r < end; r++ {
			row = m.Row(r, row)
			preds[r*k+out] += lr * tree.Evaluate(row)
		}
	})
}

func (s *Session) evaluate() ([]EvalResult, error) {
	if len(s.evals) == 0 {
		return nil, nil
	}
	k := s.ensemble.NumOutputs
	link := s.obj.Link()
	var results []EvalResult
	for _, ev := range s.evals {
		transformed := make([]float64, len(ev.preds))
		for r := 0; r < ev.m.RowCount(); r++ {
			link.Apply(ev.preds[r*k:(r+1)*k], transformed[r*k:(r+1)*k])
		}
		for _, m := range s.metrics {
			v, err := m.Evaluate(ev.m.Labels(), transformed, ev.m.Weights(), k)
			if err != nil {
				return nil, errors.Wrapf(err, "evaluating %s on %s", m.Name(), ev.name)
			}
			if err := errors.CheckScalar(evalKey(ev.name, m.Name()), v, s.ensemble.NumRounds()-1); err != nil {
				return nil, err
			}
			results = append(results, EvalResult{Set: ev.name, Metric: m.Name(), Value: v})
		}
	}
	return results, nil
}

// Run trains up to num_boost_round rounds. Cancellation is checked between
// rounds; on cancellation the partial ensemble is returned with ctx.Err().
// A round with non-finite margins or metrics is not part of the returned ensemble.
// The session is closed when Run returns.
func (s *Session) Run(ctx context.Context) (_ *Ensemble, err error) {
	defer errors.Recover(&err, "Session.Run")
	defer s.Close()

	start := time.Now()
	s.logger.Info("Training started", log.OperationKey, log.OperationFit, log.PhaseKey, log.PhaseTraining)

	for s.rounds < s.params.NumBoostRound && !s.stopped {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Training cancelled", log.RoundKey, s.ensemble.NumRounds())
			return s.ensemble, err
		}
		if _, err := s.Step(); err != nil {
			return s.ensemble, err
		}
	}

	s.logger.Info("Training completed",
		log.RoundKey, s.ensemble.NumRounds(),
		log.BestRoundKey, s.ensemble.BestIteration,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return s.ensemble, nil
}

// Close releases the worker pool. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Close()
}

// Train creates a session and runs it to completion.
func Train(ctx context.Context, params Params, train *Matrix, opts ...SessionOption) (*Ensemble, error) {
	s, err := NewSession(params, train, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
