package log

// 学習・推論の文脈を表す属性キー。
// 階層的な命名（"model.objective", "train.round" など）で集計・絞り込みを容易にします。
const (
	ComponentKey = "component"
	ModelNameKey = "model.name"
	ObjectiveKey = "model.objective"
	OperationKey = "ml.operation"
	PhaseKey     = "ml.phase"
)

// データ形状
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	BinsKey     = "data.bins"
)

// ブースティング
const (
	RoundKey      = "train.round"
	TreeKey       = "train.tree"
	NodeKey       = "train.node"
	DepthKey      = "train.depth"
	LeavesKey     = "train.leaves"
	GainKey       = "train.gain"
	WorkersKey    = "train.workers"
	GrowPolicyKey = "train.grow_policy"
	DegenerateKey = "train.degenerate_nodes"
)

// 評価・性能
const (
	DurationMsKey   = "perf.duration_ms"
	EvalSetKey      = "eval.set"
	MetricKey       = "eval.metric"
	ScoreKey        = "eval.score"
	BestRoundKey    = "eval.best_round"
	BestScoreKey    = "eval.best_score"
	PredsKey        = "preds.count"
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
)

// エラー
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// 標準的な値
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationLoad    = "load"
	OperationSave    = "save"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
