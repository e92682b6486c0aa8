package model_selection

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/atul219/Hotel-Reservation/core/model"
	"github.com/atul219/Hotel-Reservation/core/parallel"
	"github.com/atul219/Hotel-Reservation/metrics"
	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

// CandidateResult holds the cross-validation outcome of one sampled parameter set.
type CandidateResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Rank       int
}

// RandomizedSearchCV samples NIter parameter sets from ParamDistributions,
// scores each with cross-validation and refits the best one on all data.
type RandomizedSearchCV struct {
	Estimator          model.SearchableClassifier
	ParamDistributions map[string]Distribution
	NIter              int
	CV                 Splitter
	Scoring            string
	NJobs              int
	RandomState        uint64
	Refit              bool

	logger log.Logger

	// Fitted state
	BestEstimator model.SearchableClassifier
	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	CVResults     []CandidateResult
}

// SearchOption configures a RandomizedSearchCV.
type SearchOption func(*RandomizedSearchCV)

// WithNIter sets the number of sampled parameter sets.
func WithNIter(n int) SearchOption {
	return func(s *RandomizedSearchCV) { s.NIter = n }
}

// WithCV sets the splitter. An integer fold count is set with WithNFolds.
func WithCV(cv Splitter) SearchOption {
	return func(s *RandomizedSearchCV) { s.CV = cv }
}

// WithNFolds uses an unshuffled StratifiedKFold with n folds, as scikit-learn does for cv=n.
func WithNFolds(n int) SearchOption {
	return func(s *RandomizedSearchCV) { s.CV = NewStratifiedKFold(n, false, 0) }
}

// WithScoring sets the scorer name (see metrics.GetScorer).
func WithScoring(name string) SearchOption {
	return func(s *RandomizedSearchCV) { s.Scoring = name }
}

// WithNJobs bounds the number of fits running at once; -1 uses every core.
func WithNJobs(n int) SearchOption {
	return func(s *RandomizedSearchCV) { s.NJobs = n }
}

// WithRandomState seeds parameter sampling.
func WithRandomState(seed uint64) SearchOption {
	return func(s *RandomizedSearchCV) { s.RandomState = seed }
}

// WithRefit controls whether the best parameters are refit on the full data.
func WithRefit(refit bool) SearchOption {
	return func(s *RandomizedSearchCV) { s.Refit = refit }
}

// WithLogger sets the logger used for search progress.
func WithLogger(logger log.Logger) SearchOption {
	return func(s *RandomizedSearchCV) { s.logger = logger }
}

// NewRandomizedSearchCV creates a search with scikit-learn's defaults:
// 10 iterations, 5 stratified folds, accuracy scoring and refit enabled.
func NewRandomizedSearchCV(estimator model.SearchableClassifier, distributions map[string]Distribution, opts ...SearchOption) *RandomizedSearchCV {
	s := &RandomizedSearchCV{
		Estimator:          estimator,
		ParamDistributions: distributions,
		NIter:              10,
		CV:                 NewStratifiedKFold(5, false, 0),
		Scoring:            "accuracy",
		NJobs:              1,
		Refit:              true,
		logger:             log.Nop(),
		BestIndex:          -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleParams draws NIter parameter sets. Keys are sampled in sorted
// order so the result depends only on RandomState.
func (s *RandomizedSearchCV) SampleParams() []map[string]interface{} {
	keys := make([]string, 0, len(s.ParamDistributions))
	for k := range s.ParamDistributions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := rand.New(rand.NewPCG(s.RandomState, s.RandomState))
	candidates := make([]map[string]interface{}, s.NIter)
	for i := range candidates {
		params := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			params[k] = s.ParamDistributions[k].Sample(r)
		}
		candidates[i] = params
	}
	return candidates
}

// Fit runs the search.
func (s *RandomizedSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	if s.Estimator == nil {
		return errors.NewValidationError("estimator", "must not be nil", nil)
	}
	if s.NIter < 1 {
		return errors.NewValidationError("n_iter", "must be at least 1", s.NIter)
	}
	for k, d := range s.ParamDistributions {
		if c, ok := d.(Choice); ok && len(c) == 0 {
			return errors.NewValidationError(k, "choice needs at least one value", d)
		}
	}
	scorer, err := metrics.GetScorer(s.Scoring)
	if err != nil {
		return err
	}
	rows, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomizedSearchCV.Fit", rows, yRows, 0)
	}
	folds, err := s.CV.Split(X, y)
	if err != nil {
		return err
	}

	logger := s.logger
	if logger == nil {
		logger = log.Nop()
	}
	candidates := s.SampleParams()
	nFolds := len(folds)
	logger.Info("Starting randomized search",
		"candidates", len(candidates),
		"folds", nFolds,
		"fits", len(candidates)*nFolds,
		"scoring", s.Scoring,
	)

	// Fail fast on parameter names the estimator does not know.
	for _, params := range candidates {
		probe := s.Estimator.Clone().(model.SearchableClassifier)
		if err := probe.SetParams(params); err != nil {
			return err
		}
	}

	scores := make([]float64, len(candidates)*nFolds)
	start := time.Now()
	err = parallel.ForEach(ctx, len(scores), s.NJobs, func(ctx context.Context, job int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, f := job/nFolds, job%nFolds
		score, err := s.fitAndScore(candidates[c], folds[f], X, y, scorer)
		if err != nil {
			return errors.Wrapf(err, "candidate %d fold %d", c, f)
		}
		scores[job] = score
		logger.Debug("Fold scored", log.IterationKey, c, "fold", f, log.ScoreKey, score)
		return nil
	})
	if err != nil {
		return err
	}

	s.CVResults = make([]CandidateResult, len(candidates))
	s.BestIndex = -1
	for c, params := range candidates {
		foldScores := scores[c*nFolds : (c+1)*nFolds]
		mean, std := stat.PopMeanStdDev(foldScores, nil)
		s.CVResults[c] = CandidateResult{
			Params:     params,
			FoldScores: foldScores,
			MeanScore:  mean,
			StdScore:   std,
		}
		if s.BestIndex < 0 || betterScore(mean, s.CVResults[s.BestIndex].MeanScore) {
			s.BestIndex = c
		}
	}
	rankResults(s.CVResults)

	best := s.CVResults[s.BestIndex]
	s.BestParams = best.Params
	s.BestScore = best.MeanScore
	logger.Info("Randomized search completed",
		log.ScoreKey, s.BestScore,
		log.HyperParamsKey, s.BestParams,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if !s.Refit {
		return nil
	}
	bestEstimator := s.Estimator.Clone().(model.SearchableClassifier)
	if err := bestEstimator.SetParams(s.BestParams); err != nil {
		return err
	}
	if err := bestEstimator.Fit(X, y); err != nil {
		return errors.Wrap(err, "refit of best parameters failed")
	}
	s.BestEstimator = bestEstimator
	return nil
}

func (s *RandomizedSearchCV) fitAndScore(params map[string]interface{}, fold CVFold, X, y mat.Matrix, scorer metrics.Scorer) (float64, error) {
	est := s.Estimator.Clone().(model.SearchableClassifier)
	if err := est.SetParams(params); err != nil {
		return 0, err
	}
	XTrain, yTrain := takeRows(X, fold.TrainIndices), takeRows(y, fold.TrainIndices)
	XTest, yTest := takeRows(X, fold.TestIndices), takeRows(y, fold.TestIndices)
	if err := est.Fit(XTrain, yTrain); err != nil {
		return 0, err
	}
	pred, err := est.Predict(XTest)
	if err != nil {
		return 0, err
	}
	var proba mat.Matrix
	if metrics.NeedsProba(s.Scoring) {
		if proba, err = est.PredictProba(XTest); err != nil {
			return 0, err
		}
	}
	return scorer(columnVec(yTest), columnVec(pred), proba)
}

// Predict predicts with the refit best estimator.
func (s *RandomizedSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if s.BestEstimator == nil {
		return nil, errors.NewNotFittedError("RandomizedSearchCV", "Predict")
	}
	return s.BestEstimator.Predict(X)
}

// betterScore orders mean scores; NaN never wins and ties keep the earlier candidate.
func betterScore(candidate, best float64) bool {
	if math.IsNaN(candidate) {
		return false
	}
	return math.IsNaN(best) || candidate > best
}

// rankResults assigns scikit-learn style "min" ranks, 1 being best.
func rankResults(results []CandidateResult) {
	for i := range results {
		rank := 1
		for j := range results {
			if betterScore(results[j].MeanScore, results[i].MeanScore) {
				rank++
			}
		}
		results[i].Rank = rank
	}
}

func takeRows(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}

func columnVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
