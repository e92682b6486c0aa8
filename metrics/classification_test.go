package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "Worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "Random classifier",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "All positive labels",
			yTrue: []float64{1, 1, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:  "All negative labels",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := AUC(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUC() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   mat.Matrix
		yPred   mat.Matrix
		want    float64
		wantErr bool
	}{
		{
			name:  "Matrix input",
			yTrue: mat.NewDense(4, 1, []float64{0, 0, 1, 1}),
			yPred: mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8}),
			want:  0.75,
		},
		{
			name:  "Multi-column matrix (uses first column)",
			yTrue: mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
			yPred: mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
			want:  0.75,
		},
		{
			name:    "Nil matrix",
			yTrue:   nil,
			yPred:   mat.NewDense(1, 1, []float64{0.5}),
			wantErr: true,
		},
		{
			name:    "Empty matrix",
			yTrue:   &mat.Dense{},
			yPred:   &mat.Dense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCMatrix(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUCMatrix() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AUCMatrix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassificationError(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classification",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  0.0,
		},
		{
			name:  "One error",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.2,
		},
		{
			name:  "All wrong",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  1.0,
		},
		{
			name:  "Binary classification",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 1, 1, 0},
			want:  0.5,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := ClassificationError(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("ClassificationError() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ClassificationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := Accuracy(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrecisionRecallF1Binary(t *testing.T) {
	yTrue := mat.NewVecDense(8, []float64{1, 1, 1, 0, 0, 0, 0, 1})
	yPred := mat.NewVecDense(8, []float64{1, 0, 1, 0, 1, 0, 0, 1})

	p, err := Precision(yTrue, yPred, AverageBinary)
	require.NoError(t, err)
	r, err := Recall(yTrue, yPred, AverageBinary)
	require.NoError(t, err)
	f, err := F1Score(yTrue, yPred, AverageBinary)
	require.NoError(t, err)

	// tp=3 fp=1 fn=1
	assert.InDelta(t, 0.75, p, 1e-12)
	assert.InDelta(t, 0.75, r, 1e-12)
	assert.InDelta(t, 0.75, f, 1e-12)
}

func TestPrecisionRecallF1Macro(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{0, 1, 2, 0, 1, 2})
	yPred := mat.NewVecDense(6, []float64{0, 2, 1, 0, 0, 1})

	p, err := Precision(yTrue, yPred, AverageMacro)
	require.NoError(t, err)
	r, err := Recall(yTrue, yPred, AverageMacro)
	require.NoError(t, err)
	f, err := F1Score(yTrue, yPred, AverageMacro)
	require.NoError(t, err)

	// sklearn: precision 0.2222, recall 0.3333, f1 0.2667
	assert.InDelta(t, 2.0/9.0, p, 1e-9)
	assert.InDelta(t, 1.0/3.0, r, 1e-9)
	assert.InDelta(t, 0.8/3.0, f, 1e-9)
}

func TestPrecisionUndefinedWarnsAndReturnsZero(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	yTrue := mat.NewVecDense(3, []float64{1, 0, 1})
	yPred := mat.NewVecDense(3, []float64{0, 0, 0})
	p, err := Precision(yTrue, yPred, AverageBinary)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	require.Len(t, warnings, 1)
	var umw *errors.UndefinedMetricWarning
	assert.ErrorAs(t, warnings[0], &umw)
}

func TestBinaryAverageRejectsMulticlass(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{0, 1, 2})
	yPred := mat.NewVecDense(3, []float64{0, 1, 2})
	_, err := Recall(yTrue, yPred, AverageBinary)
	var ve *errors.ValueError
	assert.ErrorAs(t, err, &ve)

	_, err = F1Score(yTrue, yPred, "weighted")
	var vale *errors.ValidationError
	assert.ErrorAs(t, err, &vale)
}

func TestScoresInUnitInterval(t *testing.T) {
	yTrue := mat.NewVecDense(10, []float64{1, 1, 1, 1, 1, 1, 1, 1, 0, 0})
	yPred := mat.NewVecDense(10, []float64{1, 1, 1, 1, 0, 1, 1, 1, 1, 0})
	for _, name := range []string{"accuracy", "precision", "recall", "f1"} {
		t.Run(name, func(t *testing.T) {
			scorer, err := GetScorer(name)
			require.NoError(t, err)
			v, err := scorer(yTrue, yPred, nil)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		})
	}
}

func TestGetScorer(t *testing.T) {
	_, err := GetScorer("neg_log_loss")
	var vale *errors.ValidationError
	assert.ErrorAs(t, err, &vale)

	auc, err := GetScorer("roc_auc")
	require.NoError(t, err)
	assert.True(t, NeedsProba("roc_auc"))
	assert.False(t, NeedsProba("accuracy"))

	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	proba := mat.NewDense(4, 2, []float64{
		0.9, 0.1,
		0.6, 0.4,
		0.65, 0.35,
		0.2, 0.8,
	})
	got, err := auc(yTrue, nil, proba)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	_, err = auc(yTrue, nil, nil)
	assert.Error(t, err)
}
