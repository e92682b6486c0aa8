// Package model は推定器の共通インターフェース、学習状態の管理、永続化を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples × 1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は分類モデルのインターフェース
type Classifier interface {
	Fitter
	Predictor

	// PredictProba は各クラスの確率を返す (n_samples × n_classes)
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に見たクラスラベルを昇順で返す
	Classes() []int
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータの変更を許すモデルのインターフェース
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// FeatureImportancer は特徴量重要度を返すモデルのインターフェース
type FeatureImportancer interface {
	// FeatureImportances は合計1に正規化された重要度を列順に返す
	FeatureImportances() ([]float64, error)
}

// Cloner は同じハイパーパラメータを持つ未学習のコピーを作れるモデルのインターフェース。
// RandomizedSearchCV が候補ごとに新しい推定器を作るのに使う。
type Cloner interface {
	Clone() Classifier
}

// SearchableClassifier はハイパーパラメータ探索の対象にできる分類器
type SearchableClassifier interface {
	Classifier
	Cloner
	ParameterGetter
	ParameterSetter
}
