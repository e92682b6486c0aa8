// Package hotelreservation is a training pipeline for a hotel booking
// cancellation model.
//
// The pipeline runs three stages in sequence:
//
//  1. pipeline/ingestion downloads the raw reservations CSV from an object
//     store (Google Cloud Storage, an S3 compatible service or a local
//     directory) and writes a seeded train/test split.
//  2. pipeline/processing drops identifier columns and duplicate rows,
//     label encodes categorical columns, log transforms skewed numerical
//     columns, rebalances classes with SMOTE and keeps the features a
//     random forest ranks highest.
//  3. pipeline/training tunes a gradient boosted tree classifier with
//     randomized search and stratified cross-validation, evaluates it on the
//     test split, saves it and records datasets, model, parameters and
//     metrics in an MLflow style run directory.
//
// The numerical building blocks follow the scikit-learn API on top of gonum
// matrices:
//
//   - dataframe: small CSV backed tables
//   - preprocessing: LabelEncoder and SkewTransformer
//   - sklearn/imblearn: SMOTE oversampling
//   - sklearn/tree, sklearn/ensemble: CART trees and random forests
//   - sklearn/lightgbm: histogram based gradient boosting classifier
//   - sklearn/model_selection: splits, k-fold splitters and RandomizedSearchCV
//   - metrics: classification metrics and named scorers
//   - core/model, core/parallel: estimator state, persistence and worker fan-out
//
// Run the whole pipeline with
//
//	go run ./cmd/pipeline -config config/config.yaml
//
// or only the ingestion stage with ./cmd/ingest.
package hotelreservation
