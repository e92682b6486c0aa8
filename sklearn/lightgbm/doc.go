// Package lightgbm implements LightGBM style gradient boosted decision
// trees for classification in pure Go.
//
// Training follows LightGBM's gbdt algorithm:
//   - Features are discretized into at most max_bin histogram bins
//   - Trees grow leaf-wise, always splitting the leaf with the largest gain
//   - Leaf outputs are Newton steps with L1/L2 regularization
//
// Binary problems use a logistic objective on one raw score per sample,
// multiclass problems use softmax over one raw score per class.
//
// # scikit-learn Compatible API
//
//	clf := lightgbm.NewLGBMClassifier(
//	    lightgbm.WithNEstimators(200),
//	    lightgbm.WithRandomState(42),
//	)
//	if err := clf.Fit(XTrain, yTrain); err != nil {
//	    return err
//	}
//	proba, _ := clf.PredictProba(XTest)
//	accuracy, _ := clf.Score(XTest, yTest)
//
// Hyperparameters use the names of lightgbm.LGBMClassifier and can be
// changed with SetParams, which is what model_selection.RandomizedSearchCV does:
//
//	err := clf.SetParams(map[string]interface{}{
//	    "num_leaves":    63,
//	    "learning_rate": 0.05,
//	})
//
// # Persistence
//
// LGBMClassifier implements gob.GobEncoder, so fitted models round-trip
// through model.SaveModel and model.LoadModel.
package lightgbm
