package config

import (
	"sort"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/sklearn/model_selection"
)

// ParamDistribution describes one hyperparameter's search distribution:
//
//	n_estimators:  {type: randint, low: 100, high: 500}
//	learning_rate: {type: uniform, loc: 0.01, scale: 0.2}
//	boosting_type: {type: choice, values: [gbdt]}
type ParamDistribution struct {
	Type   string        `yaml:"type"`
	Low    int           `yaml:"low,omitempty"`
	High   int           `yaml:"high,omitempty"`
	Loc    float64       `yaml:"loc,omitempty"`
	Scale  float64       `yaml:"scale,omitempty"`
	Values []interface{} `yaml:"values,omitempty"`
}

// DefaultParamDistributions is the LightGBM search space used when the
// configuration does not provide one.
func DefaultParamDistributions() map[string]ParamDistribution {
	return map[string]ParamDistribution{
		"n_estimators":  {Type: "randint", Low: 100, High: 500},
		"max_depth":     {Type: "randint", Low: 5, High: 50},
		"learning_rate": {Type: "uniform", Loc: 0.01, Scale: 0.2},
		"num_leaves":    {Type: "randint", Low: 20, High: 100},
		"boosting_type": {Type: "choice", Values: []interface{}{"gbdt"}},
	}
}

// Distribution converts the description into a sampler.
func (p ParamDistribution) Distribution() (model_selection.Distribution, error) {
	switch p.Type {
	case "randint":
		return model_selection.RandInt(p.Low, p.High)
	case "uniform":
		return model_selection.Uniform(p.Loc, p.Scale)
	case "choice":
		if len(p.Values) == 0 {
			return nil, errors.NewValidationError("values", "choice needs at least one value", p.Values)
		}
		return model_selection.Choice(p.Values), nil
	default:
		return nil, errors.NewValidationError("type", "must be randint, uniform or choice", p.Type)
	}
}

// Distributions converts every configured distribution, reporting the
// first invalid one by parameter name.
func (m ModelTraining) Distributions() (map[string]model_selection.Distribution, error) {
	names := make([]string, 0, len(m.ParamDistributions))
	for name := range m.ParamDistributions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]model_selection.Distribution, len(names))
	for _, name := range names {
		d, err := m.ParamDistributions[name].Distribution()
		if err != nil {
			return nil, errors.Wrapf(err, "model_training.param_distributions.%s", name)
		}
		out[name] = d
	}
	return out, nil
}
