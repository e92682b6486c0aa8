package model_selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
)

// Distribution is a hyperparameter distribution that can be sampled.
type Distribution interface {
	Sample(r *rand.Rand) interface{}
	String() string
}

// IntRange samples integers uniformly from [Low, High), like scipy.stats.randint.
type IntRange struct {
	Low, High int
}

// RandInt returns an IntRange distribution over [low, high).
func RandInt(low, high int) (IntRange, error) {
	if high <= low {
		return IntRange{}, errors.NewValidationError("randint", fmt.Sprintf("high (%d) must be greater than low", high), low)
	}
	return IntRange{Low: low, High: high}, nil
}

func (d IntRange) Sample(r *rand.Rand) interface{} {
	return d.Low + r.IntN(d.High-d.Low)
}

func (d IntRange) String() string {
	return fmt.Sprintf("randint(%d, %d)", d.Low, d.High)
}

// FloatUniform samples floats uniformly from [Loc, Loc+Scale], like scipy.stats.uniform.
type FloatUniform struct {
	Loc, Scale float64
}

// Uniform returns a FloatUniform distribution over [loc, loc+scale].
func Uniform(loc, scale float64) (FloatUniform, error) {
	if scale < 0 {
		return FloatUniform{}, errors.NewValidationError("uniform", "scale must be non-negative", scale)
	}
	return FloatUniform{Loc: loc, Scale: scale}, nil
}

func (d FloatUniform) Sample(r *rand.Rand) interface{} {
	return d.Loc + d.Scale*r.Float64()
}

func (d FloatUniform) String() string {
	return fmt.Sprintf("uniform(loc=%g, scale=%g)", d.Loc, d.Scale)
}

// Choice samples one of a fixed list of values with equal probability.
type Choice []interface{}

func (d Choice) Sample(r *rand.Rand) interface{} {
	return d[r.IntN(len(d))]
}

func (d Choice) String() string {
	return fmt.Sprintf("choice%v", []interface{}(d))
}
