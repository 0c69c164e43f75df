package choice

import (
	"errors"
	"fmt"

	"github.com/ttpr0/go-assignment/network"
)

var ErrInvalidParameter = errors.New("invalid parameter")

//**********************************************************
// reference cost functions
//**********************************************************

type RefCostType byte

const (
	TAU_MIN        RefCostType = 0
	MIN_PLUS_DELTA RefCostType = 1
)

func RefCostTypeFromString(name string) (RefCostType, error) {
	switch name {
	case "tau-min":
		return TAU_MIN, nil
	case "min-plus-delta":
		return MIN_PLUS_DELTA, nil
	}
	return 0, fmt.Errorf("%w: unknown reference cost type %v", ErrInvalidParameter, name)
}

// Threshold function on the minimum OD cost. TAU_MIN scales the
// minimum cost by tau, MIN_PLUS_DELTA adds a constant delta.
type RefCost struct {
	Type  RefCostType
	Tau   float64
	Delta float64
}

func NewRefCostTauMin(tau float64) (RefCost, error) {
	if tau < 1 {
		return RefCost{}, fmt.Errorf("%w: tau must be >= 1, got %v", ErrInvalidParameter, tau)
	}
	return RefCost{Type: TAU_MIN, Tau: tau}, nil
}

func NewRefCostMinPlusDelta(delta float64) (RefCost, error) {
	if delta < 0 {
		return RefCost{}, fmt.Errorf("%w: delta must be >= 0, got %v", ErrInvalidParameter, delta)
	}
	return RefCost{Type: MIN_PLUS_DELTA, Delta: delta}, nil
}

func (self RefCost) Calculate(od *network.OD) float64 {
	switch self.Type {
	case TAU_MIN:
		return self.Tau * od.MinimumCost()
	case MIN_PLUS_DELTA:
		return od.MinimumCost() + self.Delta
	}
	return od.MinimumCost()
}

func (self RefCost) String() string {
	switch self.Type {
	case TAU_MIN:
		return fmt.Sprintf("%v*minCost", self.Tau)
	case MIN_PLUS_DELTA:
		return fmt.Sprintf("minCost+%v", self.Delta)
	}
	return "minCost"
}
