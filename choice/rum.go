package choice

import (
	"fmt"
	"math"

	"github.com/ttpr0/go-assignment/network"
)

//**********************************************************
// random utility models
//**********************************************************

type RUMType byte

const (
	MNL  RUMType = 0
	TMNL RUMType = 1
	PSL  RUMType = 2
)

func RUMTypeFromString(name string) (RUMType, error) {
	switch name {
	case "mnl":
		return MNL, nil
	case "tmnl":
		return TMNL, nil
	case "psl":
		return PSL, nil
	}
	return 0, fmt.Errorf("%w: unknown RUM type %v", ErrInvalidParameter, name)
}

func (self RUMType) String() string {
	switch self {
	case MNL:
		return "mnl"
	case TMNL:
		return "tmnl"
	case PSL:
		return "psl"
	}
	return "unknown"
}

// Random utility model over path generalized costs. All variants are
// known at build time and dispatched on Type:
//
//	MNL   e_k = exp(-theta * genCost)
//	TMNL  e_k = exp(-theta * genCost) below omega(od), 0 above
//	PSL   e_k = PS * exp(-theta * genCost)
type RUM struct {
	Type             RUMType
	Theta            float64
	BetaTime         float64
	BetaLength       float64
	PathSizeExponent float64
	// upper reference cost, truncates TMNL enumerators
	Omega RefCost
}

func NewRUM(typ RUMType, theta float64, betaTime float64, betaLength float64, pathSizeExponent float64, omega RefCost) (*RUM, error) {
	if theta <= 0 {
		return nil, fmt.Errorf("%w: theta must be > 0, got %v", ErrInvalidParameter, theta)
	}
	if betaTime < 0 || betaLength < 0 {
		return nil, fmt.Errorf("%w: beta weights must be >= 0, got (%v,%v)", ErrInvalidParameter, betaTime, betaLength)
	}
	if pathSizeExponent < 0 {
		return nil, fmt.Errorf("%w: path size exponent must be >= 0, got %v", ErrInvalidParameter, pathSizeExponent)
	}
	return &RUM{
		Type:             typ,
		Theta:            theta,
		BetaTime:         betaTime,
		BetaLength:       betaLength,
		PathSizeExponent: pathSizeExponent,
		Omega:            omega,
	}, nil
}

var _ network.ICostFunction = &RUM{}

// Generalized cost of a link as the linear combination of travel time
// and length.
func (self *RUM) EdgeCost(time float64, length float64) float64 {
	return self.BetaTime*time + self.BetaLength*length
}

// Additive deterministic utility of a path; the negative generalized
// cost since edge costs carry the same beta weights.
func (self *RUM) DeterministicUtility(path *network.Path) float64 {
	return -path.GenCost
}

// Enumerator of the choice probability expression. Non-negative; zero
// means the path receives no probability mass.
func (self *RUM) Enumerator(path *network.Path) float64 {
	switch self.Type {
	case TMNL:
		if path.GenCost > self.Omega.Calculate(path.OD()) {
			return 0
		}
		return math.Exp(-self.Theta * path.GenCost)
	case PSL:
		return path.PS * math.Exp(-self.Theta*path.GenCost)
	}
	return math.Exp(-self.Theta * path.GenCost)
}

// Whether the variant needs path-size overlap factors.
func (self *RUM) UsesPathSize() bool {
	return self.Type == PSL
}
