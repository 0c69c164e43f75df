package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/ttpr0/go-assignment/algorithm"
	"github.com/ttpr0/go-assignment/choice"
	"github.com/ttpr0/go-assignment/network"
	. "github.com/ttpr0/go-assignment/util"
	"golang.org/x/exp/slog"
)

var (
	ErrInvalidInput       = errors.New("invalid solver input")
	ErrDisconnectedDemand = errors.New("OD with positive demand is disconnected")
	ErrNumericFailure     = errors.New("numeric failure in flow arithmetic")
	ErrNonConvergence     = errors.New("outer iteration cap reached before convergence")
)

//**********************************************************
// solver states
//**********************************************************

type SolverState byte

const (
	INIT    SolverState = 0
	COL_GEN SolverState = 1
	PRUNE   SolverState = 2
	INNER   SolverState = 3
	CHECK   SolverState = 4
	DONE    SolverState = 5
)

//**********************************************************
// RSUET driver
//**********************************************************

// Restricted stochastic user equilibrium with threshold. The outer
// iteration grows the restricted choice sets by column generation and
// enforces the phi threshold; the inner iteration solves the
// stochastic loading fixed point on the frozen sets with MSA steps.
type RSUET struct {
	rum   *choice.RUM
	phi   choice.RefCost
	omega choice.RefCost

	Epsilon               float64
	MaximumCostRatio      float64
	LocalMaximumCostRatio float64
	OuterMax              int
	InnerMax              int
	// gate inner probabilities by omega instead of the plain
	// restricted denominator
	UnrestrictedInner bool
}

func NewRSUET(rum *choice.RUM, phi choice.RefCost, omega choice.RefCost, epsilon float64) (*RSUET, error) {
	if rum == nil {
		return nil, fmt.Errorf("%w: rum is nil", ErrInvalidInput)
	}
	if epsilon <= 0 {
		return nil, fmt.Errorf("%w: epsilon must be > 0, got %v", ErrInvalidInput, epsilon)
	}
	return &RSUET{
		rum:                   rum,
		phi:                   phi,
		omega:                 omega,
		Epsilon:               epsilon,
		MaximumCostRatio:      1.4,
		LocalMaximumCostRatio: 2.0,
		OuterMax:              100,
		InnerMax:              200,
	}, nil
}

// Key/value view of the solver and RUM parameters for the output.
func (self *RSUET) Parameters() List[Tuple[string, string]] {
	params := NewList[Tuple[string, string]](12)
	params.Add(MakeTuple("rum", self.rum.Type.String()))
	params.Add(MakeTuple("theta", fmt.Sprint(self.rum.Theta)))
	params.Add(MakeTuple("beta-time", fmt.Sprint(self.rum.BetaTime)))
	params.Add(MakeTuple("beta-length", fmt.Sprint(self.rum.BetaLength)))
	params.Add(MakeTuple("path-size-exponent", fmt.Sprint(self.rum.PathSizeExponent)))
	params.Add(MakeTuple("phi", self.phi.String()))
	params.Add(MakeTuple("omega", self.omega.String()))
	params.Add(MakeTuple("epsilon", fmt.Sprint(self.Epsilon)))
	params.Add(MakeTuple("maximum-cost-ratio", fmt.Sprint(self.MaximumCostRatio)))
	params.Add(MakeTuple("local-maximum-cost-ratio", fmt.Sprint(self.LocalMaximumCostRatio)))
	params.Add(MakeTuple("outer-max", fmt.Sprint(self.OuterMax)))
	params.Add(MakeTuple("inner-max", fmt.Sprint(self.InnerMax)))
	return params
}

// Drives the network to equilibrium. On NonConvergence the pattern and
// the flows of the last iteration are still returned.
func (self *RSUET) Solve(net *network.Network) (*ConvergencePattern, error) {
	if self.MaximumCostRatio != -1 && self.MaximumCostRatio < 1 {
		return nil, fmt.Errorf("%w: maximum cost ratio must be >= 1, got %v", ErrInvalidInput, self.MaximumCostRatio)
	}
	if self.LocalMaximumCostRatio != 0 && self.LocalMaximumCostRatio < 1 {
		return nil, fmt.Errorf("%w: local maximum cost ratio must be >= 1, got %v", ErrInvalidInput, self.LocalMaximumCostRatio)
	}

	conv := NewConvergencePattern()
	dijkstra := algorithm.NewDijkstraSolver(net)

	state := INIT
	outer := 0
	inner := 0
	for state != DONE {
		switch state {
		case INIT:
			if err := self.initialise(net, dijkstra); err != nil {
				return conv, err
			}
			state = COL_GEN
		case COL_GEN:
			outer++
			if outer > self.OuterMax {
				slog.Warn(fmt.Sprintf("no convergence after %v outer iterations, gap %v", self.OuterMax, conv.LastGap()))
				return conv, fmt.Errorf("%w: gap %v after %v iterations", ErrNonConvergence, conv.LastGap(), self.OuterMax)
			}
			if err := self.columnGeneration(net, dijkstra); err != nil {
				return conv, err
			}
			state = PRUNE
		case PRUNE:
			if err := self.pruneAboveThreshold(net); err != nil {
				return conv, err
			}
			state = INNER
		case INNER:
			var err error
			inner, err = self.solveInner(net)
			if err != nil {
				return conv, err
			}
			state = CHECK
		case CHECK:
			self.updateTransformedCosts(net)
			gap := self.relGapUsed(net)
			conv.Add(outer, inner, gap, net.MaxChoiceSetSize(), net.CalculateAvgChoiceSetSize())
			slog.Info(fmt.Sprintf("outer %v: %v inner iterations, gap %v", outer, inner, gap))
			if gap < self.Epsilon {
				state = DONE
			} else {
				state = COL_GEN
			}
		}
	}
	return conv, nil
}

// Free-flow costs plus an all-or-nothing assignment seeding the
// restricted choice sets.
func (self *RSUET) initialise(net *network.Network, dijkstra *algorithm.DijkstraSolver) error {
	for _, edge := range net.Edges() {
		edge.SetFlow(0)
	}
	net.UpdateEdgeCosts(self.rum)

	lastOrigin := int32(-1)
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		if od.O != lastOrigin {
			dijkstra.ShortestPathsFrom(od.O)
		}
		lastOrigin = od.O
		path, err := dijkstra.ShortestPath(od)
		if err != nil {
			slog.Error(fmt.Sprintf("OD (%v,%v) with demand %v has no path", od.O, od.D, od.Demand))
			firstErr = fmt.Errorf("%w: OD (%v,%v)", ErrDisconnectedDemand, od.O, od.D)
			return
		}
		// flow goes onto the member path when an equal one is
		// already seeded
		target := od.FindPath(path)
		if target == nil {
			od.RestrictedChoiceSet.Add(path)
			target = path
		}
		if err := target.SetFlow(od.Demand); err != nil {
			firstErr = fmt.Errorf("%w: %v", ErrNumericFailure, err)
		}
	})
	if firstErr != nil {
		return firstErr
	}

	net.LoadNetwork()
	net.UpdateEdgeCosts(self.rum)
	net.UpdatePathCosts()
	if self.rum.UsesPathSize() {
		net.UpdatePathSizeFactors(self.rum.PathSizeExponent)
	}
	return nil
}

// Adds the current shortest path of every OD to its restricted choice
// set when it is not yet a member.
func (self *RSUET) columnGeneration(net *network.Network, dijkstra *algorithm.DijkstraSolver) error {
	lastOrigin := int32(-1)
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		od.PathWasAddedDuringColumnGeneration = false
		if od.O != lastOrigin {
			dijkstra.ShortestPathsFrom(od.O)
		}
		lastOrigin = od.O
		path, err := dijkstra.ShortestPath(od)
		if err != nil {
			firstErr = fmt.Errorf("%w: OD (%v,%v)", ErrDisconnectedDemand, od.O, od.D)
			return
		}
		if od.AddPath(path) {
			path.UpdateCost()
			if od.MinimumCost() > path.GenCost {
				od.SetMinimumCost(path.GenCost)
			}
			od.PathWasAddedDuringColumnGeneration = true
		}
	})
	if firstErr != nil {
		return firstErr
	}
	if self.rum.UsesPathSize() {
		net.UpdatePathSizeFactorsWherePathsWereAdded(self.rum.PathSizeExponent)
	}
	return nil
}

// Removes paths costing more than the phi threshold (tightened by the
// local cost ratio when set) and redistributes their flow over the
// kept paths proportionally to the RUM probabilities. When every path
// of an OD breaches the threshold the cheapest one is restored so the
// demand stays assigned.
func (self *RSUET) pruneAboveThreshold(net *network.Network) error {
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		threshold := self.phi.Calculate(od)
		if self.LocalMaximumCostRatio >= 1 {
			local := self.LocalMaximumCostRatio * od.MinimumCost()
			if local < threshold {
				threshold = local
			}
		}

		removedFlow := 0.0
		marked := 0
		var cheapest *network.Path
		for _, path := range od.RestrictedChoiceSet {
			path.MarkedForRemoval = path.GenCost > threshold
			if path.MarkedForRemoval {
				marked++
				if cheapest == nil || path.GenCost < cheapest.GenCost {
					cheapest = path
				}
			}
		}
		if marked == od.RestrictedChoiceSet.Length() && cheapest != nil {
			cheapest.MarkedForRemoval = false
			marked--
		}
		if marked == 0 {
			for _, path := range od.RestrictedChoiceSet {
				path.MarkedForRemoval = false
			}
			return
		}

		for _, path := range od.RestrictedChoiceSet {
			if path.MarkedForRemoval {
				removedFlow += path.Flow()
			}
		}

		// probabilities on the kept set
		denominator := 0.0
		kept := NewList[*network.Path](od.RestrictedChoiceSet.Length() - marked)
		for _, path := range od.RestrictedChoiceSet {
			if path.MarkedForRemoval {
				continue
			}
			path.Enumerator = self.rum.Enumerator(path)
			denominator += path.Enumerator
			kept.Add(path)
		}
		for _, path := range kept {
			p := 1.0 / float64(kept.Length())
			if denominator > 0 {
				p = path.Enumerator / denominator
			}
			if err := path.SetFlow(path.Flow() + removedFlow*p); err != nil {
				firstErr = fmt.Errorf("%w: %v", ErrNumericFailure, err)
				return
			}
		}
		od.RemoveMarkedPaths()
	})
	return firstErr
}

// Restricted stochastic loading on the frozen choice sets with MSA
// step sizes until the gap falls below epsilon or the iteration cap is
// hit. Returns the number of inner iterations run.
func (self *RSUET) solveInner(net *network.Network) (int, error) {
	for m := 1; m <= self.InnerMax; m++ {
		gamma := 1.0 / float64(m+1)

		net.UpdateEdgeCosts(self.rum)
		net.UpdatePathCosts()
		if self.rum.UsesPathSize() {
			net.UpdatePathSizeFactors(self.rum.PathSizeExponent)
		}

		var err error
		if self.UnrestrictedInner {
			err = self.unrestrictedMasterProblemInnerLogit(net, gamma)
		} else {
			err = self.restrictedInnerMasterProblem(net, gamma)
		}
		if err != nil {
			return m, err
		}

		net.LoadNetwork()
		self.updateTransformedCosts(net)
		if self.relGapUsed(net) < self.Epsilon {
			return m, nil
		}
	}
	return self.InnerMax, nil
}

// Assigns probabilities and auxiliary flows over the full restricted
// choice set, then moves flows towards the auxiliary solution by
// gamma. Falls back to uniform probabilities when every enumerator is
// zero.
func (self *RSUET) restrictedInnerMasterProblem(net *network.Network, gamma float64) error {
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		denominator := 0.0
		for _, path := range od.RestrictedChoiceSet {
			path.Enumerator = self.rum.Enumerator(path)
			denominator += path.Enumerator
		}
		for _, path := range od.RestrictedChoiceSet {
			if denominator > 0 {
				path.P = path.Enumerator / denominator
			} else {
				path.P = 1.0 / float64(od.RestrictedChoiceSet.Length())
			}
		}
		firstErr = self.updateFlows(od, gamma)
	})
	return firstErr
}

// Like the restricted master problem, but paths above the omega
// threshold receive zero probability, so their flow decays by (1 -
// gamma) per iteration.
func (self *RSUET) unrestrictedMasterProblemInnerLogit(net *network.Network, gamma float64) error {
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		threshold := self.omega.Calculate(od)
		denominator := 0.0
		for _, path := range od.RestrictedChoiceSet {
			if path.GenCost <= threshold {
				path.Enumerator = self.rum.Enumerator(path)
			} else {
				path.Enumerator = 0
			}
			denominator += path.Enumerator
		}
		for _, path := range od.RestrictedChoiceSet {
			if denominator > 0 {
				path.P = path.Enumerator / denominator
			} else {
				path.P = 1.0 / float64(od.RestrictedChoiceSet.Length())
			}
		}
		firstErr = self.updateFlows(od, gamma)
	})
	return firstErr
}

func (self *RSUET) updateFlows(od *network.OD, gamma float64) error {
	for _, path := range od.RestrictedChoiceSet {
		path.SetAuxFlow(od.Demand * path.P)
		if err := path.SetFlow(path.Flow()*(1-gamma) + path.AuxFlow()*gamma); err != nil {
			return fmt.Errorf("%w: %v", ErrNumericFailure, err)
		}
	}
	return nil
}

// Transformed cost flow/enumerator per path, zero for unused paths and
// paths above the omega threshold, plus the per-OD minimum over used
// paths.
func (self *RSUET) updateTransformedCosts(net *network.Network) {
	net.ForEachOD(func(od *network.OD) {
		threshold := self.omega.Calculate(od)
		minTransformed := math.Inf(1)
		for _, path := range od.RestrictedChoiceSet {
			path.TransformedCost = 0
			if path.Flow() == 0 || path.GenCost > threshold {
				continue
			}
			enumerator := self.rum.Enumerator(path)
			if enumerator <= 0 {
				continue
			}
			path.TransformedCost = path.Flow() / enumerator
			if path.TransformedCost < minTransformed {
				minTransformed = path.TransformedCost
			}
		}
		od.SetMinimumTransformedCost(minTransformed)
	})
}

// Relative gap over used routes weighted by their flows. Paths with
// zero transformed cost are excluded on both sides of the fraction.
func (self *RSUET) relGapUsed(net *network.Network) float64 {
	numerator := 0.0
	denominator := 0.0
	net.ForEachOD(func(od *network.OD) {
		cmin := od.MinimumTransformedCost()
		if math.IsInf(cmin, 1) {
			return
		}
		for _, path := range od.RestrictedChoiceSet {
			flow := path.Flow()
			if flow <= 0 || path.TransformedCost == 0 {
				continue
			}
			numerator += flow * (path.TransformedCost - cmin)
			denominator += flow * path.TransformedCost
		}
	})
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
