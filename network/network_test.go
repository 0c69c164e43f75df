package network

import (
	"errors"
	"math"
	"testing"

	. "github.com/ttpr0/go-assignment/util"
)

// cost function weighting travel time only
type time_cost struct{}

func (time_cost) EdgeCost(time float64, length float64) float64 {
	return time
}

// Builds a diamond network 1 -> {2,3} -> 4 with one OD (1,4).
func buildDiamond(t *testing.T, demand float64) *Network {
	t.Helper()
	net := New("diamond")
	for i := 1; i <= 4; i++ {
		net.AddNode(NewNode(int32(i), 0, 0))
	}
	params := [][4]float64{
		// tail, head, freeFlowTime, capacity
		{1, 2, 5, 100},
		{2, 4, 5, 100},
		{1, 3, 7.5, 100},
		{3, 4, 7.5, 100},
	}
	for i, p := range params {
		net.AddEdge(&Edge{
			ID:           int32(i + 1),
			Tail:         int32(p[0]),
			Head:         int32(p[1]),
			Capacity:     p[3],
			FreeFlowTime: p[2],
			Length:       1,
			B:            0.15,
			Power:        4,
		})
	}
	net.AddOD(NewOD(1, 4, demand))
	return net
}

func pathThrough(t *testing.T, net *Network, nodes ...int32) *Path {
	t.Helper()
	od := net.GetOD(nodes[0], nodes[len(nodes)-1])
	edges := NewList[*Edge](len(nodes) - 1)
	for i := 0; i < len(nodes)-1; i++ {
		edge, err := net.GetEdge(nodes[i], nodes[i+1])
		if err != nil {
			t.Fatal(err)
		}
		edges.Add(edge)
	}
	return NewPath(edges, od)
}

func TestGetEdge(t *testing.T) {
	net := buildDiamond(t, 100)
	edge, err := net.GetEdge(1, 2)
	if err != nil || edge.ID != 1 {
		t.Errorf("GetEdge(1,2) = %v, %v; want edge 1", edge, err)
	}
	if _, err := net.GetEdge(2, 1); !errors.Is(err, ErrNoSuchEdge) {
		t.Errorf("GetEdge(2,1) error = %v; want ErrNoSuchEdge", err)
	}
}

func TestBPRUpdate(t *testing.T) {
	net := buildDiamond(t, 100)
	edge, _ := net.GetEdge(1, 2)
	edge.SetFlow(100)
	edge.UpdateCost(time_cost{})
	// t = 5 * (1 + 0.15 * (100/100)^4)
	want := 5 * 1.15
	if math.Abs(edge.Time()-want) > 1e-12 {
		t.Errorf("Time() = %v; want %v", edge.Time(), want)
	}
	if edge.GenCost() != edge.Time() {
		t.Errorf("GenCost() = %v; want %v", edge.GenCost(), edge.Time())
	}
}

func TestBPRMonotoneInFlow(t *testing.T) {
	net := buildDiamond(t, 100)
	edge, _ := net.GetEdge(1, 2)
	last := 0.0
	for flow := 0.0; flow <= 400; flow += 50 {
		edge.SetFlow(flow)
		edge.UpdateCost(time_cost{})
		if edge.Time() < last {
			t.Fatalf("Time() = %v at flow %v, below %v", edge.Time(), flow, last)
		}
		last = edge.Time()
	}
}

func TestLoadNetwork(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	upper := pathThrough(t, net, 1, 2, 4)
	lower := pathThrough(t, net, 1, 3, 4)
	od.AddPath(upper)
	od.AddPath(lower)
	upper.SetFlow(60)
	lower.SetFlow(40)

	net.LoadNetwork()
	for _, nodes := range [][2]int32{{1, 2}, {2, 4}} {
		edge, _ := net.GetEdge(nodes[0], nodes[1])
		if edge.Flow() != 60 {
			t.Errorf("edge (%v,%v) flow = %v; want 60", nodes[0], nodes[1], edge.Flow())
		}
	}
	for _, nodes := range [][2]int32{{1, 3}, {3, 4}} {
		edge, _ := net.GetEdge(nodes[0], nodes[1])
		if edge.Flow() != 40 {
			t.Errorf("edge (%v,%v) flow = %v; want 40", nodes[0], nodes[1], edge.Flow())
		}
	}

	// loading twice must not double flows
	net.LoadNetwork()
	edge, _ := net.GetEdge(1, 2)
	if edge.Flow() != 60 {
		t.Errorf("flow after second load = %v; want 60", edge.Flow())
	}
}

func TestPathEquality(t *testing.T) {
	net := buildDiamond(t, 100)
	a := pathThrough(t, net, 1, 2, 4)
	b := pathThrough(t, net, 1, 2, 4)
	c := pathThrough(t, net, 1, 3, 4)

	if !a.Equals(a) {
		t.Errorf("equality not reflexive")
	}
	if !a.Equals(b) || !b.Equals(a) {
		t.Errorf("equality not symmetric on identical node sequences")
	}
	if a.Equals(c) {
		t.Errorf("distinct paths compare equal")
	}

	net.UpdateEdgeCosts(time_cost{})
	if a.UpdateCost() != b.UpdateCost() {
		t.Errorf("equal paths with different costs after shared refresh")
	}
}

func TestAddPathDeduplicates(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	if !od.AddPath(pathThrough(t, net, 1, 2, 4)) {
		t.Fatalf("first AddPath rejected")
	}
	if od.AddPath(pathThrough(t, net, 1, 2, 4)) {
		t.Errorf("duplicate path was added")
	}
	if od.RestrictedChoiceSet.Length() != 1 {
		t.Errorf("choice set size = %v; want 1", od.RestrictedChoiceSet.Length())
	}
}

func TestSetFlowRejectsNaN(t *testing.T) {
	net := buildDiamond(t, 100)
	path := pathThrough(t, net, 1, 2, 4)
	if err := path.SetFlow(math.NaN()); !errors.Is(err, ErrInvalidFlow) {
		t.Errorf("SetFlow(NaN) error = %v; want ErrInvalidFlow", err)
	}
	if err := path.SetFlow(math.Inf(1)); !errors.Is(err, ErrInvalidFlow) {
		t.Errorf("SetFlow(+Inf) error = %v; want ErrInvalidFlow", err)
	}
	if err := path.SetFlow(25); err != nil {
		t.Errorf("SetFlow(25) error = %v", err)
	}
}

func TestDemandIntegrity(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	upper := pathThrough(t, net, 1, 2, 4)
	lower := pathThrough(t, net, 1, 3, 4)
	od.AddPath(upper)
	od.AddPath(lower)
	upper.SetFlow(60)
	lower.SetFlow(40)
	if violated := net.TestDemandIntegrity(1e-9); violated != nil {
		t.Errorf("TestDemandIntegrity = %v; want nil", violated)
	}
	lower.SetFlow(20)
	if violated := net.TestDemandIntegrity(1e-9); violated != od {
		t.Errorf("TestDemandIntegrity = %v; want the diamond OD", violated)
	}
}

func TestChoiceSetStatistics(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	upper := pathThrough(t, net, 1, 2, 4)
	lower := pathThrough(t, net, 1, 3, 4)
	od.AddPath(upper)
	od.AddPath(lower)
	upper.SetFlow(100)

	if got := net.MaxChoiceSetSize(); got != 1 {
		t.Errorf("MaxChoiceSetSize() = %v; want 1 (only one used path)", got)
	}
	if got := net.CalculateAvgChoiceSetSize(); got != 1 {
		t.Errorf("CalculateAvgChoiceSetSize() = %v; want 1", got)
	}
	if got := net.CalculateTotalDemand(); got != 100 {
		t.Errorf("CalculateTotalDemand() = %v; want 100", got)
	}
	if got := net.NumOD(); got != 1 {
		t.Errorf("NumOD() = %v; want 1", got)
	}
}

func TestPathSizeFactors(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	upper := pathThrough(t, net, 1, 2, 4)
	lower := pathThrough(t, net, 1, 3, 4)
	od.AddPath(upper)
	od.AddPath(lower)
	net.UpdateEdgeCosts(time_cost{})
	net.UpdatePathCosts()

	// disjoint paths keep PS = 1 with exponent 0
	od.UpdatePathSizeFactors(0)
	if math.Abs(upper.PS-1) > 1e-12 || math.Abs(lower.PS-1) > 1e-12 {
		t.Errorf("PS = (%v,%v) on disjoint paths; want 1", upper.PS, lower.PS)
	}

	// a duplicate of the upper path halves both factors
	duplicate := pathThrough(t, net, 1, 2, 4)
	od.RestrictedChoiceSet.Add(duplicate)
	duplicate.UpdateCost()
	od.UpdatePathSizeFactors(0)
	if math.Abs(upper.PS-0.5) > 1e-12 {
		t.Errorf("PS = %v on fully overlapped path; want 0.5", upper.PS)
	}
}

func TestResetNetwork(t *testing.T) {
	net := buildDiamond(t, 100)
	od := net.GetOD(1, 4)
	upper := pathThrough(t, net, 1, 2, 4)
	od.AddPath(upper)
	upper.SetFlow(100)
	net.LoadNetwork()

	net.ResetNetwork()
	edge, _ := net.GetEdge(1, 2)
	if edge.Flow() != 0 {
		t.Errorf("edge flow after reset = %v; want 0", edge.Flow())
	}
	if od.RestrictedChoiceSet.Length() != 0 {
		t.Errorf("choice set size after reset = %v; want 0", od.RestrictedChoiceSet.Length())
	}
}
