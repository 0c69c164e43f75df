package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ttpr0/go-assignment/choice"
	"github.com/ttpr0/go-assignment/network"
	. "github.com/ttpr0/go-assignment/util"
)

func mustRefCost(t *testing.T, tau float64) choice.RefCost {
	t.Helper()
	ref, err := choice.NewRefCostTauMin(tau)
	require.NoError(t, err)
	return ref
}

func mustRUM(t *testing.T, typ choice.RUMType, theta float64, omega choice.RefCost) *choice.RUM {
	t.Helper()
	rum, err := choice.NewRUM(typ, theta, 1, 0, 1, omega)
	require.NoError(t, err)
	return rum
}

func addEdge(net *network.Network, id int32, tail int32, head int32, freeFlowTime float64, capacity float64) {
	net.AddEdge(&network.Edge{
		ID: id, Tail: tail, Head: head,
		Capacity: capacity, FreeFlowTime: freeFlowTime, Length: 1, B: 0.15, Power: 4,
	})
}

// Two parallel routes 1 -> 2 -> 4 and 1 -> 3 -> 4 with free-flow times
// 10 and 15 and capacity 100 per route.
func buildParallel(demand float64) *network.Network {
	net := network.New("parallel")
	for i := 1; i <= 4; i++ {
		net.AddNode(network.NewNode(int32(i), 0, 0))
	}
	addEdge(net, 1, 1, 2, 5, 100)
	addEdge(net, 2, 2, 4, 5, 100)
	addEdge(net, 3, 1, 3, 7.5, 100)
	addEdge(net, 4, 3, 4, 7.5, 100)
	net.AddOD(network.NewOD(1, 4, demand))
	return net
}

// Three serial links 1 -> 2 -> 3 -> 4 with a single OD (1,4).
func buildSerial(demand float64) *network.Network {
	net := network.New("serial")
	for i := 1; i <= 4; i++ {
		net.AddNode(network.NewNode(int32(i), 0, 0))
	}
	addEdge(net, 1, 1, 2, 5, 100)
	addEdge(net, 2, 2, 3, 5, 100)
	addEdge(net, 3, 3, 4, 5, 100)
	net.AddOD(network.NewOD(1, 4, demand))
	return net
}

func flowOnRoute(t *testing.T, net *network.Network, tail int32, head int32) float64 {
	t.Helper()
	edge, err := net.GetEdge(tail, head)
	require.NoError(t, err)
	return edge.Flow()
}

// Seeds the restricted choice set of the parallel network with both
// routes; column generation alone only ever admits the current
// shortest path.
func seedBothRoutes(t *testing.T, net *network.Network) {
	t.Helper()
	od := net.GetOD(1, 4)
	for _, mid := range []int32{2, 3} {
		first, err := net.GetEdge(1, mid)
		require.NoError(t, err)
		second, err := net.GetEdge(mid, 4)
		require.NoError(t, err)
		edges := NewList[*network.Edge](2)
		edges.Add(first)
		edges.Add(second)
		od.AddPath(network.NewPath(edges, od))
	}
}

func TestSolveParallelMNL(t *testing.T) {
	net := buildParallel(100)
	seedBothRoutes(t, net)
	// wide thresholds, no truncation
	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 10))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 10), mustRefCost(t, 10), 1e-4)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0
	rsuet.OuterMax = 50

	conv, err := rsuet.Solve(net)
	require.NoError(t, err)

	upper := flowOnRoute(t, net, 1, 2)
	lower := flowOnRoute(t, net, 1, 3)
	assert.Greater(t, upper, 0.0)
	assert.Greater(t, lower, 0.0)
	// the cheaper route carries the majority
	assert.Greater(t, upper, lower)
	assert.InDelta(t, 100.0, upper+lower, 1e-7)
	assert.Less(t, conv.LastGap(), 1e-4)
	assert.Nil(t, net.TestDemandIntegrity(1e-9))
}

func TestSolveSerialSinglePath(t *testing.T) {
	net := buildSerial(50)
	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 1.3))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 1e-4)
	require.NoError(t, err)

	conv, err := rsuet.Solve(net)
	require.NoError(t, err)

	// exactly one outer iteration with a zero gap
	assert.Equal(t, 1, conv.Length())
	assert.Zero(t, conv.LastGap())
	for _, edge := range net.Edges() {
		assert.InDelta(t, 50.0, edge.Flow(), 1e-9)
	}
}

func TestSolveTMNLTruncation(t *testing.T) {
	net := buildParallel(100)
	seedBothRoutes(t, net)
	// omega barely above the minimum cost cuts the longer route
	omega := mustRefCost(t, 1.01)
	rum := mustRUM(t, choice.TMNL, 0.5, omega)
	rsuet, err := NewRSUET(rum, mustRefCost(t, 10), omega, 1e-4)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0

	_, err = rsuet.Solve(net)
	require.NoError(t, err)

	upper := flowOnRoute(t, net, 1, 2)
	lower := flowOnRoute(t, net, 1, 3)
	assert.InDelta(t, 100.0, upper, 1e-9)
	assert.Zero(t, lower)
	assert.Nil(t, net.TestDemandIntegrity(1e-9))
}

func TestPruneRedistributesFlow(t *testing.T) {
	// four parallel routes, generous capacity keeps costs fixed
	net := network.New("prune")
	for i := 1; i <= 6; i++ {
		net.AddNode(network.NewNode(int32(i), 0, 0))
	}
	od := network.NewOD(1, 6, 100)
	times := []float64{10, 11, 12, 20}
	for i, time := range times {
		mid := int32(i + 2)
		addEdge(net, int32(2*i+1), 1, mid, time/2, 1e6)
		addEdge(net, int32(2*i+2), mid, 6, time/2, 1e6)
	}
	net.AddOD(od)

	rum := mustRUM(t, choice.MNL, 0.1, mustRefCost(t, 1.3))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 1e-4)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0

	net.UpdateEdgeCosts(rum)
	paths := NewList[*network.Path](4)
	for i := range times {
		mid := int32(i + 2)
		first, err := net.GetEdge(1, mid)
		require.NoError(t, err)
		second, err := net.GetEdge(mid, 6)
		require.NoError(t, err)
		edges := NewList[*network.Edge](2)
		edges.Add(first)
		edges.Add(second)
		path := network.NewPath(edges, od)
		od.AddPath(path)
		require.NoError(t, path.SetFlow(25))
		paths.Add(path)
	}
	net.UpdatePathCosts()

	require.NoError(t, rsuet.pruneAboveThreshold(net))

	// threshold 1.3 * 10 removes the cost-20 route
	assert.Equal(t, 3, od.RestrictedChoiceSet.Length())
	for _, path := range od.RestrictedChoiceSet {
		assert.LessOrEqual(t, path.GenCost, 13.0)
		assert.Greater(t, path.Flow(), 25.0)
	}
	assert.Nil(t, net.TestDemandIntegrity(1e-9))
}

func TestPruneRestoresCheapestPath(t *testing.T) {
	net := buildParallel(100)
	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 10))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 10), mustRefCost(t, 10), 1e-4)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0

	// lower the minimum cost so every path breaches the threshold
	od := net.GetOD(1, 4)
	net.UpdateEdgeCosts(rum)
	upper, err := net.GetEdge(1, 2)
	require.NoError(t, err)
	second, err := net.GetEdge(2, 4)
	require.NoError(t, err)
	edges := NewList[*network.Edge](2)
	edges.Add(upper)
	edges.Add(second)
	path := network.NewPath(edges, od)
	od.AddPath(path)
	require.NoError(t, path.SetFlow(100))
	net.UpdatePathCosts()
	od.SetMinimumCost(0.5) // force the threshold below every path cost

	require.NoError(t, rsuet.pruneAboveThreshold(net))
	assert.Equal(t, 1, od.RestrictedChoiceSet.Length())
	assert.InDelta(t, 100.0, path.Flow(), 1e-9)
}

func TestSolveDisconnectedDemand(t *testing.T) {
	net := buildSerial(50)
	net.AddNode(network.NewNode(9, 0, 0))
	net.AddOD(network.NewOD(1, 9, 10))

	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 1.3))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 1e-4)
	require.NoError(t, err)

	_, err = rsuet.Solve(net)
	assert.ErrorIs(t, err, ErrDisconnectedDemand)
}

func TestSolveNonConvergence(t *testing.T) {
	net := buildParallel(100)
	seedBothRoutes(t, net)
	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 10))
	rsuet, err := NewRSUET(rum, mustRefCost(t, 10), mustRefCost(t, 10), 1e-12)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0
	rsuet.OuterMax = 1
	rsuet.InnerMax = 1

	conv, err := rsuet.Solve(net)
	assert.ErrorIs(t, err, ErrNonConvergence)
	// the pattern of the aborted solve is still returned
	require.NotNil(t, conv)
	assert.Equal(t, 1, conv.Length())
	assert.Nil(t, net.TestDemandIntegrity(1e-9))
}

func TestSolveInvalidInput(t *testing.T) {
	rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 1.3))

	_, err := NewRSUET(nil, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 1e-4)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewRSUET(rum, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	rsuet, err := NewRSUET(rum, mustRefCost(t, 1.3), mustRefCost(t, 1.3), 1e-4)
	require.NoError(t, err)
	rsuet.MaximumCostRatio = 0.5
	_, err = rsuet.Solve(buildSerial(50))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDoublingDemandRaisesTimes(t *testing.T) {
	solveWith := func(demand float64) *network.Network {
		net := buildParallel(demand)
		rum := mustRUM(t, choice.MNL, 0.5, mustRefCost(t, 10))
		rsuet, err := NewRSUET(rum, mustRefCost(t, 10), mustRefCost(t, 10), 1e-5)
		require.NoError(t, err)
		rsuet.LocalMaximumCostRatio = 0
		_, err = rsuet.Solve(net)
		require.NoError(t, err)
		return net
	}

	base := solveWith(100)
	double := solveWith(200)
	for i, edge := range base.Edges() {
		assert.GreaterOrEqual(t, double.Edges()[i].Time()+1e-9, edge.Time(),
			"edge %v time decreased after doubling demand", i+1)
	}
}

func TestConvergencePattern(t *testing.T) {
	conv := NewConvergencePattern()
	assert.True(t, math.IsInf(conv.LastGap(), 1))
	conv.Add(1, 12, 0.5, 3, 1.5)
	conv.Add(2, 8, 0.01, 3, 1.5)
	assert.Equal(t, 2, conv.Length())
	assert.Equal(t, 0.01, conv.LastGap())
	rows := conv.Rows()
	assert.Equal(t, 1, rows[0].Outer)
	assert.Equal(t, 12, rows[0].Inner)
}

func TestUnrestrictedInnerGatesByOmega(t *testing.T) {
	net := buildParallel(100)
	seedBothRoutes(t, net)
	omega := mustRefCost(t, 1.01)
	// plain MNL, truncation comes from the unrestricted master alone
	rum := mustRUM(t, choice.MNL, 0.5, omega)
	rsuet, err := NewRSUET(rum, mustRefCost(t, 10), omega, 1e-4)
	require.NoError(t, err)
	rsuet.LocalMaximumCostRatio = 0
	rsuet.UnrestrictedInner = true

	_, err = rsuet.Solve(net)
	require.NoError(t, err)

	// the route above omega receives no probability mass
	lower := flowOnRoute(t, net, 1, 3)
	assert.Less(t, lower, 1.0)
	assert.Nil(t, net.TestDemandIntegrity(1e-9))
}
