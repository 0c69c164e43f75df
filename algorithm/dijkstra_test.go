package algorithm

import (
	"errors"
	"math"
	"testing"

	"github.com/ttpr0/go-assignment/network"
)

type time_cost struct{}

func (time_cost) EdgeCost(time float64, length float64) float64 {
	return time
}

func addEdge(net *network.Network, id int32, tail int32, head int32, freeFlowTime float64) {
	net.AddEdge(&network.Edge{
		ID: id, Tail: tail, Head: head,
		Capacity: 100, FreeFlowTime: freeFlowTime, Length: 1, B: 0.15, Power: 4,
	})
}

// 1 -> 2 -> 4 (cost 10), 1 -> 3 -> 4 (cost 15), 5 isolated
func buildTestNetwork(t *testing.T) *network.Network {
	t.Helper()
	net := network.New("test")
	for i := 1; i <= 5; i++ {
		net.AddNode(network.NewNode(int32(i), 0, 0))
	}
	addEdge(net, 1, 1, 2, 5)
	addEdge(net, 2, 2, 4, 5)
	addEdge(net, 3, 1, 3, 7.5)
	addEdge(net, 4, 3, 4, 7.5)
	net.AddOD(network.NewOD(1, 4, 100))
	net.UpdateEdgeCosts(time_cost{})
	return net
}

func TestDijkstraShortestPath(t *testing.T) {
	net := buildTestNetwork(t)
	solver := NewDijkstraSolver(net)
	solver.ShortestPathsFrom(1)

	if got := solver.Dist(4); math.Abs(got-10) > 1e-12 {
		t.Errorf("Dist(4) = %v; want 10", got)
	}

	od := net.GetOD(1, 4)
	path, err := solver.ShortestPath(od)
	if err != nil {
		t.Fatal(err)
	}
	seq := path.NodeSequence()
	want := []int32{1, 2, 4}
	if seq.Length() != len(want) {
		t.Fatalf("NodeSequence() = %v; want %v", seq, want)
	}
	for i, id := range want {
		if seq[i] != id {
			t.Fatalf("NodeSequence() = %v; want %v", seq, want)
		}
	}
}

// dist(D) is a lower bound on the cost of any O-D path
func TestDijkstraOptimality(t *testing.T) {
	net := buildTestNetwork(t)
	solver := NewDijkstraSolver(net)
	solver.ShortestPathsFrom(1)

	alternatives := [][]int32{{1, 2, 4}, {1, 3, 4}}
	for _, nodes := range alternatives {
		cost := 0.0
		for i := 0; i < len(nodes)-1; i++ {
			edge, err := net.GetEdge(nodes[i], nodes[i+1])
			if err != nil {
				t.Fatal(err)
			}
			cost += edge.GenCost()
		}
		if solver.Dist(4) > cost+1e-12 {
			t.Errorf("Dist(4) = %v above path cost %v", solver.Dist(4), cost)
		}
	}
}

func TestDijkstraRespondsToCosts(t *testing.T) {
	net := buildTestNetwork(t)
	// congest the upper route so the lower one wins
	edge, _ := net.GetEdge(1, 2)
	edge.SetFlow(400)
	net.UpdateEdgeCosts(time_cost{})

	solver := NewDijkstraSolver(net)
	solver.ShortestPathsFrom(1)
	path, err := solver.ShortestPath(net.GetOD(1, 4))
	if err != nil {
		t.Fatal(err)
	}
	if seq := path.NodeSequence(); seq[1] != 3 {
		t.Errorf("shortest path runs over %v; want 3 after congestion", seq[1])
	}
}

func TestDijkstraUnreachable(t *testing.T) {
	net := buildTestNetwork(t)
	net.AddOD(network.NewOD(1, 5, 10))

	solver := NewDijkstraSolver(net)
	solver.ShortestPathsFrom(1)
	if _, err := solver.ShortestPath(net.GetOD(1, 5)); !errors.Is(err, ErrNoPath) {
		t.Errorf("ShortestPath to isolated node error = %v; want ErrNoPath", err)
	}
	// reachable destinations are still solved
	if _, err := solver.ShortestPath(net.GetOD(1, 4)); err != nil {
		t.Errorf("ShortestPath(1,4) error = %v", err)
	}
}

func TestDijkstraWrongOrigin(t *testing.T) {
	net := buildTestNetwork(t)
	net.AddOD(network.NewOD(2, 4, 10))
	solver := NewDijkstraSolver(net)
	solver.ShortestPathsFrom(2)
	if _, err := solver.ShortestPath(net.GetOD(1, 4)); err == nil {
		t.Errorf("ShortestPath accepted OD of a different origin")
	}
}
