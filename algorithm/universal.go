package algorithm

import (
	"github.com/ttpr0/go-assignment/network"
	. "github.com/ttpr0/go-assignment/util"
	"golang.org/x/exp/slog"
)

//**********************************************************
// universal choice set enumeration
//**********************************************************

type enum_frame struct {
	node          int32
	neighbour_idx int
	cost          float64
}

// Enumerates all acyclic paths per OD into OD.R, pruned to paths whose
// running cost stays within twice the current shortest path cost.
// Complexity is non-polynomial; intended for diagnostics on small
// networks only. Uses an explicit stack and a single visited bitset
// that is flipped on entry and restored on backtrack, so no allocation
// happens per recursion step.
func GenerateUniversalChoiceSets(net *network.Network, solver *DijkstraSolver) error {
	slog.Info("Generating universal choice sets")
	lastOrigin := int32(-1)
	var firstErr error
	net.ForEachOD(func(od *network.OD) {
		if firstErr != nil {
			return
		}
		if od.O != lastOrigin {
			solver.ShortestPathsFrom(od.O)
		}
		lastOrigin = od.O
		shortest, err := solver.ShortestPath(od)
		if err != nil {
			firstErr = err
			return
		}
		tolerance := 2 * shortest.UpdateCost()
		od.R = NewList[*network.Path](16)
		enumerate(net, od, tolerance)
	})
	return firstErr
}

func enumerate(net *network.Network, od *network.OD, tolerance float64) {
	size := int(net.MaxNodeID()) + 1
	visited := NewArray[bool](size)
	visited[od.O] = true

	chain := NewList[int32](16)
	chain.Add(od.O)
	stack := NewList[enum_frame](16)
	stack.Add(enum_frame{node: od.O})

	for stack.Length() > 0 {
		frame := &stack[stack.Length()-1]
		neighbours := net.GetNode(frame.node).Neighbours
		if frame.neighbour_idx >= neighbours.Length() {
			// exhausted, backtrack
			visited[frame.node] = false
			stack.Remove(stack.Length() - 1)
			chain.Remove(chain.Length() - 1)
			continue
		}
		v := neighbours[frame.neighbour_idx]
		frame.neighbour_idx++

		if v == od.D {
			last, err := net.GetEdge(frame.node, v)
			if err != nil {
				continue
			}
			if frame.cost+last.GenCost() > tolerance {
				continue
			}
			edges := NewList[*network.Edge](chain.Length())
			for i := 0; i < chain.Length()-1; i++ {
				edge, err := net.GetEdge(chain[i], chain[i+1])
				if err != nil {
					return
				}
				edges.Add(edge)
			}
			edges.Add(last)
			od.R.Add(network.NewPath(edges, od))
			continue
		}
		if visited[v] {
			continue
		}
		edge, err := net.GetEdge(frame.node, v)
		if err != nil {
			continue
		}
		cost := frame.cost + edge.GenCost()
		if cost > tolerance {
			continue
		}
		visited[v] = true
		chain.Add(v)
		stack.Add(enum_frame{node: v, cost: cost})
	}
}
