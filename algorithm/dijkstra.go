package algorithm

import (
	"errors"
	"fmt"
	"math"

	"github.com/ttpr0/go-assignment/network"
	. "github.com/ttpr0/go-assignment/util"
)

var ErrNoPath = errors.New("destination unreachable")

type flag_dijkstra struct {
	dist    float64
	prev    int32
	visited bool
}

//**********************************************************
// dijkstra with early termination
//**********************************************************

// Single-origin shortest path search over edge generalized costs.
// Search state lives in a flags array indexed by node id, so nodes are
// never mutated and solvers for distinct origins could run
// independently. The indexed heap keeps relaxations at O(log n).
// Terminates as soon as every destination with demand from the origin
// is settled, not when the heap runs dry.
type DijkstraSolver struct {
	net    *network.Network
	heap   IndexedQueue[float64]
	flags  Array[flag_dijkstra]
	origin int32
}

func NewDijkstraSolver(net *network.Network) *DijkstraSolver {
	size := int(net.MaxNodeID()) + 1
	return &DijkstraSolver{
		net:    net,
		heap:   NewIndexedQueue[float64](size),
		flags:  NewArray[flag_dijkstra](size),
		origin: -1,
	}
}

// Computes shortest paths from origin to every destination with
// positive demand from it. Requires non-negative edge costs, which the
// BPR function guarantees.
func (self *DijkstraSolver) ShortestPathsFrom(origin int32) {
	for i := range self.flags {
		self.flags[i] = flag_dijkstra{dist: math.Inf(1), prev: -1}
	}
	self.flags[origin].dist = 0
	self.flags[origin].visited = true
	self.heap.Reset()
	self.heap.Enqueue(origin, 0)
	self.origin = origin

	pending := NewDict[int32, bool](16)
	for _, d := range self.net.DestinationsFrom(origin) {
		pending[d] = true
	}

	for pending.Length() > 0 {
		u, ok := self.heap.Dequeue()
		if !ok {
			// remaining destinations are unreachable
			break
		}
		self.flags[u].visited = true
		pending.Delete(u)

		node := self.net.GetNode(u)
		for _, v := range node.Neighbours {
			if self.flags[v].visited {
				continue
			}
			edge, err := self.net.GetEdge(u, v)
			if err != nil {
				continue
			}
			alt := self.flags[u].dist + edge.GenCost()
			if alt < self.flags[v].dist {
				self.flags[v].dist = alt
				self.flags[v].prev = u
				self.heap.Enqueue(v, alt)
			}
		}
	}
}

// Distance of the last search, +Inf for unreached nodes.
func (self *DijkstraSolver) Dist(node int32) float64 {
	return self.flags[node].dist
}

// Reconstructs the shortest path of the OD from the predecessors of
// the last search. Only valid while the solver is positioned on the
// origin of the OD.
func (self *DijkstraSolver) ShortestPath(od *network.OD) (*network.Path, error) {
	if self.origin != od.O {
		return nil, fmt.Errorf("solver is positioned on origin %v, not %v", self.origin, od.O)
	}
	if math.IsInf(self.flags[od.D].dist, 1) {
		return nil, fmt.Errorf("%w: no path from %v to %v", ErrNoPath, od.O, od.D)
	}

	inverse := NewList[int32](16)
	u := od.D
	for u != od.O {
		inverse.Add(u)
		u = self.flags[u].prev
	}
	inverse.Add(od.O)

	edges := NewList[*network.Edge](inverse.Length() - 1)
	for i := inverse.Length() - 1; i > 0; i-- {
		edge, err := self.net.GetEdge(inverse[i], inverse[i-1])
		if err != nil {
			return nil, err
		}
		edges.Add(edge)
	}
	return network.NewPath(edges, od), nil
}
