package network

import (
	"errors"
	"fmt"
	"math"

	. "github.com/ttpr0/go-assignment/util"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoSuchEdge = errors.New("no such edge")

//**********************************************************
// network
//**********************************************************

// Directed road network with OD demand. Nodes, edges and ODs are owned
// by the network; paths are owned by their OD.
type Network struct {
	name string

	nodes         Dict[int32, *Node]
	edges         List[*Edge]
	edgesNodePair Dict[int32, Dict[int32, *Edge]]
	ods           Dict[int32, Dict[int32, *OD]]
	numOD         int

	// flows below this value are not considered used in outputs
	MinimumFlowToBeConsideredUsed float64
}

func New(name string) *Network {
	return &Network{
		name:          name,
		nodes:         NewDict[int32, *Node](100),
		edges:         NewList[*Edge](100),
		edgesNodePair: NewDict[int32, Dict[int32, *Edge]](100),
		ods:           NewDict[int32, Dict[int32, *OD]](100),
	}
}

func (self *Network) Name() string {
	return self.name
}

func (self *Network) AddNode(node *Node) {
	self.nodes[node.ID] = node
}

// Registers the edge and the tail-to-head adjacency. The edge id is
// expected to be unique; a second edge between the same node pair
// replaces the first in the (tail,head) index.
func (self *Network) AddEdge(edge *Edge) {
	self.edges.Add(edge)
	if !self.edgesNodePair.ContainsKey(edge.Tail) {
		self.edgesNodePair[edge.Tail] = NewDict[int32, *Edge](4)
	}
	self.edgesNodePair[edge.Tail][edge.Head] = edge
	self.nodes[edge.Tail].Neighbours.Add(edge.Head)
}

func (self *Network) AddOD(od *OD) {
	if !self.ods.ContainsKey(od.O) {
		self.ods[od.O] = NewDict[int32, *OD](4)
	}
	if !self.ods[od.O].ContainsKey(od.D) {
		self.numOD++
	}
	self.ods[od.O][od.D] = od
	self.nodes[od.O].HasDemandFrom = true
	self.nodes[od.D].HasDemandTo = true
}

func (self *Network) GetNode(id int32) *Node {
	return self.nodes[id]
}

// Edge lookup by tail and head node in O(1).
func (self *Network) GetEdge(tail int32, head int32) (*Edge, error) {
	if heads, ok := self.edgesNodePair[tail]; ok {
		if edge, ok := heads[head]; ok {
			return edge, nil
		}
	}
	return nil, fmt.Errorf("%w: (%v,%v)", ErrNoSuchEdge, tail, head)
}

func (self *Network) GetEdgeByID(id int32) *Edge {
	return self.edges[id-1]
}

// OD lookup in O(1); nil means zero demand.
func (self *Network) GetOD(o int32, d int32) *OD {
	if dests, ok := self.ods[o]; ok {
		return dests[d]
	}
	return nil
}

func (self *Network) NodeCount() int {
	return self.nodes.Length()
}

func (self *Network) EdgeCount() int {
	return self.edges.Length()
}

func (self *Network) NumOD() int {
	return self.numOD
}

func (self *Network) Edges() List[*Edge] {
	return self.edges
}

// Largest node id, used to size per-node scratch arrays.
func (self *Network) MaxNodeID() int32 {
	max := int32(0)
	for id := range self.nodes {
		if id > max {
			max = id
		}
	}
	return max
}

// Destinations with positive demand from the given origin, ascending.
func (self *Network) DestinationsFrom(origin int32) List[int32] {
	dests, ok := self.ods[origin]
	if !ok {
		return NewList[int32](0)
	}
	ids := List[int32](maps.Keys(dests))
	slices.Sort(ids)
	return ids
}

// Iterates all ODs grouped by origin in ascending id order. The
// deterministic grouping lets callers run one dijkstra per origin.
func (self *Network) ForEachOD(handle func(od *OD)) {
	origins := maps.Keys(self.ods)
	slices.Sort(origins)
	for _, o := range origins {
		dests := maps.Keys(self.ods[o])
		slices.Sort(dests)
		for _, d := range dests {
			handle(self.ods[o][d])
		}
	}
}

//**********************************************************
// network loading and cost updates
//**********************************************************

// Rewrites every edge flow from the flows of the paths in the
// restricted choice sets.
func (self *Network) LoadNetwork() {
	for _, edge := range self.edges {
		edge.SetFlow(0)
	}
	self.ForEachOD(func(od *OD) {
		for _, path := range od.RestrictedChoiceSet {
			path.Load()
		}
	})
}

// Recomputes travel time and generalized cost on every edge from the
// current flows.
func (self *Network) UpdateEdgeCosts(costfn ICostFunction) {
	for _, edge := range self.edges {
		edge.UpdateCost(costfn)
	}
}

// Refreshes path costs from edge costs and the minimum cost per OD.
func (self *Network) UpdatePathCosts() {
	self.ForEachOD(func(od *OD) {
		minCost := math.Inf(1)
		for _, path := range od.RestrictedChoiceSet {
			cost := path.UpdateCost()
			if cost < minCost {
				minCost = cost
			}
		}
		od.SetMinimumCost(minCost)
	})
}

// Refreshes the path-size overlap factors on every restricted choice
// set.
func (self *Network) UpdatePathSizeFactors(gamma float64) {
	self.ForEachOD(func(od *OD) {
		od.UpdatePathSizeFactors(gamma)
	})
}

// Refreshes overlap factors only on ODs that received a new path
// during the last column generation.
func (self *Network) UpdatePathSizeFactorsWherePathsWereAdded(gamma float64) {
	self.ForEachOD(func(od *OD) {
		if od.PathWasAddedDuringColumnGeneration {
			od.UpdatePathSizeFactors(gamma)
		}
	})
}

// Zeroes all edge flows and empties every restricted choice set.
func (self *Network) ResetNetwork() {
	for _, edge := range self.edges {
		edge.SetFlow(0)
	}
	self.ForEachOD(func(od *OD) {
		od.RestrictedChoiceSet = NewList[*Path](4)
	})
}

//**********************************************************
// statistics
//**********************************************************

// Average number of used paths per OD, every OD weighted equally.
func (self *Network) CalculateAvgChoiceSetSize() float64 {
	sizes := NewList[float64](self.numOD)
	self.ForEachOD(func(od *OD) {
		sizes.Add(float64(od.UsedPathCount()))
	})
	if sizes.Length() == 0 {
		return 0
	}
	return stat.Mean(sizes, nil)
}

func (self *Network) MaxChoiceSetSize() int {
	max := 0
	self.ForEachOD(func(od *OD) {
		if count := od.UsedPathCount(); count > max {
			max = count
		}
	})
	return max
}

func (self *Network) MinChoiceSetSize() int {
	min := math.MaxInt
	self.ForEachOD(func(od *OD) {
		if count := od.UsedPathCount(); count < min {
			min = count
		}
	})
	if min == math.MaxInt {
		return 0
	}
	return min
}

func (self *Network) CalculateTotalDemand() float64 {
	demands := NewList[float64](self.numOD)
	self.ForEachOD(func(od *OD) {
		demands.Add(od.Demand)
	})
	return floats.Sum(demands)
}

// First OD whose restricted-set flow sum deviates from the demand by
// more than the relative tolerance, or nil if demand is conserved
// everywhere.
func (self *Network) TestDemandIntegrity(tolerance float64) *OD {
	var violated *OD
	self.ForEachOD(func(od *OD) {
		if violated != nil {
			return
		}
		sum := 0.0
		for _, path := range od.RestrictedChoiceSet {
			sum += path.Flow()
		}
		if math.Abs(od.Demand-sum)/od.Demand > tolerance {
			violated = od
		}
	})
	return violated
}

//**********************************************************
// universal choice sets
//**********************************************************

// Sorts every universal choice set by generalized cost.
func (self *Network) SortUniversalChoiceSets() {
	self.ForEachOD(func(od *OD) {
		slices.SortFunc(od.R, func(a *Path, b *Path) int {
			switch {
			case a.GenCost < b.GenCost:
				return -1
			case a.GenCost > b.GenCost:
				return 1
			}
			return 0
		})
	})
}

// Replaces the restricted choice sets with the universal sets cut at
// maximumCostRatio times the minimum cost. A ratio of -1 promotes the
// complete universal set.
func (self *Network) CutUniversalChoiceSets(maximumCostRatio float64) {
	self.ForEachOD(func(od *OD) {
		for _, path := range od.R {
			path.UpdateCost()
		}
	})
	if maximumCostRatio == -1 {
		self.ForEachOD(func(od *OD) {
			od.RestrictedChoiceSet = od.R
			od.R = nil
		})
		return
	}
	self.SortUniversalChoiceSets()
	self.ForEachOD(func(od *OD) {
		if od.R.Length() == 0 {
			return
		}
		od.SetMinimumCost(od.R[0].GenCost)
		maximumCost := maximumCostRatio * od.MinimumCost()
		od.RestrictedChoiceSet = NewList[*Path](od.R.Length())
		for _, path := range od.R {
			if path.GenCost > maximumCost {
				break
			}
			od.RestrictedChoiceSet.Add(path)
		}
	})
}
