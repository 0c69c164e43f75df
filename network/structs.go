package network

import (
	"math"

	. "github.com/ttpr0/go-assignment/util"
)

//**********************************************************
// nodes and edges
//**********************************************************

type Coord struct {
	X float64
	Y float64
}

type Node struct {
	ID            int32
	Loc           Coord
	Neighbours    List[int32]
	HasDemandFrom bool
	HasDemandTo   bool
}

func NewNode(id int32, x float64, y float64) *Node {
	return &Node{
		ID:         id,
		Loc:        Coord{x, y},
		Neighbours: NewList[int32](4),
	}
}

// Directed link with BPR volume-delay parameters.
type Edge struct {
	ID           int32
	Tail         int32
	Head         int32
	Capacity     float64
	FreeFlowTime float64
	Length       float64
	B            float64
	Power        float64

	flow    float64
	time    float64
	genCost float64
}

// Travel time and generalized cost as of the last UpdateCost call.
func (self *Edge) Time() float64 {
	return self.time
}

func (self *Edge) GenCost() float64 {
	return self.genCost
}

func (self *Edge) Flow() float64 {
	return self.flow
}

func (self *Edge) SetFlow(flow float64) {
	self.flow = flow
}

func (self *Edge) AddFlow(flow float64) {
	self.flow += flow
}

// Recomputes the BPR travel time from the current flow and derives the
// generalized cost through the cost function:
//
//	time = freeFlowTime * (1 + b * (flow/capacity)^power)
func (self *Edge) UpdateCost(costfn ICostFunction) {
	self.time = self.FreeFlowTime * (1 + self.B*math.Pow(self.flow/self.Capacity, self.Power))
	self.genCost = costfn.EdgeCost(self.time, self.Length)
}

// Maps link level-of-service onto a generalized cost. Implemented by
// the random utility models.
type ICostFunction interface {
	EdgeCost(time float64, length float64) float64
}
