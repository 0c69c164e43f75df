package network

import (
	"errors"
	"fmt"
	"math"
	"strings"

	. "github.com/ttpr0/go-assignment/util"
)

var ErrInvalidFlow = errors.New("flow must be a finite number")

//**********************************************************
// path
//**********************************************************

// Ordered chain of edges between the origin and destination of an OD.
// Paths are owned by their OD; edges are referenced, not owned.
type Path struct {
	edges List[*Edge]
	od    *OD

	flow    float64
	auxFlow float64

	Length  float64
	GenCost float64

	// enumerator of the probability expression from the last
	// master-problem evaluation
	Enumerator float64
	// choice probability conditional on the restricted choice set
	P float64
	// flow / enumerator, used by the relative used gap
	TransformedCost float64
	// overlap correction for path-size logit
	PS float64

	MarkedForRemoval bool
}

func NewPath(edges List[*Edge], od *OD) *Path {
	length := 0.0
	for _, edge := range edges {
		length += edge.Length
	}
	return &Path{
		edges:  edges,
		od:     od,
		Length: length,
		PS:     1,
	}
}

func (self *Path) Edges() List[*Edge] {
	return self.edges
}

func (self *Path) OD() *OD {
	return self.od
}

func (self *Path) O() int32 {
	return self.od.O
}

func (self *Path) D() int32 {
	return self.od.D
}

func (self *Path) Flow() float64 {
	return self.flow
}

// Rejects NaN and Inf; flow corruption would otherwise spread through
// the whole network on the next loading.
func (self *Path) SetFlow(flow float64) error {
	if math.IsNaN(flow) || math.IsInf(flow, 0) {
		return fmt.Errorf("%w: %v on path %v", ErrInvalidFlow, flow, self)
	}
	self.flow = flow
	return nil
}

func (self *Path) AuxFlow() float64 {
	return self.auxFlow
}

func (self *Path) SetAuxFlow(auxFlow float64) {
	self.auxFlow = auxFlow
}

// Adds the path flow onto its edges, on top of what is already there.
func (self *Path) Load() {
	for _, edge := range self.edges {
		edge.AddFlow(self.flow)
	}
}

// Sets GenCost to the sum of the generalized costs of the edges and
// returns it.
func (self *Path) UpdateCost() float64 {
	genCost := 0.0
	for _, edge := range self.edges {
		genCost += edge.GenCost()
	}
	self.GenCost = genCost
	return genCost
}

func (self *Path) ContainsEdge(id int32) bool {
	for _, edge := range self.edges {
		if edge.ID == id {
			return true
		}
	}
	return false
}

// Two paths are equal iff their node sequences are identical.
func (self *Path) Equals(other *Path) bool {
	size := self.edges.Length()
	if size != other.edges.Length() {
		return false
	}
	for i := 0; i < size; i++ {
		if self.edges[i].Tail != other.edges[i].Tail {
			return false
		}
	}
	return self.edges[size-1].Head == other.edges[size-1].Head
}

// Node ids along the path from origin to destination.
func (self *Path) NodeSequence() List[int32] {
	seq := NewList[int32](self.edges.Length() + 1)
	for _, edge := range self.edges {
		seq.Add(edge.Tail)
	}
	seq.Add(self.edges[self.edges.Length()-1].Head)
	return seq
}

func (self *Path) String() string {
	tokens := NewList[string](self.edges.Length() + 1)
	for _, id := range self.NodeSequence() {
		tokens.Add(fmt.Sprint(id))
	}
	return fmt.Sprintf("Path: %v. genCost: %v. Flow: %v", strings.Join(tokens, "->"), self.GenCost, self.flow)
}
