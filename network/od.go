package network

import (
	"math"

	. "github.com/ttpr0/go-assignment/util"
)

//**********************************************************
// origin-destination relation
//**********************************************************

// Origin-destination relation with positive demand. Flows live on the
// paths of the restricted choice set; R is the optional universal
// choice set and only populated by explicit enumeration.
type OD struct {
	O      int32
	D      int32
	Demand float64

	R                   List[*Path]
	RestrictedChoiceSet List[*Path]

	minimumCost            float64
	minimumTransformedCost float64

	PathWasAddedDuringColumnGeneration bool
}

func NewOD(o int32, d int32, demand float64) *OD {
	return &OD{
		O:                   o,
		D:                   d,
		Demand:              demand,
		RestrictedChoiceSet: NewList[*Path](4),
		minimumCost:         math.Inf(1),
	}
}

// Appends the path to the restricted choice set unless an equal path
// is already a member. Returns whether the path was added.
func (self *OD) AddPath(path *Path) bool {
	if self.FindPath(path) != nil {
		return false
	}
	self.RestrictedChoiceSet.Add(path)
	return true
}

// Member of the restricted choice set equal to the given path, or nil.
func (self *OD) FindPath(path *Path) *Path {
	for _, other := range self.RestrictedChoiceSet {
		if path.Equals(other) {
			return other
		}
	}
	return nil
}

// Drops every path flagged MarkedForRemoval from the restricted
// choice set.
func (self *OD) RemoveMarkedPaths() {
	kept := NewList[*Path](self.RestrictedChoiceSet.Length())
	for _, path := range self.RestrictedChoiceSet {
		if !path.MarkedForRemoval {
			kept.Add(path)
		}
	}
	self.RestrictedChoiceSet = kept
}

func (self *OD) MinimumCost() float64 {
	return self.minimumCost
}

func (self *OD) SetMinimumCost(cost float64) {
	self.minimumCost = cost
}

func (self *OD) MinimumTransformedCost() float64 {
	return self.minimumTransformedCost
}

func (self *OD) SetMinimumTransformedCost(cost float64) {
	self.minimumTransformedCost = cost
}

// Number of paths in the restricted choice set carrying positive flow.
func (self *OD) UsedPathCount() int {
	count := 0
	for _, path := range self.RestrictedChoiceSet {
		if path.Flow() > 0 {
			count++
		}
	}
	return count
}

// Recomputes the cost-weighted path-size overlap factors on the
// restricted choice set:
//
//	PS_k = sum_{a in k} (c_a / c_k) / sum_{j} delta_aj * (c_min/c_j)^gamma
//
// Overlap is weighted by generalized cost, so factors go stale every
// time link costs change.
func (self *OD) UpdatePathSizeFactors(gamma float64) {
	minCost := self.minimumCost
	for _, path := range self.RestrictedChoiceSet {
		ps := 0.0
		for _, edge := range path.Edges() {
			denominator := 0.0
			for _, other := range self.RestrictedChoiceSet {
				if other.ContainsEdge(edge.ID) {
					denominator += math.Pow(minCost/other.GenCost, gamma)
				}
			}
			if denominator > 0 {
				ps += edge.GenCost() / path.GenCost / denominator
			}
		}
		path.PS = ps
	}
}
