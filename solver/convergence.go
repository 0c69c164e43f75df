package solver

import (
	"math"

	. "github.com/ttpr0/go-assignment/util"
)

//**********************************************************
// convergence record
//**********************************************************

type ConvergenceRow struct {
	Outer            int     `csv:"Outer-iteration"`
	Inner            int     `csv:"Inner-iterations"`
	RelGapUsed       float64 `csv:"Rel-gap-used"`
	MaxChoiceSetSize int     `csv:"Max-choice-set-size"`
	AvgChoiceSetSize float64 `csv:"Avg-choice-set-size"`
}

// Append-only record of the outer iterations of a solve.
type ConvergencePattern struct {
	rows List[ConvergenceRow]
}

func NewConvergencePattern() *ConvergencePattern {
	return &ConvergencePattern{
		rows: NewList[ConvergenceRow](16),
	}
}

func (self *ConvergencePattern) Add(outer int, inner int, relGapUsed float64, maxSize int, avgSize float64) {
	self.rows.Add(ConvergenceRow{
		Outer:            outer,
		Inner:            inner,
		RelGapUsed:       relGapUsed,
		MaxChoiceSetSize: maxSize,
		AvgChoiceSetSize: avgSize,
	})
}

func (self *ConvergencePattern) Rows() List[ConvergenceRow] {
	return self.rows
}

func (self *ConvergencePattern) Length() int {
	return self.rows.Length()
}

// Last recorded gap, or +Inf before the first outer iteration closed.
func (self *ConvergencePattern) LastGap() float64 {
	if self.rows.Length() == 0 {
		return math.Inf(1)
	}
	return self.rows[self.rows.Length()-1].RelGapUsed
}
