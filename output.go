package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ttpr0/go-assignment/network"
	"github.com/ttpr0/go-assignment/solver"
	. "github.com/ttpr0/go-assignment/util"
	"golang.org/x/exp/slog"
)

//**********************************************************
// output csv set
//**********************************************************

type FlowRow struct {
	EdgeID int32   `csv:"EdgeID"`
	Flow   float64 `csv:"Flow"`
	Time   float64 `csv:"Time"`
}

type ChoiceSetRow struct {
	O       int32   `csv:"O"`
	D       int32   `csv:"D"`
	Path    string  `csv:"Path"`
	P       float64 `csv:"Choice-P"`
	Flow    float64 `csv:"Flow"`
	GenCost float64 `csv:"Generalized-cost"`
}

type KeyValueRow struct {
	Key   string `csv:"Parameter"`
	Value string `csv:"Value"`
}

// Writes the full diagnostic set (flow, parameters, choice sets,
// choice set summary, convergence pattern) into a new folder below
// outDir, timestamped unless a name is given.
func PrintOutput(outDir string, name string, net *network.Network, rsuet *solver.RSUET, conv *solver.ConvergencePattern) error {
	if name == "" {
		name = net.Name() + "-Output_" + time.Now().Format("2006-01-02_15-04-05")
	}
	folder := filepath.Join(outDir, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return err
	}
	slog.Info("Output folder is " + folder)

	if err := PrintFlowSolution(net, filepath.Join(folder, "flow.csv")); err != nil {
		return err
	}
	if err := PrintParameters(rsuet, filepath.Join(folder, "parameters.csv")); err != nil {
		return err
	}
	if err := PrintChoiceSets(net, filepath.Join(folder, "choice-sets.csv")); err != nil {
		return err
	}
	if err := PrintChoiceSetSummary(net, filepath.Join(folder, "choice-set-summary.csv")); err != nil {
		return err
	}
	if err := WriteCSVToFile(conv.Rows(), filepath.Join(folder, "convergence.csv"), ';'); err != nil {
		return err
	}
	slog.Info("Solution was successfully written")
	return nil
}

func PrintFlowSolution(net *network.Network, file string) error {
	rows := NewList[FlowRow](net.EdgeCount())
	for _, edge := range net.Edges() {
		rows.Add(FlowRow{EdgeID: edge.ID, Flow: edge.Flow(), Time: edge.Time()})
	}
	return WriteCSVToFile(rows, file, ';')
}

// One row per path with flow at or above the used threshold; the path is
// written as a space-separated node id sequence.
func PrintChoiceSets(net *network.Network, file string) error {
	rows := NewList[ChoiceSetRow](net.NumOD())
	net.ForEachOD(func(od *network.OD) {
		for _, path := range od.RestrictedChoiceSet {
			if path.Flow() < net.MinimumFlowToBeConsideredUsed {
				continue
			}
			tokens := NewList[string](8)
			for _, id := range path.NodeSequence() {
				tokens.Add(fmt.Sprint(id))
			}
			rows.Add(ChoiceSetRow{
				O:       od.O,
				D:       od.D,
				Path:    strings.Join(tokens, " "),
				P:       path.P,
				Flow:    path.Flow(),
				GenCost: path.GenCost,
			})
		}
	})
	return WriteCSVToFile(rows, file, ';')
}

func PrintChoiceSetSummary(net *network.Network, file string) error {
	rows := NewList[KeyValueRow](2)
	rows.Add(KeyValueRow{"Average-choice-set-size", fmt.Sprint(net.CalculateAvgChoiceSetSize())})
	rows.Add(KeyValueRow{"Max-choice-set-size", fmt.Sprint(net.MaxChoiceSetSize())})
	return WriteCSVToFile(rows, file, ';')
}

func PrintParameters(rsuet *solver.RSUET, file string) error {
	params := rsuet.Parameters()
	rows := NewList[KeyValueRow](params.Length())
	for _, param := range params {
		rows.Add(KeyValueRow{param.A, param.B})
	}
	return WriteCSVToFile(rows, file, ';')
}
