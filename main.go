package main

import (
	"errors"
	"os"

	"github.com/ttpr0/go-assignment/algorithm"
	"github.com/ttpr0/go-assignment/choice"
	"github.com/ttpr0/go-assignment/network"
	"github.com/ttpr0/go-assignment/parser"
	"github.com/ttpr0/go-assignment/solver"
	"golang.org/x/exp/slog"
)

func main() {
	configFile := "./config.yaml"
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config := ReadConfig(configFile)

	level := slog.LevelWarn
	if config.Verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(NewLogHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	net, err := readNetwork(config)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	net.MinimumFlowToBeConsideredUsed = config.Solver.MinimumFlowUsed

	rsuet, err := buildSolver(config)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if config.Solver.UseUniversalChoiceSet {
		dijkstra := algorithm.NewDijkstraSolver(net)
		if err := algorithm.GenerateUniversalChoiceSets(net, dijkstra); err != nil {
			slog.Error(err.Error())
			os.Exit(1)
		}
		net.CutUniversalChoiceSets(rsuet.MaximumCostRatio)
	}

	conv, err := rsuet.Solve(net)
	if err != nil && !errors.Is(err, solver.ErrNonConvergence) {
		slog.Error(err.Error())
		os.Exit(1)
	}
	if err != nil {
		// flows of the last iteration are still written
		slog.Warn(err.Error())
	}

	if err := PrintOutput(config.Output.Directory, config.Output.Name, net, rsuet, conv); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func readNetwork(config Config) (*network.Network, error) {
	if config.Network.OSM != "" {
		return parser.ParseOSMNetwork(config.Network.OSM, config.Network.Name, &parser.DrivingDecoder{})
	}
	return parser.ReadNetwork(config.Network.Directory, parser.NetworkOptions{
		Bidirectional: config.Network.Bidirectional,
		DemandScale:   config.Network.DemandScale,
	})
}

func buildSolver(config Config) (*solver.RSUET, error) {
	phi, err := buildRefCost(config.Phi)
	if err != nil {
		return nil, err
	}
	omega, err := buildRefCost(config.Omega)
	if err != nil {
		return nil, err
	}
	rumType, err := choice.RUMTypeFromString(config.RUM.Type)
	if err != nil {
		return nil, err
	}
	rum, err := choice.NewRUM(rumType, config.RUM.Theta, config.RUM.BetaTime, config.RUM.BetaLength, config.RUM.PathSizeExponent, omega)
	if err != nil {
		return nil, err
	}
	rsuet, err := solver.NewRSUET(rum, phi, omega, config.Solver.Epsilon)
	if err != nil {
		return nil, err
	}
	if config.Solver.MaximumCostRatio != 0 {
		rsuet.MaximumCostRatio = config.Solver.MaximumCostRatio
	}
	rsuet.LocalMaximumCostRatio = config.Solver.LocalMaximumCostRatio
	if config.Solver.OuterMax > 0 {
		rsuet.OuterMax = config.Solver.OuterMax
	}
	if config.Solver.InnerMax > 0 {
		rsuet.InnerMax = config.Solver.InnerMax
	}
	rsuet.UnrestrictedInner = config.Solver.UnrestrictedInner
	return rsuet, nil
}

func buildRefCost(options RefCostOptions) (choice.RefCost, error) {
	typ, err := choice.RefCostTypeFromString(options.Type)
	if err != nil {
		return choice.RefCost{}, err
	}
	switch typ {
	case choice.MIN_PLUS_DELTA:
		return choice.NewRefCostMinPlusDelta(options.Delta)
	default:
		return choice.NewRefCostTauMin(options.Tau)
	}
}
