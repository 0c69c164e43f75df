package main

import (
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

//**********************************************************
// config
//**********************************************************

func ReadConfig(file string) Config {
	slog.Info("Reading config file " + file)
	data, err := os.ReadFile(file)
	if err != nil {
		slog.Error("failed to read config file: " + err.Error())
		panic(err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		slog.Error("failed to parse config file: " + err.Error())
		panic(err)
	}
	return config
}

type Config struct {
	Network struct {
		// directory holding the TNTP triplet
		Directory string `yaml:"directory"`
		// OSM pbf extract, used instead of the TNTP triplet when set
		OSM           string  `yaml:"osm"`
		Name          string  `yaml:"name"`
		Bidirectional bool    `yaml:"bidirectional"`
		DemandScale   float64 `yaml:"demand-scale"`
	} `yaml:"network"`
	RUM struct {
		Type             string  `yaml:"type"`
		Theta            float64 `yaml:"theta"`
		BetaTime         float64 `yaml:"beta-time"`
		BetaLength       float64 `yaml:"beta-length"`
		PathSizeExponent float64 `yaml:"path-size-exponent"`
	} `yaml:"rum"`
	Phi   RefCostOptions `yaml:"phi"`
	Omega RefCostOptions `yaml:"omega"`
	Solver struct {
		Epsilon               float64 `yaml:"epsilon"`
		MaximumCostRatio      float64 `yaml:"maximum-cost-ratio"`
		LocalMaximumCostRatio float64 `yaml:"local-maximum-cost-ratio"`
		OuterMax              int     `yaml:"outer-max"`
		InnerMax              int     `yaml:"inner-max"`
		UnrestrictedInner     bool    `yaml:"unrestricted-inner"`
		MinimumFlowUsed       float64 `yaml:"minimum-flow-used"`
		// enumerate and cut the universal choice sets before solving;
		// only feasible on small networks
		UseUniversalChoiceSet bool `yaml:"use-universal-choice-set"`
	} `yaml:"solver"`
	Output struct {
		Directory string `yaml:"directory"`
		// folder name inside the output directory; timestamped when
		// empty
		Name string `yaml:"name"`
	} `yaml:"output"`
	Verbose bool `yaml:"verbose"`
}

type RefCostOptions struct {
	Type  string  `yaml:"type"`
	Tau   float64 `yaml:"tau"`
	Delta float64 `yaml:"delta"`
}
