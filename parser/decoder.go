package parser

import (
	"strconv"

	. "github.com/ttpr0/go-assignment/util"
)

//**********************************************************
// osm decoder
//**********************************************************

// Maps OSM way tags onto assignment link parameters.
type IOSMDecoder interface {
	IsValidHighway(tags Dict[string, string]) bool
	IsOneway(tags Dict[string, string]) bool
	// free-flow speed [km/h] and capacity [veh/h] per direction
	DecodeHighway(tags Dict[string, string]) (float64, float64)
}

var _ IOSMDecoder = &DrivingDecoder{}

// Decoder for the driveable road network. Speeds and capacities are
// per-class defaults, overridden by a usable maxspeed tag.
type DrivingDecoder struct{}

var driving_classes = Dict[string, Tuple[float64, float64]]{
	"motorway":       MakeTuple(110.0, 2000.0),
	"motorway_link":  MakeTuple(60.0, 1500.0),
	"trunk":          MakeTuple(90.0, 1800.0),
	"trunk_link":     MakeTuple(50.0, 1300.0),
	"primary":        MakeTuple(70.0, 1200.0),
	"primary_link":   MakeTuple(40.0, 1000.0),
	"secondary":      MakeTuple(60.0, 1000.0),
	"secondary_link": MakeTuple(40.0, 800.0),
	"tertiary":       MakeTuple(50.0, 800.0),
	"tertiary_link":  MakeTuple(40.0, 600.0),
	"unclassified":   MakeTuple(40.0, 600.0),
	"residential":    MakeTuple(30.0, 500.0),
}

func (self *DrivingDecoder) IsValidHighway(tags Dict[string, string]) bool {
	highway, ok := tags["highway"]
	if !ok {
		return false
	}
	return driving_classes.ContainsKey(highway)
}

func (self *DrivingDecoder) IsOneway(tags Dict[string, string]) bool {
	oneway := tags["oneway"]
	if oneway == "yes" || oneway == "1" || oneway == "true" {
		return true
	}
	return tags["junction"] == "roundabout"
}

func (self *DrivingDecoder) DecodeHighway(tags Dict[string, string]) (float64, float64) {
	defaults := driving_classes[tags["highway"]]
	speed := defaults.A
	capacity := defaults.B
	if maxspeed, ok := tags["maxspeed"]; ok {
		if parsed, err := strconv.ParseFloat(maxspeed, 64); err == nil && parsed > 0 {
			speed = parsed
		}
	}
	return speed, capacity
}
