package parser

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/ttpr0/go-assignment/network"
	. "github.com/ttpr0/go-assignment/util"
	"golang.org/x/exp/slog"
)

// default BPR coefficients for links synthesised from OSM
const (
	OSM_BPR_B     = 0.15
	OSM_BPR_POWER = 4.0
)

type temp_node struct {
	point Coord
	count int32
}

type Coord struct {
	Lon float64
	Lat float64
}

//**********************************************************
// osm import
//**********************************************************

// Builds an assignment network from an OSM pbf extract. Ways are
// compacted to edges between junction and way-end nodes; per-class
// speed and capacity defaults yield BPR parameters, so an assignment
// can run on OSM data without a TNTP triplet. Demand has to be
// supplied separately against the synthesised node ids.
func ParseOSMNetwork(pbfFile string, name string, decoder IOSMDecoder) (*network.Network, error) {
	slog.Info("Parsing OSM network from " + pbfFile)
	osm_nodes := NewDict[int64, temp_node](10000)

	file, err := os.Open(pbfFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}
	defer file.Close()

	if err := _MarkWayNodes(file, decoder, &osm_nodes); err != nil {
		return nil, err
	}
	file.Seek(0, 0)
	index_mapping := NewDict[int64, int32](osm_nodes.Length())
	net := network.New(name)
	if err := _CollectNodes(file, &osm_nodes, &index_mapping, net); err != nil {
		return nil, err
	}
	file.Seek(0, 0)
	if err := _BuildEdges(file, decoder, &osm_nodes, &index_mapping, net); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("OSM network built: %v nodes, %v edges", net.NodeCount(), net.EdgeCount()))
	return net, nil
}

// First pass: count how often each node is referenced by valid
// highways. Nodes referenced more than once are junctions and become
// network nodes, as do way endpoints.
func _MarkWayNodes(file *os.File, decoder IOSMDecoder, osm_nodes *Dict[int64, temp_node]) error {
	scanner := osmpbf.New(context.Background(), file, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		tags := Dict[string, string](way.TagMap())
		if !decoder.IsValidHighway(tags) {
			continue
		}
		ids := way.Nodes.NodeIDs()
		for i, id := range ids {
			ref := id.FeatureID().Ref()
			node := (*osm_nodes)[ref]
			node.count += 1
			if i == 0 || i == len(ids)-1 {
				node.count += 1
			}
			(*osm_nodes)[ref] = node
		}
	}
	return scanner.Err()
}

// Second pass: store coordinates of referenced nodes and create the
// network nodes for junctions and endpoints, ids ascending from 1.
func _CollectNodes(file *os.File, osm_nodes *Dict[int64, temp_node], index_mapping *Dict[int64, int32], net *network.Network) error {
	scanner := osmpbf.New(context.Background(), file, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true
	id := int32(1)
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		ref := node.FeatureID().Ref()
		temp, ok := (*osm_nodes)[ref]
		if !ok || temp.count == 0 {
			continue
		}
		temp.point = Coord{node.Lon, node.Lat}
		(*osm_nodes)[ref] = temp
		if temp.count > 1 {
			net.AddNode(network.NewNode(id, node.Lon, node.Lat))
			(*index_mapping)[ref] = id
			id++
		}
	}
	return scanner.Err()
}

// Third pass: split ways at junctions into edges, accumulating segment
// lengths, and derive BPR parameters from the decoded class.
func _BuildEdges(file *os.File, decoder IOSMDecoder, osm_nodes *Dict[int64, temp_node], index_mapping *Dict[int64, int32], net *network.Network) error {
	scanner := osmpbf.New(context.Background(), file, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	edge_id := int32(1)
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		tags := Dict[string, string](way.TagMap())
		if !decoder.IsValidHighway(tags) {
			continue
		}
		speed, capacity := decoder.DecodeHighway(tags)
		oneway := decoder.IsOneway(tags)

		ids := way.Nodes.NodeIDs()
		start := int64(-1)
		length := 0.0
		var prev Coord
		for i, id := range ids {
			ref := id.FeatureID().Ref()
			temp := (*osm_nodes)[ref]
			if i > 0 {
				length += _Haversine(prev, temp.point)
			}
			prev = temp.point
			if temp.count <= 1 {
				continue
			}
			if start == -1 {
				start = ref
				length = 0
				continue
			}
			tail := (*index_mapping)[start]
			head := (*index_mapping)[ref]
			edge_id = _AddOSMEdge(net, edge_id, tail, head, length, speed, capacity)
			if !oneway {
				edge_id = _AddOSMEdge(net, edge_id, head, tail, length, speed, capacity)
			}
			start = ref
			length = 0
		}
	}
	return scanner.Err()
}

func _AddOSMEdge(net *network.Network, id int32, tail int32, head int32, length float64, speed float64, capacity float64) int32 {
	if _, err := net.GetEdge(tail, head); err == nil {
		return id
	}
	net.AddEdge(&network.Edge{
		ID:           id,
		Tail:         tail,
		Head:         head,
		Capacity:     capacity,
		Length:       length,
		FreeFlowTime: length / speed * 60,
		B:            OSM_BPR_B,
		Power:        OSM_BPR_POWER,
	})
	return id + 1
}

// Great-circle distance in kilometres.
func _Haversine(a Coord, b Coord) float64 {
	const earth_radius = 6371.0
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earth_radius * math.Asin(math.Sqrt(h))
}
