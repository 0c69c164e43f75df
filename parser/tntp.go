package parser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ttpr0/go-assignment/network"
	"golang.org/x/exp/slog"
)

var ErrNetworkRead = errors.New("network read failed")

type NetworkOptions struct {
	// materialise every edge in the reverse direction as well
	Bidirectional bool
	// multiplier applied to every demand value on load
	DemandScale float64
}

//**********************************************************
// tntp network triplet
//**********************************************************

// Reads a TNTP network triplet (*_net.tntp, *_node.tntp, *_trips.tntp)
// from a directory, as formatted in
// https://github.com/bstabler/TransportationNetworks.
// The node file is optional; without it nodes are synthesised at (0,0).
func ReadNetwork(directory string, options NetworkOptions) (*network.Network, error) {
	slog.Info("Reading network from " + directory)
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}
	netFile := ""
	nodeFile := ""
	tripsFile := ""
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, "_net.tntp"):
			netFile = filepath.Join(directory, name)
		case strings.HasSuffix(name, "_node.tntp"):
			nodeFile = filepath.Join(directory, name)
		case strings.HasSuffix(name, "_trips.tntp"):
			tripsFile = filepath.Join(directory, name)
		}
	}
	if netFile == "" {
		return nil, fmt.Errorf("%w: no _net.tntp file in %v", ErrNetworkRead, directory)
	}
	if tripsFile == "" {
		return nil, fmt.Errorf("%w: no _trips.tntp file in %v", ErrNetworkRead, directory)
	}

	name := filepath.Base(strings.TrimSuffix(directory, "/"))
	net := network.New(name)

	numNodes, err := readEdges(net, netFile, options.Bidirectional)
	if err != nil {
		return nil, err
	}
	if nodeFile != "" {
		if err := readNodes(net, nodeFile, numNodes); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("No node file provided, proceeding with artificial node data")
		synthesiseNodes(net, numNodes)
	}
	if err := readTrips(net, tripsFile, options.DemandScale); err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("Network read: %v nodes, %v edges, %v ODs", net.NodeCount(), net.EdgeCount(), net.NumOD()))
	return net, nil
}

// Parses the *_net.tntp metadata block and edge rows. Returns the node
// count announced in the metadata. Edges get ids 1..N in file order;
// nodes 1..numNodes are created at (0,0) up front and re-positioned by
// the node file afterwards. An edge row referencing a node outside
// that range is rejected.
func readEdges(net *network.Network, filename string, bidirectional bool) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	numNodes := -1
	numEdges := -1
	for scanner.Scan() {
		line := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if strings.HasPrefix(line, "<END OF METADATA>") {
			break
		}
		if strings.HasPrefix(line, "<NUMBER OF NODES>") {
			numNodes, err = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "<NUMBER OF NODES>")))
			if err != nil {
				return 0, fmt.Errorf("%w: malformed node count in %v", ErrNetworkRead, filename)
			}
		}
		if strings.HasPrefix(line, "<NUMBER OF LINKS>") {
			numEdges, err = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "<NUMBER OF LINKS>")))
			if err != nil {
				return 0, fmt.Errorf("%w: malformed link count in %v", ErrNetworkRead, filename)
			}
		}
	}
	if numNodes < 0 || numEdges < 0 {
		return 0, fmt.Errorf("%w: missing metadata in %v", ErrNetworkRead, filename)
	}

	// pre-create nodes so edges can register adjacency
	for i := 1; i <= numNodes; i++ {
		net.AddNode(network.NewNode(int32(i), 0, 0))
	}

	foundHeader := false
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "~") {
			foundHeader = true
			break
		}
	}
	if !foundHeader {
		return 0, fmt.Errorf("%w: no header token ~ in %v", ErrNetworkRead, filename)
	}

	id := int32(1)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ";"))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 7 {
			return 0, fmt.Errorf("%w: malformed edge row %q in %v", ErrNetworkRead, line, filename)
		}
		values := make([]float64, 7)
		for i := 0; i < 7; i++ {
			values[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return 0, fmt.Errorf("%w: malformed edge row %q in %v", ErrNetworkRead, line, filename)
			}
		}
		tail := int32(values[0])
		head := int32(values[1])
		if net.GetNode(tail) == nil || net.GetNode(head) == nil {
			return 0, fmt.Errorf("%w: edge row %q references unknown node in %v", ErrNetworkRead, line, filename)
		}
		net.AddEdge(&network.Edge{
			ID:           id,
			Tail:         tail,
			Head:         head,
			Capacity:     values[2],
			Length:       values[3],
			FreeFlowTime: values[4],
			B:            values[5],
			Power:        values[6],
		})
		id++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}

	if bidirectional {
		materialiseReverseEdges(net)
	}
	return numNodes, nil
}

// Adds a reverse edge with identical parameters for every edge whose
// opposite direction is not in the file.
func materialiseReverseEdges(net *network.Network) {
	forward := net.Edges()
	count := forward.Length()
	id := int32(count + 1)
	for i := 0; i < count; i++ {
		edge := forward[i]
		if _, err := net.GetEdge(edge.Head, edge.Tail); err == nil {
			continue
		}
		reverse := &network.Edge{
			ID:           id,
			Tail:         edge.Head,
			Head:         edge.Tail,
			Capacity:     edge.Capacity,
			Length:       edge.Length,
			FreeFlowTime: edge.FreeFlowTime,
			B:            edge.B,
			Power:        edge.Power,
		}
		net.AddEdge(reverse)
		id++
	}
}

func readNodes(net *network.Network, filename string, numNodes int) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}
	defer file.Close()

	didRead := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ";")))
		if line == "" || strings.HasPrefix(line, "node") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("%w: malformed node row %q in %v", ErrNetworkRead, line, filename)
		}
		id, err1 := strconv.Atoi(fields[0])
		x, err2 := strconv.ParseFloat(fields[1], 64)
		y, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return fmt.Errorf("%w: malformed node row %q in %v", ErrNetworkRead, line, filename)
		}
		node := net.GetNode(int32(id))
		if node == nil {
			net.AddNode(network.NewNode(int32(id), x, y))
		} else {
			node.Loc = network.Coord{X: x, Y: y}
		}
		didRead = true
	}
	if !didRead {
		synthesiseNodes(net, numNodes)
	}
	return nil
}

func synthesiseNodes(net *network.Network, numNodes int) {
	for i := 1; i <= numNodes; i++ {
		if net.GetNode(int32(i)) == nil {
			net.AddNode(network.NewNode(int32(i), 0, 0))
		}
	}
}

// Parses the *_trips.tntp demand blocks. Demand values <= 0 are
// silently dropped; the scale factor is applied per entry.
func readTrips(net *network.Network, filename string, demandScale float64) error {
	if demandScale == 0 {
		demandScale = 1
	}
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkRead, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "<END OF METADATA>") {
			break
		}
	}

	origin := int32(-1)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "origin") {
			o, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "origin")))
			if err != nil {
				return fmt.Errorf("%w: malformed origin row %q in %v", ErrNetworkRead, line, filename)
			}
			origin = int32(o)
			continue
		}
		if origin < 0 {
			return fmt.Errorf("%w: demand row before first origin in %v", ErrNetworkRead, filename)
		}
		for _, entry := range strings.Split(line, ";") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parts := strings.SplitN(entry, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("%w: malformed demand entry %q in %v", ErrNetworkRead, entry, filename)
			}
			d, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			demand, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil {
				return fmt.Errorf("%w: malformed demand entry %q in %v", ErrNetworkRead, entry, filename)
			}
			demand *= demandScale
			if demand <= 0 {
				continue
			}
			if net.GetNode(origin) == nil || net.GetNode(int32(d)) == nil {
				return fmt.Errorf("%w: demand entry %q references unknown node in %v", ErrNetworkRead, entry, filename)
			}
			net.AddOD(network.NewOD(origin, int32(d), demand))
		}
	}
	return scanner.Err()
}
