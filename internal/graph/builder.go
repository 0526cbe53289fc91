package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/pyworks/internal/ctxlog"
	"github.com/vk/pyworks/internal/layout"
	"github.com/vk/pyworks/internal/pyscan"
	"github.com/vk/pyworks/internal/registry"
	"github.com/vk/pyworks/internal/toposort"
)

// OutputKey is the data-edge port key. The original editor exposes a single
// output port per node, so every data edge carries the same key.
const OutputKey = "output_data"

// Input is one incoming data edge of a consumer instance.
type Input struct {
	// Producer is the instance id whose output feeds this edge.
	Producer string
	// OutputKey names the producer port the edge is attached to.
	OutputKey string
}

// Graphs is the validated result of a build. Control and Data are derived
// from FLOW and DATA connections respectively and share the same vertex set.
type Graphs struct {
	// Vertices lists every instance id, sorted.
	Vertices []string
	// Control maps an instance id to its control-flow successors.
	Control map[string][]string
	// Data maps a consumer instance id to its data inputs.
	Data map[string][]Input
	// Meta maps an instance id to its resolved node type metadata.
	Meta map[string]pyscan.NodeMetadata
}

// LookupError reports a layout instance whose node type is not registered.
type LookupError struct {
	InstanceID string
	FQNN       string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("node type %q (instance %q) not found in registry", e.FQNN, e.InstanceID)
}

// ValidationError reports a structurally invalid layout.
type ValidationError struct {
	InstanceID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid layout: instance %q: %s", e.InstanceID, e.Reason)
}

// Build validates the layout against the registry and derives both graphs.
//
// Every instance must resolve to a registered node type; the first failure
// (in sorted instance-id order) aborts the build. Connections referencing an
// instance id absent from the layout's node set fail the build naming that
// id, for CONTROL and DATA edges alike — they are never silently dropped.
func Build(ctx context.Context, l *layout.Layout, reg *registry.Registry) (*Graphs, error) {
	logger := ctxlog.FromContext(ctx)

	g := &Graphs{
		Control: make(map[string][]string),
		Data:    make(map[string][]Input),
		Meta:    make(map[string]pyscan.NodeMetadata),
	}

	for id := range l.Nodes {
		g.Vertices = append(g.Vertices, id)
		g.Control[id] = nil
		g.Data[id] = nil
	}
	sort.Strings(g.Vertices)

	for _, id := range g.Vertices {
		fqnn := l.Nodes[id].FQNN
		meta, ok := reg.Get(fqnn)
		if !ok {
			return nil, &LookupError{InstanceID: id, FQNN: fqnn}
		}
		g.Meta[id] = meta
	}

	for _, conn := range l.Connections {
		if _, ok := l.Nodes[conn.SourceNodeID]; !ok {
			return nil, &ValidationError{InstanceID: conn.SourceNodeID, Reason: "connection references an instance absent from the layout"}
		}
		if _, ok := l.Nodes[conn.TargetNodeID]; !ok {
			return nil, &ValidationError{InstanceID: conn.TargetNodeID, Reason: "connection references an instance absent from the layout"}
		}
		if conn.SourceNodeID == conn.TargetNodeID {
			return nil, &ValidationError{InstanceID: conn.SourceNodeID, Reason: "connection joins an instance to itself"}
		}

		switch conn.SourcePortType {
		case layout.PortFlow:
			g.Control[conn.SourceNodeID] = append(g.Control[conn.SourceNodeID], conn.TargetNodeID)
		case layout.PortData:
			g.Data[conn.TargetNodeID] = append(g.Data[conn.TargetNodeID], Input{
				Producer:  conn.SourceNodeID,
				OutputKey: OutputKey,
			})
		default:
			logger.Warn("Ignoring connection with unknown port type.", "port_type", conn.SourcePortType, "source", conn.SourceNodeID)
		}
	}

	logger.Debug("Graph build complete.",
		"vertex_count", len(g.Vertices),
		"connection_count", len(l.Connections))
	return g, nil
}

// HasCycle runs the sorter over the control graph and reports whether it
// failed, without surfacing the error.
func (g *Graphs) HasCycle() bool {
	_, err := toposort.Sort(g.Control, g.Vertices)
	return err != nil
}

// EntryNodes returns the zero-in-degree vertices of the control graph,
// sorted. Informational only: a run executes every instance regardless of
// entry status.
func (g *Graphs) EntryNodes() []string {
	inDegree := make(map[string]int, len(g.Vertices))
	for _, v := range g.Vertices {
		inDegree[v] = 0
	}
	for _, v := range g.Vertices {
		for _, child := range g.Control[v] {
			inDegree[child]++
		}
	}

	var entries []string
	for _, v := range g.Vertices {
		if inDegree[v] == 0 {
			entries = append(entries, v)
		}
	}
	return entries
}
