package layout

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Port type tags carried by connections.
const (
	PortFlow = "FLOW"
	PortData = "DATA"
)

// Port directions.
const (
	DirIn  = "IN"
	DirOut = "OUT"
)

// Version is the layout format version written on save.
const Version = "1.0"

// Node is one placement of a node type on the canvas. Its identity is the
// instance id under which it is stored in Layout.Nodes, distinct from the
// fully-qualified name of its type.
type Node struct {
	// FQNN references the node type, "<category>.<function>".
	FQNN string  `json:"fqnn"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Connection joins a port on one instance to a port on another. A
// well-formed connection has matching port types and opposite directions;
// that pairing is enforced by the editor at authoring time, not re-validated
// here. Source and target must be distinct instances.
type Connection struct {
	SourceNodeID        string `json:"source_node_id"`
	SourcePortType      string `json:"source_port_type"`
	SourcePortDirection string `json:"source_port_direction"`
	TargetNodeID        string `json:"target_node_id"`
	TargetPortType      string `json:"target_port_type"`
	TargetPortDirection string `json:"target_port_direction"`
}

// Layout is the saved description of a workflow canvas.
type Layout struct {
	Version     string          `json:"version"`
	Nodes       map[string]Node `json:"nodes"`
	Connections []Connection    `json:"connections"`
}

// New returns an empty layout.
func New() *Layout {
	return &Layout{
		Version:     Version,
		Nodes:       make(map[string]Node),
		Connections: []Connection{},
	}
}

// AddNode places a node type on the layout and returns the minted instance
// id. Multiple instances of the same type may coexist.
func (l *Layout) AddNode(fqnn string, x, y float64) string {
	id := uuid.NewString()
	l.Nodes[id] = Node{FQNN: fqnn, X: x, Y: y}
	return id
}

// Connect appends a connection between two instances.
func (l *Layout) Connect(sourceID, targetID, portType string) {
	l.Connections = append(l.Connections, Connection{
		SourceNodeID:        sourceID,
		SourcePortType:      portType,
		SourcePortDirection: DirOut,
		TargetNodeID:        targetID,
		TargetPortType:      portType,
		TargetPortDirection: DirIn,
	})
}

// rawNode mirrors Node on disk, with the legacy split type reference.
type rawNode struct {
	FQNN     string  `json:"fqnn"`
	Category string  `json:"category"`
	Function string  `json:"function"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// rawConnection mirrors Connection on disk, with legacy key aliases.
type rawConnection struct {
	SourceNodeID        string `json:"source_node_id"`
	SourceNodeKey       string `json:"source_node_key"`
	SourcePortType      string `json:"source_port_type"`
	SourcePortDirection string `json:"source_port_direction"`
	TargetNodeID        string `json:"target_node_id"`
	TargetNodeKey       string `json:"target_node_key"`
	TargetPortType      string `json:"target_port_type"`
	TargetPortDirection string `json:"target_port_direction"`
}

type rawLayout struct {
	Version     string             `json:"version"`
	Nodes       map[string]rawNode `json:"nodes"`
	Connections []rawConnection    `json:"connections"`
}

// Load reads and decodes a layout file, accepting legacy key aliases.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses layout JSON, accepting legacy key aliases.
func Decode(data []byte) (*Layout, error) {
	var raw rawLayout
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed layout: %w", err)
	}

	l := New()
	l.Version = raw.Version
	if l.Version == "" {
		l.Version = Version
	}

	for id, rn := range raw.Nodes {
		fqnn := rn.FQNN
		if fqnn == "" {
			// Legacy layouts referenced the type as category + function.
			if rn.Category == "" || rn.Function == "" {
				return nil, fmt.Errorf("malformed layout: node %q has no type reference", id)
			}
			fqnn = rn.Category + "." + rn.Function
		}
		l.Nodes[id] = Node{FQNN: fqnn, X: rn.X, Y: rn.Y}
	}

	for i, rc := range raw.Connections {
		sourceID := rc.SourceNodeID
		if sourceID == "" {
			sourceID = rc.SourceNodeKey
		}
		targetID := rc.TargetNodeID
		if targetID == "" {
			targetID = rc.TargetNodeKey
		}
		if sourceID == "" || targetID == "" {
			return nil, fmt.Errorf("malformed layout: connection %d is missing an endpoint", i)
		}
		l.Connections = append(l.Connections, Connection{
			SourceNodeID:        sourceID,
			SourcePortType:      rc.SourcePortType,
			SourcePortDirection: rc.SourcePortDirection,
			TargetNodeID:        targetID,
			TargetPortType:      rc.TargetPortType,
			TargetPortDirection: rc.TargetPortDirection,
		})
	}

	return l, nil
}

// Save writes the layout as indented JSON using the modern keys.
func (l *Layout) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
