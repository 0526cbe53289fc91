// Package plan turns a topologically ordered set of node instances into the
// executable program a run launches: a generated Python script that invokes
// each node function in order, wires inputs from producers' outputs, and
// isolates per-node failures so one raising node never aborts the rest.
package plan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/pyworks/internal/graph"
)

// MarkerPrefix opens every progress-marker line the generated script prints.
// The full line is "<MarkerPrefix>:<instance id>", flushed immediately
// before the corresponding node invocation so the parent can attribute
// subsequent output to the active node.
const MarkerPrefix = "__PYWORKS_EXEC_NODE__"

// SynthesisError reports a layout the synthesizer cannot plan.
type SynthesisError struct {
	InstanceID string
	Reason     string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("cannot synthesize plan: instance %q: %s", e.InstanceID, e.Reason)
}

// Plan is a synthesized, runnable program for one workflow.
type Plan struct {
	// Order is the instance execution order the script follows.
	Order []string
	// Script is the generated Python program. It exits 0 iff no node
	// recorded an error.
	Script string
}

// Synthesize builds the executable plan for the given order.
//
// Per instance, the script: prints a flushed progress marker; builds an
// input mapping from each data predecessor's recorded output, keyed by the
// predecessor's fully-qualified name (a failed or silent producer degrades
// to an empty mapping — consumers of a failed node still run); invokes the
// node function with (inputs, global_state); stores the result under this
// instance's fully-qualified name; and on an exception records the error
// text and continues with the next instance.
func Synthesize(order []string, g *graph.Graphs, root string) (*Plan, error) {
	var b strings.Builder

	b.WriteString("import sys\n")
	fmt.Fprintf(&b, "sys.path.insert(0, %s)\n\n", pyString(filepath.ToSlash(root)))

	imports, err := buildImports(order, g)
	if err != nil {
		return nil, err
	}
	b.WriteString(imports)

	b.WriteString("\nglobal_state = {}\nnode_outputs = {}\nnode_errors = {}\n\n")

	for _, id := range order {
		meta, ok := g.Meta[id]
		if !ok {
			return nil, &SynthesisError{InstanceID: id, Reason: "no node metadata resolved for instance"}
		}

		fmt.Fprintf(&b, "print(%s, flush=True)\n", pyString(MarkerPrefix+":"+id))
		b.WriteString("try:\n")
		b.WriteString("    inputs = {}\n")
		for _, in := range g.Data[id] {
			producer, ok := g.Meta[in.Producer]
			if !ok {
				return nil, &SynthesisError{InstanceID: in.Producer, Reason: "data edge producer has no metadata"}
			}
			key := pyString(producer.FQNN)
			fmt.Fprintf(&b, "    inputs[%s] = node_outputs.get(%s) or {}\n", key, key)
		}
		fmt.Fprintf(&b, "    result = %s(inputs, global_state)\n", alias(meta.FQNN))
		fmt.Fprintf(&b, "    node_outputs[%s] = result\n", pyString(meta.FQNN))
		b.WriteString("except Exception as e:\n")
		b.WriteString("    import traceback\n")
		fmt.Fprintf(&b, "    print(%s, traceback.format_exc())\n", pyString("🔴 Error in "+meta.FQNN+":"))
		fmt.Fprintf(&b, "    node_errors[%s] = str(e)\n", pyString(meta.FQNN))
		b.WriteString("\n")
	}

	b.WriteString("print('[SUMMARY] Done')\n")
	b.WriteString("sys.exit(0 if len(node_errors) == 0 else 1)\n")

	return &Plan{Order: order, Script: b.String()}, nil
}

// buildImports emits one aliased import per node type used by the layout.
// The alias is the fully-qualified name with dots replaced by underscores,
// which disambiguates node functions sharing a bare name across categories.
func buildImports(order []string, g *graph.Graphs) (string, error) {
	seen := make(map[string]bool)
	var fqnns []string
	for _, id := range order {
		meta, ok := g.Meta[id]
		if !ok {
			return "", &SynthesisError{InstanceID: id, Reason: "no node metadata resolved for instance"}
		}
		if !seen[meta.FQNN] {
			seen[meta.FQNN] = true
			fqnns = append(fqnns, meta.FQNN)
		}
	}
	sort.Strings(fqnns)

	var b strings.Builder
	for _, fqnn := range fqnns {
		category, function, ok := strings.Cut(fqnn, ".")
		if !ok {
			return "", &SynthesisError{InstanceID: fqnn, Reason: "fully-qualified name has no category"}
		}
		fmt.Fprintf(&b, "from nodes.%s import %s as %s\n", category, function, alias(fqnn))
	}
	return b.String(), nil
}

// alias derives the deterministic Python identifier used for a node type.
func alias(fqnn string) string {
	return strings.ReplaceAll(fqnn, ".", "_")
}

// pyString renders s as a single-quoted Python string literal.
func pyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
