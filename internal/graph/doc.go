// Package graph builds the dual dependency graphs for a workflow run: a
// control-flow graph ordering instance execution and a data graph wiring
// producer outputs to consumer inputs. Both graphs share the layout's
// instance-id vertex set.
package graph
