// Package pyscan statically extracts workflow-node metadata from Python
// source files.
//
// A workflow node is a top-level function carrying a @node decorator, in
// either its bare spelling (@node) or a namespace-qualified one
// (@pyworks.node). Scanning is purely structural: the file is never
// imported or executed, so discovery is safe to run against arbitrary
// project code. Call forms such as @node() are deliberately not
// recognized, matching the authoring contract.
package pyscan
